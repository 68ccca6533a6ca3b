package extract

import (
	"strings"

	"fapiaobox/pkg/ocr"
)

// JoinRegions flattens the ordered region sequence into one normalized line
// of text. The engine already emits regions in reading order; joining with
// single spaces keeps label/value adjacency for the rule regexps.
func JoinRegions(regions []ocr.Region) string {
	parts := make([]string, 0, len(regions))
	for _, r := range regions {
		t := normalizeText(r.Text)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// normalizeText collapses whitespace and replaces newlines/tabs.
func normalizeText(t string) string {
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	return strings.Join(strings.Fields(t), " ")
}
