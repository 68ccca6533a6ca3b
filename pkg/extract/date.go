package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var hanDateRE = regexp.MustCompile(`^([0-9]{4})年([0-9]{1,2})月([0-9]{1,2})日$`)

// dateLayouts are the token shapes accepted besides the 年月日 form.
var dateLayouts = []string{"2006-1-2", "2006/1/2", "20060102"}

// ParseDate parses a date-shaped OCR token. Unparseable or out-of-range
// tokens yield (zero, false).
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if m := hanDateRE.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return civilDate(year, month, day)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return time.Time{}, false
}

// civilDate validates the components and returns a UTC midnight timestamp.
// time.Parse normalizes overflow (e.g. Feb 30) instead of rejecting it, so
// the round-trip check keeps junk digit runs out.
func civilDate(year, month, day int) (time.Time, bool) {
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
