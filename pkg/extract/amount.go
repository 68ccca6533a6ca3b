package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount normalizes a matched amount token into a decimal. Currency
// markers and thousands separators are stripped first. Any parse failure
// yields (zero, false) — an unparseable amount is a miss, never an error.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	for _, marker := range []string{"¥", "￥", "元"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, false
	}
	return d, true
}
