package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// A rule is a pure function over the joined OCR text that either yields a
// field value or declines. Rules are tried in order; label-anchored rules
// come before format-anchored fallbacks.
type (
	stringRule func(text string) (string, bool)
	dateRule   func(text string) (time.Time, bool)
	amountRule func(text string) (decimal.Decimal, bool)
)

// reCapture builds a stringRule from a regexp with one capture group.
func reCapture(pattern string) stringRule {
	re := regexp.MustCompile(pattern)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// dateCapture builds a dateRule: the captured token must also parse as a date.
func dateCapture(pattern string) dateRule {
	re := regexp.MustCompile(pattern)
	return func(text string) (time.Time, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return time.Time{}, false
		}
		return ParseDate(m[1])
	}
}

// amountCapture builds an amountRule: the captured token must parse as a
// positive decimal after currency/grouping cleanup.
func amountCapture(pattern string) amountRule {
	re := regexp.MustCompile(pattern)
	return func(text string) (decimal.Decimal, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return decimal.Decimal{}, false
		}
		return ParseAmount(m[1])
	}
}

// Invoice number: the 发票号码 label with a following digit run, falling back
// to a bare 18-20 digit run (the fully-digital invoice number format).
var invoiceNumberRules = []stringRule{
	reCapture(`发票号码[^0-9]{0,8}([0-9]{8,20})`),
	reCapture(`\b([0-9]{18,20})\b`),
}

// Issue date: 开票日期-anchored first, then date-shaped tokens. A bare 8-digit
// run is only trusted when label-anchored, otherwise it collides with invoice
// numbers.
var issueDateRules = []dateRule{
	dateCapture(`开票日期[^0-9]{0,8}([0-9]{4}年[0-9]{1,2}月[0-9]{1,2}日)`),
	dateCapture(`([0-9]{4}年[0-9]{1,2}月[0-9]{1,2}日)`),
	dateCapture(`\b([0-9]{4}-[0-9]{1,2}-[0-9]{1,2})\b`),
	dateCapture(`\b([0-9]{4}/[0-9]{1,2}/[0-9]{1,2})\b`),
	dateCapture(`开票日期[^0-9]{0,8}([0-9]{8})\b`),
}

// Total amount (price + tax): 价税合计/合计/总金额 with a currency marker, then
// label without marker, then any ¥-prefixed number on the page.
var totalAmountRules = []amountRule{
	amountCapture(`(?:价税合计|合计|总金额)[^0-9¥￥]{0,20}[¥￥]\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
	amountCapture(`价税合计[^0-9]{0,20}([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
	amountCapture(`[¥￥]\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
}

// Invoice content: goods/service name column headers.
var contentRules = []stringRule{
	reCapture(`货物或应税劳务名称[:：]?\s*([^\s0-9¥￥][^\s¥￥]{1,49})`),
	reCapture(`项目名称[:：]?\s*([^\s0-9¥￥][^\s¥￥]{1,49})`),
}

// Seller name: trailing 纳税人识别号 (tax id label) bleeding into the capture is
// cut off, as OCR often merges the two cells.
var sellerNameRules = []stringRule{
	cleanSeller(reCapture(`销售方名称[:：]?\s*([^\s]{2,50})`)),
	cleanSeller(reCapture(`销售方[:：]?\s*([^\s]{2,50})`)),
}

func cleanSeller(r stringRule) stringRule {
	return func(text string) (string, bool) {
		v, ok := r(text)
		if !ok {
			return "", false
		}
		if i := strings.Index(v, "纳税人识别号"); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		if v == "" {
			return "", false
		}
		return v, true
	}
}

// Bank name and account. 开户银行 must precede 开户行 in the alternation since
// the latter is a prefix of the former.
var bankNameRules = []stringRule{
	reCapture(`(?:开户银行|开户行)[:：]?\s*([^\s0-9][^\s]{1,49})`),
}

var bankAccountRules = []stringRule{
	reCapture(`银行账号[^0-9]{0,8}([0-9]{10,30})`),
	reCapture(`账号[^0-9]{0,8}([0-9]{10,30})`),
}
