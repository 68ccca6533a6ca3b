package extract

import (
	"time"

	"github.com/shopspring/decimal"

	"fapiaobox/pkg/ocr"
)

// Result holds the best-effort value for each recognized invoice field. Every
// field is independently optional: a zero value / invalid decimal means the
// field was not recognized. An all-empty Result is a valid, storable outcome.
type Result struct {
	InvoiceNumber string
	IssueDate     *time.Time
	TotalAmount   decimal.NullDecimal
	Content       string
	SellerName    string
	BankName      string
	BankAccount   string
}

// Extract maps raw OCR text regions to the seven invoice fields. For each
// field an ordered rule list is applied to the joined page text; the first
// rule that yields a value wins. Extraction never fails: total mismatch or an
// empty region list simply leaves fields unset.
func Extract(regions []ocr.Region) Result {
	text := JoinRegions(regions)
	var res Result
	res.InvoiceNumber = firstString(text, invoiceNumberRules)
	if d, ok := firstDate(text, issueDateRules); ok {
		res.IssueDate = &d
	}
	if amt, ok := firstAmount(text, totalAmountRules); ok {
		res.TotalAmount = decimal.NullDecimal{Decimal: amt, Valid: true}
	}
	res.Content = firstString(text, contentRules)
	res.SellerName = firstString(text, sellerNameRules)
	res.BankName = firstString(text, bankNameRules)
	res.BankAccount = firstString(text, bankAccountRules)
	return res
}

func firstString(text string, rules []stringRule) string {
	for _, r := range rules {
		if v, ok := r(text); ok {
			return v
		}
	}
	return ""
}

func firstDate(text string, rules []dateRule) (time.Time, bool) {
	for _, r := range rules {
		if v, ok := r(text); ok {
			return v, true
		}
	}
	return time.Time{}, false
}

func firstAmount(text string, rules []amountRule) (decimal.Decimal, bool) {
	for _, r := range rules {
		if v, ok := r(text); ok {
			return v, true
		}
	}
	return decimal.Decimal{}, false
}
