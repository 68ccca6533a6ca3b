package extract

import (
	"testing"

	"fapiaobox/pkg/ocr"
)

func regionsFrom(lines ...string) []ocr.Region {
	out := make([]ocr.Region, 0, len(lines))
	for i, l := range lines {
		out = append(out, ocr.Region{Text: l, Left: 0, Top: i * 40})
	}
	return out
}

func TestExtractLabelAnchoredNumberAndAmount(t *testing.T) {
	res := Extract(regionsFrom("发票号码: 12345678", "价税合计 ¥1,234.56"))

	if res.InvoiceNumber != "12345678" {
		t.Fatalf("invoice number: got %q want 12345678", res.InvoiceNumber)
	}
	if !res.TotalAmount.Valid {
		t.Fatal("total amount not recognized")
	}
	if got := res.TotalAmount.Decimal.StringFixed(2); got != "1234.56" {
		t.Fatalf("total amount: got %s want 1234.56", got)
	}
	if res.IssueDate != nil || res.SellerName != "" || res.BankName != "" || res.BankAccount != "" || res.Content != "" {
		t.Fatalf("unexpected extra fields recognized: %+v", res)
	}
}

func TestExtractFullInvoice(t *testing.T) {
	res := Extract(regionsFrom(
		"电子发票（普通发票）",
		"发票号码: 25441234567890123456",
		"开票日期: 2025年3月15日",
		"货物或应税劳务名称: 技术服务费",
		"销售方名称: 广州云服科技有限公司纳税人识别号91440101MA5XXXXX1B",
		"开户银行: 中国建设银行广州分行",
		"银行账号: 6227001234567890123",
		"价税合计（大写）伍仟叁佰圆整 （小写）¥5,300.00",
	))

	if res.InvoiceNumber != "25441234567890123456" {
		t.Errorf("invoice number: got %q", res.InvoiceNumber)
	}
	if res.IssueDate == nil {
		t.Fatal("issue date not recognized")
	}
	if y, m, d := res.IssueDate.Date(); y != 2025 || int(m) != 3 || d != 15 {
		t.Errorf("issue date: got %v", res.IssueDate)
	}
	if !res.TotalAmount.Valid || res.TotalAmount.Decimal.StringFixed(2) != "5300.00" {
		t.Errorf("total amount: got %+v", res.TotalAmount)
	}
	if res.Content != "技术服务费" {
		t.Errorf("content: got %q", res.Content)
	}
	if res.SellerName != "广州云服科技有限公司" {
		t.Errorf("seller name not cleaned of tax id label: got %q", res.SellerName)
	}
	if res.BankName != "中国建设银行广州分行" {
		t.Errorf("bank name: got %q", res.BankName)
	}
	if res.BankAccount != "6227001234567890123" {
		t.Errorf("bank account: got %q", res.BankAccount)
	}
}

func TestExtractBareDigitalInvoiceNumberFallback(t *testing.T) {
	// fully-digital invoices sometimes lose the label but keep the 20-digit run
	res := Extract(regionsFrom("25449876543210987654", "某某商贸有限公司"))
	if res.InvoiceNumber != "25449876543210987654" {
		t.Fatalf("fallback number: got %q", res.InvoiceNumber)
	}
}

func TestExtractNothingRecognized(t *testing.T) {
	for _, regions := range [][]ocr.Region{
		nil,
		{},
		regionsFrom("lorem ipsum dolor", "no labels here"),
	} {
		res := Extract(regions)
		if res.InvoiceNumber != "" || res.IssueDate != nil || res.TotalAmount.Valid ||
			res.Content != "" || res.SellerName != "" || res.BankName != "" || res.BankAccount != "" {
			t.Fatalf("expected all-null result, got %+v", res)
		}
	}
}

func TestJoinRegionsNormalizes(t *testing.T) {
	got := JoinRegions(regionsFrom("发票号码:\n12345678", "  价税合计\t¥99.00  "))
	want := "发票号码: 12345678 价税合计 ¥99.00"
	if got != want {
		t.Fatalf("joined text: got %q want %q", got, want)
	}
}
