package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType separates personally reimbursed invoices from invoices paid by
// company bank transfer.
type InvoiceType string

const (
	TypeSelfPaid  InvoiceType = "self_paid"
	TypeCorporate InvoiceType = "corporate"
)

// ValidType reports whether t is one of the two known invoice types.
func ValidType(t InvoiceType) bool {
	return t == TypeSelfPaid || t == TypeCorporate
}

// State is the lifecycle state of an invoice record. Transitions are
// forward-only: active -> recycled -> purged.
type State string

const (
	StateActive   State = "active"
	StateRecycled State = "recycled"
	StatePurged   State = "purged"
)

// stateRank orders states for the monotonic transition check.
var stateRank = map[State]int{StateActive: 0, StateRecycled: 1, StatePurged: 2}

// ValidState reports whether s is a known lifecycle state.
func ValidState(s State) bool {
	_, ok := stateRank[s]
	return ok
}

// ForwardTransition reports whether moving from -> to advances the lifecycle.
// Same-state is not a forward transition.
func ForwardTransition(from, to State) bool {
	rf, ok1 := stateRank[from]
	rt, ok2 := stateRank[to]
	return ok1 && ok2 && rt > rf
}

// InvoiceRecord is a scanned invoice with its OCR-extracted fields. Extracted
// fields are best effort: any of them may be empty/null without blocking the
// record (the uploader corrects them later).
type InvoiceRecord struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	InvoiceType   InvoiceType         `gorm:"size:32;not null;index:idx_type_state"`
	PurchaserName string              `gorm:"size:255;not null"`
	InvoiceNumber string              `gorm:"size:64"`
	IssueDate     *time.Time          ``
	TotalAmount   decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	Content       string              `gorm:"size:255"`
	SellerName    string              `gorm:"size:255"`
	BankName      string              `gorm:"size:255"`
	BankAccount   string              `gorm:"size:64"`
	PdfPath       string              `gorm:"size:512;not null"` // relative to the PDF base dir, owned by this record
	State         State               `gorm:"size:16;not null;default:active;index:idx_type_state"`
	RecycledAt    *time.Time          `gorm:"index"`
}
