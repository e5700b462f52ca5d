package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// TransactionType classifies a ledger transaction
type TransactionType string

const (
	TransactionTypeEncumbrance    TransactionType = "ENCUMBRANCE"
	TransactionTypePendingPayment TransactionType = "PENDING_PAYMENT"
	TransactionTypePayment        TransactionType = "PAYMENT"
	TransactionTypeCredit         TransactionType = "CREDIT"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeEncumbrance, TransactionTypePendingPayment,
		TransactionTypePayment, TransactionTypeCredit:
		return true
	}
	return false
}

// AwaitingPayment links a pending payment to the encumbrance it will
// release when the actual payment is recorded.
type AwaitingPayment struct {
	EncumbranceID      uuid.UUID `json:"encumbrance_id"`
	ReleaseEncumbrance bool      `json:"release_encumbrance"`
}

// EncumbranceDetail carries the purchase-order linkage of an ENCUMBRANCE
// transaction; used to re-link fund distributions across fiscal years.
type EncumbranceDetail struct {
	SourcePurchaseOrderID uuid.UUID `json:"source_purchase_order_id"`
	SourcePoLineID        uuid.UUID `json:"source_po_line_id"`
}

// Transaction is a ledger transaction against a fund in one fiscal year.
type Transaction struct {
	ID                  uuid.UUID            `json:"id"`
	Type                TransactionType      `json:"transaction_type"`
	Amount              decimal.Decimal      `json:"amount"`
	Currency            valueobject.Currency `json:"currency"`
	FiscalYearID        uuid.UUID            `json:"fiscal_year_id"`
	FromFundID          *uuid.UUID           `json:"from_fund_id,omitempty"`
	ToFundID            *uuid.UUID           `json:"to_fund_id,omitempty"`
	SourceInvoiceID     uuid.UUID            `json:"source_invoice_id"`
	SourceInvoiceLineID *uuid.UUID           `json:"source_invoice_line_id,omitempty"`
	ExpenseClassID      *uuid.UUID           `json:"expense_class_id,omitempty"`
	AwaitingPayment     *AwaitingPayment     `json:"awaiting_payment,omitempty"`
	Encumbrance         *EncumbranceDetail   `json:"encumbrance,omitempty"`
}

// NewZeroPendingPayment builds a zero-amount PENDING_PAYMENT placeholder in
// the given currency, so amount diffing downstream never needs a nil check.
func NewZeroPendingPayment(currency valueobject.Currency) *Transaction {
	return &Transaction{
		Type:     TransactionTypePendingPayment,
		Amount:   decimal.Zero,
		Currency: currency,
	}
}

// EncumbranceLinkage returns the encumbrance id a pending payment refers
// to, or nil when it releases no encumbrance.
func (t *Transaction) EncumbranceLinkage() *uuid.UUID {
	if t.AwaitingPayment == nil {
		return nil
	}
	id := t.AwaitingPayment.EncumbranceID
	return &id
}

// InvoiceTransactionSummary declares how many transactions of each kind the
// external ledger should expect for one invoice. The ledger validates a
// batch against these counts, so the summary must be written before any
// individual transaction.
type InvoiceTransactionSummary struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	PendingPayments    int       `json:"num_pending_payments"`
	PaymentsAndCredits int       `json:"num_payments_credits"`
}
