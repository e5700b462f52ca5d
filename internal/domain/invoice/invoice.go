package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen      InvoiceStatus = "OPEN"
	InvoiceStatusReviewed  InvoiceStatus = "REVIEWED"
	InvoiceStatusApproved  InvoiceStatus = "APPROVED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusReviewed, InvoiceStatusApproved,
		InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice is a vendor invoice moving through the acquisitions lifecycle.
type Invoice struct {
	ID             uuid.UUID            `json:"id"`
	VendorID       uuid.UUID            `json:"vendor_id"`
	VendorInvoiceNo string              `json:"vendor_invoice_no"`
	Status         InvoiceStatus        `json:"status"`
	Currency       valueobject.Currency `json:"currency"`
	InvoiceDate    time.Time            `json:"invoice_date"`
	Total          decimal.Decimal      `json:"total"`

	// FiscalYearID pins the invoice to one accounting period. Nil until
	// approval resolves it from the funds' budgets.
	FiscalYearID *uuid.UUID `json:"fiscal_year_id,omitempty"`

	// ExchangeRate, when set, freezes the invoice-to-fiscal-year currency
	// conversion so repeated runs and later audits are reproducible.
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`

	Adjustments []Adjustment `json:"adjustments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// HasFrozenExchangeRate returns true if the invoice carries a usable
// frozen exchange rate.
func (i *Invoice) HasFrozenExchangeRate() bool {
	return i.ExchangeRate != nil && !i.ExchangeRate.IsZero()
}

// FreezeExchangeRate records the resolved conversion rate on the invoice
func (i *Invoice) FreezeExchangeRate(rate decimal.Decimal) {
	r := rate
	i.ExchangeRate = &r
}

// NonProratedAdjustments returns the adjustments that carry their own fund
// distributions. Prorated adjustments are folded into line totals before
// approval and are invisible to the transaction workflow.
func (i *Invoice) NonProratedAdjustments() []Adjustment {
	result := make([]Adjustment, 0, len(i.Adjustments))
	for _, adj := range i.Adjustments {
		if !adj.IsProrated() {
			result = append(result, adj)
		}
	}
	return result
}

// Approve transitions the invoice to APPROVED
func (i *Invoice) Approve() error {
	if i.Status != InvoiceStatusOpen && i.Status != InvoiceStatusReviewed {
		return shared.ErrInvalidState.
			WithParam("invoiceId", i.ID.String()).
			WithParam("status", i.Status.String())
	}
	i.Status = InvoiceStatusApproved
	i.UpdatedAt = time.Now()
	return nil
}

// Pay transitions the invoice to PAID
func (i *Invoice) Pay() error {
	if i.Status != InvoiceStatusApproved {
		return shared.ErrInvalidState.
			WithParam("invoiceId", i.ID.String()).
			WithParam("status", i.Status.String())
	}
	i.Status = InvoiceStatusPaid
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel transitions the invoice to CANCELLED
func (i *Invoice) Cancel() error {
	if i.Status.IsTerminal() {
		return shared.ErrInvalidState.
			WithParam("invoiceId", i.ID.String()).
			WithParam("status", i.Status.String())
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()
	return nil
}

// InvoiceLine is one line of an invoice, charged to one or more funds.
type InvoiceLine struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	SubTotal    decimal.Decimal `json:"sub_total"`
	Total       decimal.Decimal `json:"total"`

	// PoLineID links back to the ordering purchase-order line; it scopes
	// encumbrance lookups when the fiscal year changes.
	PoLineID *uuid.UUID `json:"po_line_id,omitempty"`

	FundDistributions []FundDistribution `json:"fund_distributions"`
}

// TotalMoney returns the line total in the invoice currency
func (l *InvoiceLine) TotalMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(l.Total, currency)
	return m
}
