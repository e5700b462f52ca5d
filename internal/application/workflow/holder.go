package workflow

import (
	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// TransactionHolder is the ephemeral working row of one engine run: one
// holder per (invoice line or adjustment) x fund distribution, enriched
// stage by stage with the context needed to build a ledger transaction.
// Holders are plain values; every enrichment stage returns a new slice
// instead of mutating shared state.
type TransactionHolder struct {
	Invoice          *invoice.Invoice
	InvoiceLine      *invoice.InvoiceLine
	Adjustment       *invoice.Adjustment
	FundDistribution invoice.FundDistribution

	// fdIndex locates FundDistribution within its owning line, so
	// encumbrance re-linking can write the reference back.
	fdIndex int

	Fund                 *finance.Fund
	RestrictExpenditures bool
	Budget               *finance.Budget
	FiscalYear           *finance.FiscalYear
	ExpenseClass         *finance.ExpenseClass
	Conversion           finance.Conversion

	// ExistingTransaction is the matched PENDING_PAYMENT from a previous
	// run, or a zero-amount placeholder when none matched.
	ExistingTransaction *finance.Transaction

	// NewTransaction is the transaction built from this holder.
	NewTransaction *finance.Transaction
}

// IsAdjustmentRow returns true when the fund distribution belongs to a
// non-prorated invoice adjustment rather than an invoice line.
func (h TransactionHolder) IsAdjustmentRow() bool {
	return h.Adjustment != nil
}

// InvoiceLineID returns the originating line id, or nil for adjustment rows
func (h TransactionHolder) InvoiceLineID() *uuid.UUID {
	if h.InvoiceLine == nil {
		return nil
	}
	id := h.InvoiceLine.ID
	return &id
}

// Total returns the line's or adjustment's total in the invoice currency
func (h TransactionHolder) Total() valueobject.Money {
	if h.InvoiceLine != nil {
		return h.InvoiceLine.TotalMoney(h.Invoice.Currency)
	}
	return h.Adjustment.TotalMoney(h.Invoice.Total, h.Invoice.Currency)
}

// DistributionAmount computes this holder's share of its total, converted
// to the fiscal year's currency and rounded half-to-even at two places.
func (h TransactionHolder) DistributionAmount() valueobject.Money {
	raw := h.FundDistribution.Amount(h.Total())
	return h.Conversion.Apply(raw).RoundBank(2)
}

// BuildHolders expands an invoice and its lines into the skeleton row set:
// the cross product of each line with its fund distributions, followed by
// each non-prorated adjustment with its fund distributions. Deterministic
// order, no I/O.
func BuildHolders(inv *invoice.Invoice, lines []invoice.InvoiceLine) []TransactionHolder {
	var holders []TransactionHolder
	for i := range lines {
		line := &lines[i]
		for j, fd := range line.FundDistributions {
			holders = append(holders, TransactionHolder{
				Invoice:          inv,
				InvoiceLine:      line,
				FundDistribution: fd,
				fdIndex:          j,
			})
		}
	}
	adjustments := inv.NonProratedAdjustments()
	for i := range adjustments {
		adj := &adjustments[i]
		for _, fd := range adj.FundDistributions {
			holders = append(holders, TransactionHolder{
				Invoice:          inv,
				Adjustment:       adj,
				FundDistribution: fd,
			})
		}
	}
	return holders
}
