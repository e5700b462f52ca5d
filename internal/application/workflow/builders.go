package workflow

import (
	"github.com/erp/acquisitions/internal/domain/finance"
)

// buildPendingPayment builds the PENDING_PAYMENT transaction of one row.
// The amount keeps its sign; an encumbrance reference on the fund
// distribution becomes an awaitingPayment sub-record.
func buildPendingPayment(row TransactionHolder) *finance.Transaction {
	amount := row.DistributionAmount()
	fundID := row.FundDistribution.FundID

	tx := &finance.Transaction{
		Type:                finance.TransactionTypePendingPayment,
		Amount:              amount.Amount(),
		Currency:            row.FiscalYear.Currency,
		FiscalYearID:        row.FiscalYear.ID,
		FromFundID:          &fundID,
		SourceInvoiceID:     row.Invoice.ID,
		SourceInvoiceLineID: row.InvoiceLineID(),
		ExpenseClassID:      row.FundDistribution.ExpenseClassID,
	}
	if row.FundDistribution.HasEncumbrance() {
		tx.AwaitingPayment = &finance.AwaitingPayment{
			EncumbranceID:      *row.FundDistribution.EncumbranceID,
			ReleaseEncumbrance: false,
		}
	}
	return tx
}

// buildPaymentOrCredit builds the final transaction of one row. A negative
// computed amount flips roles: the fund receives money back, so the
// transaction becomes a CREDIT with toFundId set and fromFundId cleared.
// The stored amount is always the absolute value.
func buildPaymentOrCredit(row TransactionHolder) *finance.Transaction {
	amount := row.DistributionAmount()
	fundID := row.FundDistribution.FundID

	tx := &finance.Transaction{
		Amount:              amount.Abs().Amount(),
		Currency:            row.FiscalYear.Currency,
		FiscalYearID:        row.FiscalYear.ID,
		SourceInvoiceID:     row.Invoice.ID,
		SourceInvoiceLineID: row.InvoiceLineID(),
		ExpenseClassID:      row.FundDistribution.ExpenseClassID,
	}
	if amount.IsNegative() {
		tx.Type = finance.TransactionTypeCredit
		tx.ToFundID = &fundID
	} else {
		tx.Type = finance.TransactionTypePayment
		tx.FromFundID = &fundID
	}
	return tx
}

// withNewPendingPayments returns rows with freshly built pending payments
// attached; pure, no I/O.
func withNewPendingPayments(rows []TransactionHolder) []TransactionHolder {
	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		row.NewTransaction = buildPendingPayment(row)
		out[i] = row
	}
	return out
}

// withNewPaymentsCredits returns rows with freshly built payments/credits
// attached; pure, no I/O.
func withNewPaymentsCredits(rows []TransactionHolder) []TransactionHolder {
	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		row.NewTransaction = buildPaymentOrCredit(row)
		out[i] = row
	}
	return out
}
