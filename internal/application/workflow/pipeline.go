package workflow

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// enrichStage transforms the current row set into a new row set with one
// more field populated. Stages run strictly in dependency order; a stage
// error short-circuits the pipeline.
type enrichStage func(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error)

// Enricher progressively attaches fund, ledger-restriction, budget,
// fiscal-year, expense-class, conversion and existing-transaction context
// to the row set, via chunked batched lookups against the external stores.
type Enricher struct {
	funds          finance.FundService
	ledgers        finance.LedgerService
	budgets        finance.BudgetService
	fiscalYears    finance.FiscalYearService
	expenseClasses finance.ExpenseClassService
	transactions   finance.TransactionService
	conversions    *ConversionResolver
	logger         *zap.Logger
}

// NewEnricher creates a new Enricher
func NewEnricher(
	funds finance.FundService,
	ledgers finance.LedgerService,
	budgets finance.BudgetService,
	fiscalYears finance.FiscalYearService,
	expenseClasses finance.ExpenseClassService,
	transactions finance.TransactionService,
	conversions *ConversionResolver,
	logger *zap.Logger,
) *Enricher {
	return &Enricher{
		funds:          funds,
		ledgers:        ledgers,
		budgets:        budgets,
		fiscalYears:    fiscalYears,
		expenseClasses: expenseClasses,
		transactions:   transactions,
		conversions:    conversions,
		logger:         logger,
	}
}

// Enrich runs the full stage pipeline left to right. Funds must precede
// ledgers and budgets, budgets the fiscal-year check, and the fiscal year
// the conversion (it needs the fiscal-year currency).
func (e *Enricher) Enrich(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	stages := []enrichStage{
		e.withFunds,
		e.withLedgers,
		e.withBudgets,
		e.checkMultipleFiscalYears,
		e.withFiscalYear,
		e.withExpenseClasses,
		e.withConversion,
		e.withExistingTransactions,
	}
	var err error
	for _, stage := range stages {
		rows, err = stage(ctx, rows)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// withFunds attaches each row's fund, batched by distinct fund id
func (e *Enricher) withFunds(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	var ids []uuid.UUID
	for _, row := range rows {
		ids = append(ids, row.FundDistribution.FundID)
	}
	funds, err := fetchChunked(ctx, distinctIDs(ids), e.funds.GetFundsByIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]finance.Fund, len(funds))
	for _, f := range funds {
		byID[f.ID] = f
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		fund, ok := byID[row.FundDistribution.FundID]
		if !ok {
			return nil, shared.ErrNotFound.WithParam("fundId", row.FundDistribution.FundID.String())
		}
		row.Fund = &fund
		out[i] = row
	}
	return out, nil
}

// withLedgers tags each row with whether its fund's ledger restricts
// expenditures. Only restricted ledgers are fetched; membership in the
// restricted set is the flag.
func (e *Enricher) withLedgers(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	var ids []uuid.UUID
	for _, row := range rows {
		ids = append(ids, row.Fund.LedgerID)
	}
	restricted, err := fetchChunked(ctx, distinctIDs(ids), e.ledgers.GetRestrictedLedgerIDs)
	if err != nil {
		return nil, err
	}

	restrictedSet := make(map[uuid.UUID]struct{}, len(restricted))
	for _, id := range restricted {
		restrictedSet[id] = struct{}{}
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		_, row.RestrictExpenditures = restrictedSet[row.Fund.LedgerID]
		out[i] = row
	}
	return out, nil
}

// withBudgets attaches each fund's active budget, batched by fund id
func (e *Enricher) withBudgets(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	var ids []uuid.UUID
	for _, row := range rows {
		ids = append(ids, row.FundDistribution.FundID)
	}
	budgets, err := fetchChunked(ctx, distinctIDs(ids), e.budgets.GetActiveBudgetsByFundIDs)
	if err != nil {
		return nil, err
	}

	byFund := make(map[uuid.UUID]finance.Budget, len(budgets))
	for _, b := range budgets {
		byFund[b.FundID] = b
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		budget, ok := byFund[row.FundDistribution.FundID]
		if !ok {
			return nil, shared.ErrNotFound.WithParam("fundId", row.FundDistribution.FundID.String())
		}
		if !budget.IsActive() {
			return nil, shared.ErrInvalidState.
				WithParam("budgetId", budget.ID.String()).
				WithParam("budgetStatus", string(budget.Status))
		}
		row.Budget = &budget
		out[i] = row
	}
	return out, nil
}

// checkMultipleFiscalYears fails the run when the rows' budgets span more
// than one fiscal year, citing the fund-distribution codes of one row from
// each of the first two groups.
func (e *Enricher) checkMultipleFiscalYears(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	firstOf := make(map[uuid.UUID]TransactionHolder)
	var order []uuid.UUID
	for _, row := range rows {
		fy := row.Budget.FiscalYearID
		if fy == uuid.Nil {
			continue
		}
		if _, seen := firstOf[fy]; !seen {
			firstOf[fy] = row
			order = append(order, fy)
		}
	}
	if len(order) > 1 {
		return nil, shared.ErrMultipleFiscalYears.
			WithParam("fundDistributionCode", firstOf[order[0]].FundDistribution.Code).
			WithParam("fundDistributionCode", firstOf[order[1]].FundDistribution.Code)
	}
	return rows, nil
}

// withFiscalYear resolves the run's single fiscal year from the first
// row's budget and attaches it to every row
func (e *Enricher) withFiscalYear(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	fyID := rows[0].Budget.FiscalYearID
	fy, err := e.fiscalYears.GetFiscalYearByID(ctx, fyID)
	if err != nil {
		return nil, err
	}
	if fy == nil {
		return nil, shared.ErrNotFound.WithParam("fiscalYearId", fyID.String())
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		row.FiscalYear = fy
		out[i] = row
	}
	return out, nil
}

// withExpenseClasses attaches expense classes for rows that reference one
func (e *Enricher) withExpenseClasses(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	var ids []uuid.UUID
	for _, row := range rows {
		if row.FundDistribution.ExpenseClassID != nil {
			ids = append(ids, *row.FundDistribution.ExpenseClassID)
		}
	}
	if len(ids) == 0 {
		return rows, nil
	}
	classes, err := fetchChunked(ctx, distinctIDs(ids), e.expenseClasses.GetExpenseClassesByIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]finance.ExpenseClass, len(classes))
	for _, ec := range classes {
		byID[ec.ID] = ec
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		if row.FundDistribution.ExpenseClassID != nil {
			ec, ok := byID[*row.FundDistribution.ExpenseClassID]
			if !ok {
				return nil, shared.ErrNotFound.WithParam("expenseClassId", row.FundDistribution.ExpenseClassID.String())
			}
			row.ExpenseClass = &ec
		}
		out[i] = row
	}
	return out, nil
}

// withConversion resolves the invoice's conversion once and attaches it to
// every row
func (e *Enricher) withConversion(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	conversion, err := e.conversions.Resolve(ctx, rows[0].Invoice, rows[0].FiscalYear.Currency)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		row.Conversion = conversion
		out[i] = row
	}
	return out, nil
}

// withExistingTransactions matches each row to at most one existing
// PENDING_PAYMENT of the invoice. Unmatched rows get a zero-amount
// placeholder in the fiscal year's currency, so amount diffing downstream
// never needs a nil check.
func (e *Enricher) withExistingTransactions(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	existing, err := e.transactions.GetPendingPaymentsByInvoiceID(ctx, rows[0].Invoice.ID, len(rows))
	if err != nil {
		return nil, err
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		row.ExistingTransaction = finance.NewZeroPendingPayment(row.FiscalYear.Currency)
		for j := range existing {
			if transactionRefersToHolder(&existing[j], row) {
				tx := existing[j]
				row.ExistingTransaction = &tx
				break
			}
		}
		out[i] = row
	}
	return out, nil
}

// transactionRefersToHolder reports whether an existing pending payment
// was built from the same (fund, invoice line, encumbrance) coordinates as
// the holder. A nil invoice line on both sides matches adjustment rows.
func transactionRefersToHolder(tx *finance.Transaction, row TransactionHolder) bool {
	if tx.FromFundID == nil || *tx.FromFundID != row.FundDistribution.FundID {
		return false
	}
	if !uuidPtrEqual(tx.SourceInvoiceLineID, row.InvoiceLineID()) {
		return false
	}
	return uuidPtrEqual(tx.EncumbranceLinkage(), row.FundDistribution.EncumbranceID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
