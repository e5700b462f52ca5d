package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/finance"
)

// Per-entity clients over the shared RecordStore transport. Callers batch
// and chunk ids upstream; each method issues exactly one request.

// FundClient reads funds from the record store
type FundClient struct {
	store *RecordStore
}

// NewFundClient creates a new FundClient
func NewFundClient(store *RecordStore) *FundClient {
	return &FundClient{store: store}
}

type fundCollection struct {
	Funds        []finance.Fund `json:"funds"`
	TotalRecords int            `json:"total_records"`
}

// GetFundsByIDs fetches the funds with the given ids. Missing ids are not
// an error here; the caller detects gaps.
func (c *FundClient) GetFundsByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.Fund, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out fundCollection
	if err := c.store.getCollection(ctx, "/finance/funds", idsFilter("id", ids), len(ids), &out); err != nil {
		return nil, err
	}
	return out.Funds, nil
}

// LedgerClient reads ledgers from the record store
type LedgerClient struct {
	store *RecordStore
}

// NewLedgerClient creates a new LedgerClient
func NewLedgerClient(store *RecordStore) *LedgerClient {
	return &LedgerClient{store: store}
}

type ledgerCollection struct {
	Ledgers      []finance.Ledger `json:"ledgers"`
	TotalRecords int              `json:"total_records"`
}

// GetRestrictedLedgerIDs returns, out of the given ledger ids, the subset
// whose ledgers restrict expenditures. The restriction filter is pushed
// down to the store.
func (c *LedgerClient) GetRestrictedLedgerIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := andFilter(idsFilter("id", ids), "restrict_expenditures==true")
	var out ledgerCollection
	if err := c.store.getCollection(ctx, "/finance/ledgers", query, len(ids), &out); err != nil {
		return nil, err
	}
	restricted := make([]uuid.UUID, 0, len(out.Ledgers))
	for _, ledger := range out.Ledgers {
		restricted = append(restricted, ledger.ID)
	}
	return restricted, nil
}

// BudgetClient reads budgets from the record store
type BudgetClient struct {
	store *RecordStore
}

// NewBudgetClient creates a new BudgetClient
func NewBudgetClient(store *RecordStore) *BudgetClient {
	return &BudgetClient{store: store}
}

type budgetCollection struct {
	Budgets      []finance.Budget `json:"budgets"`
	TotalRecords int              `json:"total_records"`
}

// GetActiveBudgetsByFundIDs fetches each fund's active budget
func (c *BudgetClient) GetActiveBudgetsByFundIDs(ctx context.Context, fundIDs []uuid.UUID) ([]finance.Budget, error) {
	if len(fundIDs) == 0 {
		return nil, nil
	}
	query := andFilter(idsFilter("fund_id", fundIDs), "status==ACTIVE")
	var out budgetCollection
	if err := c.store.getCollection(ctx, "/finance/budgets", query, len(fundIDs), &out); err != nil {
		return nil, err
	}
	return out.Budgets, nil
}

// FiscalYearClient reads fiscal years from the record store
type FiscalYearClient struct {
	store *RecordStore
}

// NewFiscalYearClient creates a new FiscalYearClient
func NewFiscalYearClient(store *RecordStore) *FiscalYearClient {
	return &FiscalYearClient{store: store}
}

// GetFiscalYearByID fetches one fiscal year
func (c *FiscalYearClient) GetFiscalYearByID(ctx context.Context, id uuid.UUID) (*finance.FiscalYear, error) {
	var out finance.FiscalYear
	if err := c.store.getCollection(ctx, "/finance/fiscal-years/"+id.String(), "", 0, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpenseClassClient reads expense classes from the record store
type ExpenseClassClient struct {
	store *RecordStore
}

// NewExpenseClassClient creates a new ExpenseClassClient
func NewExpenseClassClient(store *RecordStore) *ExpenseClassClient {
	return &ExpenseClassClient{store: store}
}

type expenseClassCollection struct {
	ExpenseClasses []finance.ExpenseClass `json:"expense_classes"`
	TotalRecords   int                    `json:"total_records"`
}

// GetExpenseClassesByIDs fetches the expense classes with the given ids
func (c *ExpenseClassClient) GetExpenseClassesByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.ExpenseClass, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out expenseClassCollection
	if err := c.store.getCollection(ctx, "/finance/expense-classes", idsFilter("id", ids), len(ids), &out); err != nil {
		return nil, err
	}
	return out.ExpenseClasses, nil
}
