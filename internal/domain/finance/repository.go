package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// The finance records (funds, ledgers, budgets, fiscal years, expense
// classes, transactions) live in external services; these interfaces are
// the engine's view of them. Implementations batch id lookups and chunk
// them to respect the services' maximum-ids-per-call limit.

// FundService looks up funds in the external fund store
type FundService interface {
	GetFundsByIDs(ctx context.Context, ids []uuid.UUID) ([]Fund, error)
}

// LedgerService looks up ledgers in the external ledger store
type LedgerService interface {
	// GetRestrictedLedgerIDs returns, out of the given ledger ids, the
	// subset whose ledgers have restrictExpenditures enabled.
	GetRestrictedLedgerIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// BudgetService looks up budgets in the external budget store
type BudgetService interface {
	// GetActiveBudgetsByFundIDs returns the active budget of each fund.
	// A fund without an active budget yields a NOT_FOUND error.
	GetActiveBudgetsByFundIDs(ctx context.Context, fundIDs []uuid.UUID) ([]Budget, error)
}

// FiscalYearService looks up fiscal years in the external store
type FiscalYearService interface {
	GetFiscalYearByID(ctx context.Context, id uuid.UUID) (*FiscalYear, error)
}

// ExpenseClassService looks up expense classes in the external store
type ExpenseClassService interface {
	GetExpenseClassesByIDs(ctx context.Context, ids []uuid.UUID) ([]ExpenseClass, error)
}

// TransactionService reads and writes ledger transactions. The external
// store partitions transactions by type into separate endpoints with
// distinct capabilities; Update returns an UNSUPPORTED_OPERATION domain
// error for types whose endpoint cannot update (credits, encumbrances).
type TransactionService interface {
	GetPendingPaymentsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]Transaction, error)
	GetPaymentsAndCreditsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]Transaction, error)
	GetEncumbrancesByPoLineIDs(ctx context.Context, fiscalYearID uuid.UUID, poLineIDs []uuid.UUID) ([]Transaction, error)
	CreateTransaction(ctx context.Context, tx *Transaction) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
}

// TransactionSummaryService maintains the per-invoice transaction counts
// the external ledger validates batches against
type TransactionSummaryService interface {
	CreateOrUpdateSummary(ctx context.Context, summary InvoiceTransactionSummary) error
}

// ExchangeRateProvider quotes a live exchange rate between two currencies
type ExchangeRateProvider interface {
	GetExchangeRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error)
}
