package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// =============================================================================
// Mocks for the external finance services
// =============================================================================

type MockFundService struct {
	mock.Mock
}

func (m *MockFundService) GetFundsByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.Fund, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Fund), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetRestrictedLedgerIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) GetActiveBudgetsByFundIDs(ctx context.Context, fundIDs []uuid.UUID) ([]finance.Budget, error) {
	args := m.Called(ctx, fundIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Budget), args.Error(1)
}

type MockFiscalYearService struct {
	mock.Mock
}

func (m *MockFiscalYearService) GetFiscalYearByID(ctx context.Context, id uuid.UUID) (*finance.FiscalYear, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FiscalYear), args.Error(1)
}

type MockExpenseClassService struct {
	mock.Mock
}

func (m *MockExpenseClassService) GetExpenseClassesByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.ExpenseClass, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.ExpenseClass), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) GetPendingPaymentsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]finance.Transaction, error) {
	args := m.Called(ctx, invoiceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetPaymentsAndCreditsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]finance.Transaction, error) {
	args := m.Called(ctx, invoiceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetEncumbrancesByPoLineIDs(ctx context.Context, fiscalYearID uuid.UUID, poLineIDs []uuid.UUID) ([]finance.Transaction, error) {
	args := m.Called(ctx, fiscalYearID, poLineIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Transaction), args.Error(1)
}

// CreateTransaction echoes the input with a fresh id when the expectation
// returns (nil, nil), mirroring what the real transaction store does.
func (m *MockTransactionService) CreateTransaction(ctx context.Context, tx *finance.Transaction) (*finance.Transaction, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		if args.Error(1) != nil {
			return nil, args.Error(1)
		}
		created := *tx
		created.ID = uuid.New()
		return &created, nil
	}
	return args.Get(0).(*finance.Transaction), args.Error(1)
}

func (m *MockTransactionService) UpdateTransaction(ctx context.Context, tx *finance.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

type MockSummaryService struct {
	mock.Mock
}

func (m *MockSummaryService) CreateOrUpdateSummary(ctx context.Context, summary finance.InvoiceTransactionSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

type MockExchangeRateProvider struct {
	mock.Mock
}

func (m *MockExchangeRateProvider) GetExchangeRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
