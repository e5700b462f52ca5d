package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared"
)

type engineEnv struct {
	*testEnv
	summaries *MockSummaryService
	engine    *Engine
}

func newEngineEnv() *engineEnv {
	base := newTestEnv()
	summaries := &MockSummaryService{}
	logger := zap.NewNop()
	return &engineEnv{
		testEnv:   base,
		summaries: summaries,
		engine: NewEngine(
			base.enricher,
			NewBudgetValidator(logger),
			NewPendingPaymentService(base.transactions, summaries, logger),
			NewPaymentCreditService(base.transactions, summaries, logger),
			NewEncumbranceReconciler(base.transactions, logger),
			base.transactions,
			logger,
		),
	}
}

func (env *engineEnv) noPaymentsYet(invoiceID uuid.UUID) {
	env.transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, invoiceID, mock.Anything).
		Return([]finance.Transaction{}, nil)
}

func TestEngineStateOf(t *testing.T) {
	invoiceID := uuid.New()
	inv := &invoice.Invoice{ID: invoiceID}

	t.Run("none", func(t *testing.T) {
		env := newEngineEnv()
		env.noPaymentsYet(invoiceID)
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, invoiceID, mock.Anything).
			Return([]finance.Transaction{}, nil)

		state, err := env.engine.StateOf(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, StateNone, state)
	})

	t.Run("pending payments created", func(t *testing.T) {
		env := newEngineEnv()
		env.noPaymentsYet(invoiceID)
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, invoiceID, mock.Anything).
			Return([]finance.Transaction{{ID: uuid.New()}}, nil)

		state, err := env.engine.StateOf(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, StatePendingPaymentsCreated, state)
	})

	t.Run("payments created wins over pending", func(t *testing.T) {
		env := newEngineEnv()
		env.transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, invoiceID, mock.Anything).
			Return([]finance.Transaction{{ID: uuid.New()}}, nil)

		state, err := env.engine.StateOf(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, StatePaymentsCreditsCreated, state)
		env.transactions.AssertNotCalled(t, "GetPendingPaymentsByInvoiceID")
	})
}

func TestProcessApprovalCreates(t *testing.T) {
	env := newEngineEnv()
	s := newTwoFundScenario()
	s.arrange(env.testEnv)
	env.noPaymentsYet(s.inv.ID)

	env.summaries.On("CreateOrUpdateSummary", mock.Anything, finance.InvoiceTransactionSummary{
		InvoiceID:          s.inv.ID,
		PendingPayments:    2,
		PaymentsAndCredits: 2,
	}).Return(nil).Once()
	env.transactions.On("CreateTransaction", mock.Anything, mock.Anything).
		Return(nil, nil).Times(2)

	res, err := env.engine.ProcessApproval(context.Background(), s.inv, s.lines)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	for _, tx := range res.Transactions {
		assert.Equal(t, finance.TransactionTypePendingPayment, tx.Type)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)), "got %s", tx.Amount)
		assert.Equal(t, s.fy.ID, tx.FiscalYearID)
		assert.NotEqual(t, uuid.Nil, tx.ID)
	}
	require.NotNil(t, s.inv.FiscalYearID, "approval pins the invoice to the run's fiscal year")
	assert.Equal(t, s.fy.ID, *s.inv.FiscalYearID)

	env.transactions.AssertExpectations(t)
	env.summaries.AssertExpectations(t)
}

func TestProcessApprovalRejectedAfterPayment(t *testing.T) {
	env := newEngineEnv()
	s := newTwoFundScenario()
	env.transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
		Return([]finance.Transaction{{ID: uuid.New(), Type: finance.TransactionTypePayment}}, nil)

	_, err := env.engine.ProcessApproval(context.Background(), s.inv, s.lines)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	env.funds.AssertNotCalled(t, "GetFundsByIDs")
}

func TestProcessApprovalBudgetExceeded(t *testing.T) {
	env := newEngineEnv()
	s := newTwoFundScenario()
	// fund A can take 40 at most; its 50 share must be rejected
	allowable := decimal.NewFromInt(100)
	s.budgetA.Allocated = decimal.NewFromInt(40)
	s.budgetA.Available = decimal.NewFromInt(40)
	s.budgetA.AllowableExpenditure = &allowable
	s.arrange(env.testEnv)
	env.noPaymentsYet(s.inv.ID)

	_, err := env.engine.ProcessApproval(context.Background(), s.inv, s.lines)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrFundCannotBePaid))
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "HIST", de.Parameters[0].Value)
	env.transactions.AssertNotCalled(t, "CreateTransaction")
	env.summaries.AssertNotCalled(t, "CreateOrUpdateSummary")
}

func TestProcessApprovalReconciles(t *testing.T) {
	env := newEngineEnv()
	s := newTwoFundScenario()
	lineID := s.lines[0].ID

	// a previous approval left a pending payment for fund A only
	existing := finance.Transaction{
		ID:                  uuid.New(),
		Type:                finance.TransactionTypePendingPayment,
		Amount:              decimal.NewFromInt(30),
		FiscalYearID:        s.fy.ID,
		FromFundID:          &s.fundA.ID,
		SourceInvoiceID:     s.inv.ID,
		SourceInvoiceLineID: &lineID,
	}

	env.funds.On("GetFundsByIDs", mock.Anything, mock.Anything).
		Return([]finance.Fund{s.fundA, s.fundB}, nil)
	env.ledgers.On("GetRestrictedLedgerIDs", mock.Anything, mock.Anything).
		Return([]uuid.UUID{s.ledgerID}, nil)
	env.budgets.On("GetActiveBudgetsByFundIDs", mock.Anything, mock.Anything).
		Return([]finance.Budget{s.budgetA, s.budgetB}, nil)
	env.fiscalYears.On("GetFiscalYearByID", mock.Anything, s.fy.ID).
		Return(&s.fy, nil)
	env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
		Return([]finance.Transaction{existing}, nil)
	env.noPaymentsYet(s.inv.ID)
	env.summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil).Once()

	// fund A's row matches and is updated with its id preserved
	env.transactions.On("UpdateTransaction", mock.Anything, mock.MatchedBy(func(tx *finance.Transaction) bool {
		return tx.ID == existing.ID && tx.Amount.Equal(decimal.NewFromInt(50))
	})).Return(nil).Once()
	// fund B's row has no match and is created
	env.transactions.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tx *finance.Transaction) bool {
		return tx.FromFundID != nil && *tx.FromFundID == s.fundB.ID
	})).Return(nil, nil).Once()

	res, err := env.engine.ProcessApproval(context.Background(), s.inv, s.lines)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, existing.ID, res.Transactions[0].ID)
	env.transactions.AssertExpectations(t)
}

func TestProcessPayment(t *testing.T) {
	t.Run("rejected before approval", func(t *testing.T) {
		env := newEngineEnv()
		s := newTwoFundScenario()
		env.noPaymentsYet(s.inv.ID)
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
			Return([]finance.Transaction{}, nil)

		_, err := env.engine.ProcessPayment(context.Background(), s.inv, s.lines)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("creates payments after approval", func(t *testing.T) {
		env := newEngineEnv()
		s := newTwoFundScenario()
		lineID := s.lines[0].ID
		pending := finance.Transaction{
			ID:                  uuid.New(),
			Type:                finance.TransactionTypePendingPayment,
			Amount:              decimal.NewFromInt(50),
			FiscalYearID:        s.fy.ID,
			FromFundID:          &s.fundA.ID,
			SourceInvoiceID:     s.inv.ID,
			SourceInvoiceLineID: &lineID,
		}

		s.arrange(env.testEnv)
		env.transactions.ExpectedCalls = nil
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
			Return([]finance.Transaction{pending}, nil)
		env.noPaymentsYet(s.inv.ID)
		env.summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil).Once()
		env.transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Return(nil, nil).Times(2)

		res, err := env.engine.ProcessPayment(context.Background(), s.inv, s.lines)
		require.NoError(t, err)
		require.Len(t, res.Transactions, 2)
		for _, tx := range res.Transactions {
			assert.Equal(t, finance.TransactionTypePayment, tx.Type)
			assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))
		}
		env.transactions.AssertExpectations(t)
	})
}

func TestProcessFiscalYearChange(t *testing.T) {
	t.Run("requires pending payments", func(t *testing.T) {
		env := newEngineEnv()
		s := newTwoFundScenario()
		env.noPaymentsYet(s.inv.ID)
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
			Return([]finance.Transaction{}, nil)

		_, err := env.engine.ProcessFiscalYearChange(context.Background(), s.inv, s.lines)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("relinks encumbrances into the new fiscal year", func(t *testing.T) {
		env := newEngineEnv()
		s := newTwoFundScenario()
		poLine := uuid.New()
		oldEncA, oldEncB := uuid.New(), uuid.New()
		s.lines[0].PoLineID = &poLine
		s.lines[0].FundDistributions[0].EncumbranceID = &oldEncA
		s.lines[0].FundDistributions[1].EncumbranceID = &oldEncB
		lineID := s.lines[0].ID

		pendings := []finance.Transaction{
			{
				ID: uuid.New(), Type: finance.TransactionTypePendingPayment,
				Amount: decimal.NewFromInt(50), FiscalYearID: s.fy.ID,
				FromFundID: &s.fundA.ID, SourceInvoiceID: s.inv.ID, SourceInvoiceLineID: &lineID,
			},
			{
				ID: uuid.New(), Type: finance.TransactionTypePendingPayment,
				Amount: decimal.NewFromInt(50), FiscalYearID: s.fy.ID,
				FromFundID: &s.fundB.ID, SourceInvoiceID: s.inv.ID, SourceInvoiceLineID: &lineID,
			},
		}

		s.arrange(env.testEnv)
		env.transactions.ExpectedCalls = nil
		env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, s.inv.ID, mock.Anything).
			Return(pendings, nil)
		env.noPaymentsYet(s.inv.ID)

		newEncA := uuid.New()
		env.transactions.On("GetEncumbrancesByPoLineIDs", mock.Anything, s.fy.ID, []uuid.UUID{poLine}).
			Return([]finance.Transaction{{
				ID:          newEncA,
				Type:        finance.TransactionTypeEncumbrance,
				FromFundID:  &s.fundA.ID,
				Encumbrance: &finance.EncumbranceDetail{SourcePoLineID: poLine},
			}}, nil)
		env.summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil).Once()
		env.transactions.On("UpdateTransaction", mock.Anything, mock.Anything).Return(nil).Times(2)

		res, err := env.engine.ProcessFiscalYearChange(context.Background(), s.inv, s.lines)
		require.NoError(t, err)
		require.Len(t, res.Transactions, 2)

		// fund A's reference repointed, fund B's cleared; both written
		// back onto the line for persistence
		require.NotNil(t, s.lines[0].FundDistributions[0].EncumbranceID)
		assert.Equal(t, newEncA, *s.lines[0].FundDistributions[0].EncumbranceID)
		assert.Nil(t, s.lines[0].FundDistributions[1].EncumbranceID)

		// the updated pending payments carry the new linkage
		require.NotNil(t, res.Transactions[0].AwaitingPayment)
		assert.Equal(t, newEncA, res.Transactions[0].AwaitingPayment.EncumbranceID)
		assert.Nil(t, res.Transactions[1].AwaitingPayment)

		env.transactions.AssertExpectations(t)
	})
}

func TestProcessApprovalEmptyInvoice(t *testing.T) {
	env := newEngineEnv()
	inv := &invoice.Invoice{ID: uuid.New()}
	env.noPaymentsYet(inv.ID)
	env.transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, inv.ID, mock.Anything).
		Return([]finance.Transaction{}, nil)

	res, err := env.engine.ProcessApproval(context.Background(), inv, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Holders)
	assert.Empty(t, res.Transactions)
	env.funds.AssertNotCalled(t, "GetFundsByIDs")
}
