package workflow

import (
	"context"
	"sync"
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
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// commitRows builds fully enriched rows with pending payments attached:
// one USD invoice, one line per amount, each line distributing 100% to its
// own fund.
func commitRows(amounts ...int64) []TransactionHolder {
	inv := &invoice.Invoice{ID: uuid.New(), Currency: valueobject.USD}
	fy := &finance.FiscalYear{ID: uuid.New(), Code: "FY2026", Currency: valueobject.USD}

	lines := make([]invoice.InvoiceLine, len(amounts))
	for i, amount := range amounts {
		lines[i] = invoice.InvoiceLine{
			ID:        uuid.New(),
			InvoiceID: inv.ID,
			Total:     decimal.NewFromInt(amount),
			FundDistributions: []invoice.FundDistribution{
				{FundID: uuid.New(), Type: invoice.DistributionTypePercentage, Value: decimal.NewFromInt(100)},
			},
		}
	}

	rows := BuildHolders(inv, lines)
	for i := range rows {
		rows[i].FiscalYear = fy
		rows[i].Conversion = finance.IdentityConversion(valueobject.USD)
	}
	return withNewPendingPayments(rows)
}

func TestPendingPaymentCreate(t *testing.T) {
	t.Run("skips when pending payments already exist", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, rows[0].Invoice.ID, 1).
			Return([]finance.Transaction{{ID: uuid.New(), Type: finance.TransactionTypePendingPayment}}, nil)

		out, err := svc.Create(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, rows, out)
		transactions.AssertNotCalled(t, "CreateTransaction")
		summaries.AssertNotCalled(t, "CreateOrUpdateSummary")
	})

	t.Run("writes summary before any transaction", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100, 250, 80)
		invoiceID := rows[0].Invoice.ID

		var (
			mu     sync.Mutex
			events []string
		)
		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, invoiceID, 1).
			Return([]finance.Transaction{}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, finance.InvoiceTransactionSummary{
			InvoiceID:          invoiceID,
			PendingPayments:    3,
			PaymentsAndCredits: 3,
		}).Run(func(mock.Arguments) {
			mu.Lock()
			events = append(events, "summary")
			mu.Unlock()
		}).Return(nil).Once()
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				mu.Lock()
				events = append(events, "create")
				mu.Unlock()
			}).Return(nil, nil).Times(3)

		out, err := svc.Create(context.Background(), rows)
		require.NoError(t, err)
		require.Len(t, out, 3)

		require.Len(t, events, 4)
		assert.Equal(t, "summary", events[0], "summary precedes every create")
		for _, row := range out {
			assert.NotEqual(t, uuid.Nil, row.NewTransaction.ID, "created id flows back onto the row")
		}
		transactions.AssertExpectations(t)
		summaries.AssertExpectations(t)
	})

	t.Run("wraps a create failure with fund context", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, mock.Anything, 1).
			Return([]finance.Transaction{}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Return(nil, shared.ErrNotFound.WithParam("budgetId", uuid.NewString()))

		_, err := svc.Create(context.Background(), rows)
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrTransactionFailure.Code, de.Code)
		assert.Equal(t, "fundId", de.Parameters[0].Key)
		assert.Equal(t, rows[0].FundDistribution.FundID.String(), de.Parameters[0].Value)
	})

	t.Run("unsupported operation passes through unwrapped", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, mock.Anything, 1).
			Return([]finance.Transaction{}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Return(nil, shared.ErrUnsupportedOp)

		_, err := svc.Create(context.Background(), rows)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrUnsupportedOp.Code, de.Code)
		assert.Empty(t, de.Parameters)
	})
}

func TestPendingPaymentUpdate(t *testing.T) {
	t.Run("matched transaction updated in place with id preserved", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		computed := rows[0].NewTransaction
		existingID := uuid.New()
		existing := finance.Transaction{
			ID:                  existingID,
			Type:                finance.TransactionTypePendingPayment,
			Amount:              decimal.NewFromInt(75),
			Currency:            valueobject.USD,
			FiscalYearID:        computed.FiscalYearID,
			FromFundID:          computed.FromFundID,
			SourceInvoiceID:     computed.SourceInvoiceID,
			SourceInvoiceLineID: computed.SourceInvoiceLineID,
		}

		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, rows[0].Invoice.ID, 1).
			Return([]finance.Transaction{existing}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("UpdateTransaction", mock.Anything, mock.MatchedBy(func(tx *finance.Transaction) bool {
			return tx.ID == existingID && tx.Amount.Equal(decimal.NewFromInt(100))
		})).Return(nil).Once()

		out, err := svc.Update(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, existingID, out[0].NewTransaction.ID)
		transactions.AssertNotCalled(t, "CreateTransaction")
		transactions.AssertExpectations(t)
	})

	t.Run("unmatched row creates, orphaned existing left untouched", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		// existing pending payment against some other fund: an orphan
		orphanFund := uuid.New()
		orphan := finance.Transaction{
			ID:              uuid.New(),
			Type:            finance.TransactionTypePendingPayment,
			Amount:          decimal.NewFromInt(33),
			FiscalYearID:    rows[0].FiscalYear.ID,
			FromFundID:      &orphanFund,
			SourceInvoiceID: rows[0].Invoice.ID,
		}

		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, rows[0].Invoice.ID, 1).
			Return([]finance.Transaction{orphan}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil, nil).Once()

		out, err := svc.Update(context.Background(), rows)
		require.NoError(t, err)
		require.Len(t, out, 1)
		transactions.AssertNotCalled(t, "UpdateTransaction")
		transactions.AssertExpectations(t)
	})

	t.Run("mismatched fiscal year is not a match", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPendingPaymentService(transactions, summaries, zap.NewNop())

		rows := commitRows(100)
		computed := rows[0].NewTransaction
		stale := finance.Transaction{
			ID:                  uuid.New(),
			Type:                finance.TransactionTypePendingPayment,
			FiscalYearID:        uuid.New(), // previous fiscal year
			FromFundID:          computed.FromFundID,
			SourceInvoiceID:     computed.SourceInvoiceID,
			SourceInvoiceLineID: computed.SourceInvoiceLineID,
		}

		transactions.On("GetPendingPaymentsByInvoiceID", mock.Anything, mock.Anything, 1).
			Return([]finance.Transaction{stale}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil, nil).Once()

		_, err := svc.Update(context.Background(), rows)
		require.NoError(t, err)
		transactions.AssertNotCalled(t, "UpdateTransaction")
	})
}

func TestFindMatchingPendingPaymentReturnsCopy(t *testing.T) {
	fundID := uuid.New()
	invoiceID := uuid.New()
	fyID := uuid.New()
	existing := []finance.Transaction{{
		ID:              uuid.New(),
		Amount:          decimal.NewFromInt(10),
		FiscalYearID:    fyID,
		FromFundID:      &fundID,
		SourceInvoiceID: invoiceID,
	}}
	computed := &finance.Transaction{
		FiscalYearID:    fyID,
		FromFundID:      &fundID,
		SourceInvoiceID: invoiceID,
	}

	match := findMatchingPendingPayment(existing, computed)
	require.NotNil(t, match)
	match.Amount = decimal.NewFromInt(999)
	assert.True(t, existing[0].Amount.Equal(decimal.NewFromInt(10)), "the original slice is untouched")
}
