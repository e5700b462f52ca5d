package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

func TestBuildPaymentOrCredit(t *testing.T) {
	t.Run("positive amount becomes a payment", func(t *testing.T) {
		rows := withNewPaymentsCredits(commitRows(100))
		tx := rows[0].NewTransaction

		assert.Equal(t, finance.TransactionTypePayment, tx.Type)
		require.NotNil(t, tx.FromFundID)
		assert.Nil(t, tx.ToFundID)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("negative amount flips to a credit", func(t *testing.T) {
		rows := withNewPaymentsCredits(commitRows(-100))
		tx := rows[0].NewTransaction

		assert.Equal(t, finance.TransactionTypeCredit, tx.Type)
		assert.Nil(t, tx.FromFundID)
		require.NotNil(t, tx.ToFundID)
		assert.Equal(t, rows[0].FundDistribution.FundID, *tx.ToFundID)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(100)), "stored amount is absolute")
	})
}

func TestPaymentCreditCreate(t *testing.T) {
	t.Run("skips when payments already exist", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPaymentCreditService(transactions, summaries, zap.NewNop())

		rows := withNewPaymentsCredits(commitRows(100))
		transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, rows[0].Invoice.ID, 1).
			Return([]finance.Transaction{{ID: uuid.New(), Type: finance.TransactionTypePayment}}, nil)

		out, err := svc.Create(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, rows, out)
		transactions.AssertNotCalled(t, "CreateTransaction")
		summaries.AssertNotCalled(t, "CreateOrUpdateSummary")
	})

	t.Run("creates strictly in row order after the summary", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPaymentCreditService(transactions, summaries, zap.NewNop())

		rows := withNewPaymentsCredits(commitRows(100, -40, 250))
		invoiceID := rows[0].Invoice.ID

		var events []string
		transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, invoiceID, 1).
			Return([]finance.Transaction{}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, finance.InvoiceTransactionSummary{
			InvoiceID:          invoiceID,
			PendingPayments:    3,
			PaymentsAndCredits: 3,
		}).Run(func(mock.Arguments) {
			events = append(events, "summary")
		}).Return(nil).Once()
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				tx := args.Get(1).(*finance.Transaction)
				events = append(events, string(tx.Type))
			}).Return(nil, nil).Times(3)

		out, err := svc.Create(context.Background(), rows)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"summary", "PAYMENT", "CREDIT", "PAYMENT"}, events)
		transactions.AssertExpectations(t)
	})

	t.Run("stops on first failure without rollback", func(t *testing.T) {
		transactions := &MockTransactionService{}
		summaries := &MockSummaryService{}
		svc := NewPaymentCreditService(transactions, summaries, zap.NewNop())

		rows := withNewPaymentsCredits(commitRows(100, 200))
		transactions.On("GetPaymentsAndCreditsByInvoiceID", mock.Anything, mock.Anything, 1).
			Return([]finance.Transaction{}, nil)
		summaries.On("CreateOrUpdateSummary", mock.Anything, mock.Anything).Return(nil)
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Return(nil, nil).Once()
		transactions.On("CreateTransaction", mock.Anything, mock.Anything).
			Return(nil, assert.AnError).Once()

		_, err := svc.Create(context.Background(), rows)
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrTransactionFailure.Code, de.Code)
		assert.Equal(t, rows[1].FundDistribution.FundID.String(), de.Parameters[0].Value)
		transactions.AssertNumberOfCalls(t, "CreateTransaction", 2)
	})
}
