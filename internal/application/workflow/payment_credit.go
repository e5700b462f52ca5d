package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
)

// PaymentCreditService creates the final PAYMENT and CREDIT transactions
// when an invoice is paid.
type PaymentCreditService struct {
	transactions finance.TransactionService
	summaries    finance.TransactionSummaryService
	logger       *zap.Logger
}

// NewPaymentCreditService creates a new PaymentCreditService
func NewPaymentCreditService(
	transactions finance.TransactionService,
	summaries finance.TransactionSummaryService,
	logger *zap.Logger,
) *PaymentCreditService {
	return &PaymentCreditService{
		transactions: transactions,
		summaries:    summaries,
		logger:       logger,
	}
}

// Create writes one payment or credit per row. Idempotent: existing
// payments/credits for the invoice skip the step. Unlike pending-payment
// creation, creates run strictly one at a time so the ledger's audit order
// matches the row order. A failure stops the sequence; transactions
// already committed are not rolled back.
func (s *PaymentCreditService) Create(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	invoiceID := rows[0].Invoice.ID

	existing, err := s.transactions.GetPaymentsAndCreditsByInvoiceID(ctx, invoiceID, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		s.logger.Info("payments and credits already exist, skipping creation",
			zap.String("invoice_id", invoiceID.String()))
		return rows, nil
	}

	if err := s.summaries.CreateOrUpdateSummary(ctx, finance.InvoiceTransactionSummary{
		InvoiceID:          invoiceID,
		PendingPayments:    len(rows),
		PaymentsAndCredits: len(rows),
	}); err != nil {
		return nil, err
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		created, err := s.transactions.CreateTransaction(ctx, row.NewTransaction)
		if err != nil {
			return nil, wrapTransactionFailure(err, row)
		}
		row.NewTransaction = created
		out[i] = row
	}
	s.logger.Info("created payments and credits",
		zap.String("invoice_id", invoiceID.String()),
		zap.Int("count", len(out)))
	return out, nil
}
