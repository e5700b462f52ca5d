package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// PendingPaymentService creates and reconciles the provisional
// PENDING_PAYMENT transactions written at invoice approval.
type PendingPaymentService struct {
	transactions finance.TransactionService
	summaries    finance.TransactionSummaryService
	logger       *zap.Logger
}

// NewPendingPaymentService creates a new PendingPaymentService
func NewPendingPaymentService(
	transactions finance.TransactionService,
	summaries finance.TransactionSummaryService,
	logger *zap.Logger,
) *PendingPaymentService {
	return &PendingPaymentService{
		transactions: transactions,
		summaries:    summaries,
		logger:       logger,
	}
}

// Create writes one pending payment per row. The operation is idempotent:
// if the invoice already has pending payments the whole step is skipped
// and the row set is returned unchanged. The transaction-count summary is
// written before any individual transaction because the external ledger
// validates the batch against the declared count. Individual creates are
// fanned out concurrently and joined; a failure fails the operation but
// transactions already committed for sibling rows are not rolled back.
func (s *PendingPaymentService) Create(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	invoiceID := rows[0].Invoice.ID

	existing, err := s.transactions.GetPendingPaymentsByInvoiceID(ctx, invoiceID, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		s.logger.Info("pending payments already exist, skipping creation",
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
	copy(out, rows)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := s.transactions.CreateTransaction(ctx, out[i].NewTransaction)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = wrapTransactionFailure(err, out[i])
				}
				return
			}
			out[i].NewTransaction = created
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	s.logger.Info("created pending payments",
		zap.String("invoice_id", invoiceID.String()),
		zap.Int("count", len(out)))
	return out, nil
}

// Update reconciles pending payments after the invoice changed while still
// pre-payment. Each newly computed transaction is matched to an existing
// one by (fromFundId, sourceInvoiceId, sourceInvoiceLineId, fiscalYearId);
// the match's amount is overwritten in place with its id preserved, so
// persistence becomes an update rather than an insert. Existing pending
// payments with no matching row are left untouched.
func (s *PendingPaymentService) Update(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	invoiceID := rows[0].Invoice.ID

	existing, err := s.transactions.GetPendingPaymentsByInvoiceID(ctx, invoiceID, len(rows))
	if err != nil {
		return nil, err
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
		if match := findMatchingPendingPayment(existing, row.NewTransaction); match != nil {
			match.Amount = row.NewTransaction.Amount
			match.AwaitingPayment = row.NewTransaction.AwaitingPayment
			row.NewTransaction = match
			if err := s.transactions.UpdateTransaction(ctx, match); err != nil {
				return nil, wrapTransactionFailure(err, row)
			}
		} else {
			created, err := s.transactions.CreateTransaction(ctx, row.NewTransaction)
			if err != nil {
				return nil, wrapTransactionFailure(err, row)
			}
			row.NewTransaction = created
		}
		out[i] = row
	}
	return out, nil
}

// findMatchingPendingPayment matches by fund, invoice, invoice line and
// fiscal year; nil when nothing matches.
func findMatchingPendingPayment(existing []finance.Transaction, computed *finance.Transaction) *finance.Transaction {
	for i := range existing {
		tx := &existing[i]
		if uuidPtrEqual(tx.FromFundID, computed.FromFundID) &&
			tx.SourceInvoiceID == computed.SourceInvoiceID &&
			uuidPtrEqual(tx.SourceInvoiceLineID, computed.SourceInvoiceLineID) &&
			tx.FiscalYearID == computed.FiscalYearID {
			copied := *tx
			return &copied
		}
	}
	return nil
}

// wrapTransactionFailure wraps an upstream transaction failure with the
// affected fund and invoice line context.
func wrapTransactionFailure(err error, row TransactionHolder) error {
	if de, ok := err.(*shared.DomainError); ok && de.Code == shared.ErrUnsupportedOp.Code {
		return err
	}
	wrapped := shared.ErrTransactionFailure.
		WithParam("fundId", row.FundDistribution.FundID.String())
	if lineID := row.InvoiceLineID(); lineID != nil {
		wrapped = wrapped.WithParam("invoiceLineId", lineID.String())
	}
	wrapped = wrapped.WithParam("cause", err.Error())
	return wrapped
}
