package client

import (
	"context"
	"errors"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// SummaryClient maintains the per-invoice transaction-count summaries the
// ledger validates batches against.
type SummaryClient struct {
	store *RecordStore
}

// NewSummaryClient creates a new SummaryClient
func NewSummaryClient(store *RecordStore) *SummaryClient {
	return &SummaryClient{store: store}
}

// CreateOrUpdateSummary writes the summary, falling back to an update when
// a summary already exists for the invoice.
func (c *SummaryClient) CreateOrUpdateSummary(ctx context.Context, summary finance.InvoiceTransactionSummary) error {
	err := c.store.postJSON(ctx, "/finance/invoice-transaction-summaries", summary, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return err
	}
	return c.store.putJSON(ctx, "/finance/invoice-transaction-summaries/"+summary.InvoiceID.String(), summary)
}
