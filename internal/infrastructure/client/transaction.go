package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// TransactionClient reads and writes ledger transactions. The store
// partitions transactions by type into separate endpoints; the credit and
// encumbrance endpoints are create/read only.
type TransactionClient struct {
	store *RecordStore
}

// NewTransactionClient creates a new TransactionClient
func NewTransactionClient(store *RecordStore) *TransactionClient {
	return &TransactionClient{store: store}
}

type transactionCollection struct {
	Transactions []finance.Transaction `json:"transactions"`
	TotalRecords int                   `json:"total_records"`
}

// endpointFor maps a transaction type to its endpoint path
func endpointFor(txType finance.TransactionType) (string, error) {
	switch txType {
	case finance.TransactionTypePendingPayment:
		return "/finance/pending-payments", nil
	case finance.TransactionTypePayment:
		return "/finance/payments", nil
	case finance.TransactionTypeCredit:
		return "/finance/credits", nil
	case finance.TransactionTypeEncumbrance:
		return "/finance/encumbrances", nil
	}
	return "", fmt.Errorf("finance client: unknown transaction type %q", txType)
}

// GetPendingPaymentsByInvoiceID returns the invoice's pending payments
func (c *TransactionClient) GetPendingPaymentsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]finance.Transaction, error) {
	query := "source_invoice_id==" + invoiceID.String()
	var out transactionCollection
	if err := c.store.getCollection(ctx, "/finance/pending-payments", query, limit, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// GetPaymentsAndCreditsByInvoiceID returns the invoice's payments and
// credits together, via the store's cross-type transaction view
func (c *TransactionClient) GetPaymentsAndCreditsByInvoiceID(ctx context.Context, invoiceID uuid.UUID, limit int) ([]finance.Transaction, error) {
	query := andFilter(
		"source_invoice_id=="+invoiceID.String(),
		"transaction_type==(PAYMENT or CREDIT)",
	)
	var out transactionCollection
	if err := c.store.getCollection(ctx, "/finance/transactions", query, limit, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// GetEncumbrancesByPoLineIDs returns the encumbrances of the given
// purchase-order lines in one fiscal year
func (c *TransactionClient) GetEncumbrancesByPoLineIDs(ctx context.Context, fiscalYearID uuid.UUID, poLineIDs []uuid.UUID) ([]finance.Transaction, error) {
	if len(poLineIDs) == 0 {
		return nil, nil
	}
	query := andFilter(
		"fiscal_year_id=="+fiscalYearID.String(),
		idsFilter("encumbrance.source_po_line_id", poLineIDs),
	)
	var out transactionCollection
	if err := c.store.getCollection(ctx, "/finance/encumbrances", query, 0, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// CreateTransaction writes one transaction to its type's endpoint and
// returns the stored representation (with the assigned id)
func (c *TransactionClient) CreateTransaction(ctx context.Context, tx *finance.Transaction) (*finance.Transaction, error) {
	path, err := endpointFor(tx.Type)
	if err != nil {
		return nil, err
	}
	var created finance.Transaction
	if err := c.store.postJSON(ctx, path, tx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTransaction replaces one transaction. The credit and encumbrance
// endpoints cannot update; attempting it is an UNSUPPORTED_OPERATION.
func (c *TransactionClient) UpdateTransaction(ctx context.Context, tx *finance.Transaction) error {
	switch tx.Type {
	case finance.TransactionTypeCredit, finance.TransactionTypeEncumbrance:
		return shared.ErrUnsupportedOp.
			WithParam("transactionType", string(tx.Type)).
			WithParam("transactionId", tx.ID.String())
	}
	path, err := endpointFor(tx.Type)
	if err != nil {
		return err
	}
	return c.store.putJSON(ctx, path+"/"+tx.ID.String(), tx)
}
