package invoice

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/shared"
)

// Repository provides access to stored invoices
type Repository interface {
	// FindByID finds an invoice by ID. Lines are loaded separately via FindLines.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByVendorInvoiceNo finds an invoice by the vendor's own number
	FindByVendorInvoiceNo(ctx context.Context, vendorID uuid.UUID, vendorInvoiceNo string) (*Invoice, error)

	// FindAll finds all invoices matching the filter. Lines are not loaded.
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates a new invoice with its lines
	Save(ctx context.Context, inv *Invoice, lines []InvoiceLine) error

	// Update persists invoice changes with an optimistic version check
	Update(ctx context.Context, inv *Invoice) error

	// UpdateLines replaces the stored lines of an invoice
	UpdateLines(ctx context.Context, invoiceID uuid.UUID, lines []InvoiceLine) error

	// FindLines loads the lines of an invoice
	FindLines(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLine, error)

	// Delete removes an invoice and its lines
	Delete(ctx context.Context, id uuid.UUID) error
}
