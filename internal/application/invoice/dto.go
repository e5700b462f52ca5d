package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/application/workflow"
	"github.com/erp/acquisitions/internal/domain/invoice"
)

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	VendorID        uuid.UUID                `json:"vendor_id" binding:"required"`
	VendorInvoiceNo string                   `json:"vendor_invoice_no" binding:"required,min=1,max=100"`
	Currency        string                   `json:"currency" binding:"required,currency"`
	InvoiceDate     time.Time                `json:"invoice_date" binding:"required"`
	Total           decimal.Decimal          `json:"total" binding:"required"`
	Lines           []CreateInvoiceLineInput `json:"lines" binding:"required,min=1"`
	Adjustments     []AdjustmentInput        `json:"adjustments"`
}

// CreateInvoiceLineInput represents a line in the create invoice request
type CreateInvoiceLineInput struct {
	Description       string                  `json:"description" binding:"required,min=1,max=500"`
	SubTotal          decimal.Decimal         `json:"sub_total" binding:"required"`
	Total             decimal.Decimal         `json:"total" binding:"required"`
	PoLineID          *uuid.UUID              `json:"po_line_id"`
	FundDistributions []FundDistributionInput `json:"fund_distributions" binding:"required,min=1"`
}

// FundDistributionInput represents one fund charged by a line or adjustment
type FundDistributionInput struct {
	FundID         uuid.UUID       `json:"fund_id" binding:"required"`
	Code           string          `json:"code"`
	ExpenseClassID *uuid.UUID      `json:"expense_class_id"`
	Type           string          `json:"distribution_type" binding:"required,oneof=PERCENTAGE AMOUNT"`
	Value          decimal.Decimal `json:"value" binding:"required"`
	EncumbranceID  *uuid.UUID      `json:"encumbrance_id"`
}

// AdjustmentInput represents an invoice-level adjustment
type AdjustmentInput struct {
	Description       string                  `json:"description" binding:"required,min=1,max=500"`
	Type              string                  `json:"type" binding:"required,oneof=PERCENTAGE AMOUNT"`
	Prorate           string                  `json:"prorate" binding:"required,oneof=BY_LINE BY_AMOUNT BY_QUANTITY NOT_PRORATED"`
	RelationToTotal   string                  `json:"relation_to_total" binding:"required,oneof=IN_ADDITION_TO INCLUDED_IN SEPARATE_FROM"`
	Value             decimal.Decimal         `json:"value" binding:"required"`
	FundDistributions []FundDistributionInput `json:"fund_distributions"`
}

// ApproveInvoiceRequest represents a request to approve an invoice.
// FiscalYearID is only meaningful for re-approval of an APPROVED invoice
// after a fiscal year roll; it signals the fiscal-year-change path.
type ApproveInvoiceRequest struct {
	FiscalYearID *uuid.UUID `json:"fiscal_year_id"`
}

// ListInvoicesRequest represents filter options for listing invoices
type ListInvoicesRequest struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Status   string
	VendorID *uuid.UUID
}

// ==================== Responses ====================

// FundDistributionResponse represents a fund distribution in responses
type FundDistributionResponse struct {
	FundID         uuid.UUID       `json:"fund_id"`
	Code           string          `json:"code"`
	ExpenseClassID *uuid.UUID      `json:"expense_class_id,omitempty"`
	Type           string          `json:"distribution_type"`
	Value          decimal.Decimal `json:"value"`
	EncumbranceID  *uuid.UUID      `json:"encumbrance_id,omitempty"`
}

// InvoiceLineResponse represents an invoice line in responses
type InvoiceLineResponse struct {
	ID                uuid.UUID                  `json:"id"`
	InvoiceID         uuid.UUID                  `json:"invoice_id"`
	Description       string                     `json:"description"`
	SubTotal          decimal.Decimal            `json:"sub_total"`
	Total             decimal.Decimal            `json:"total"`
	PoLineID          *uuid.UUID                 `json:"po_line_id,omitempty"`
	FundDistributions []FundDistributionResponse `json:"fund_distributions"`
}

// InvoiceResponse represents an invoice in responses
type InvoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	VendorID        uuid.UUID             `json:"vendor_id"`
	VendorInvoiceNo string                `json:"vendor_invoice_no"`
	Status          string                `json:"status"`
	Currency        string                `json:"currency"`
	InvoiceDate     time.Time             `json:"invoice_date"`
	Total           decimal.Decimal       `json:"total"`
	FiscalYearID    *uuid.UUID            `json:"fiscal_year_id,omitempty"`
	ExchangeRate    *decimal.Decimal      `json:"exchange_rate,omitempty"`
	Adjustments     []invoice.Adjustment  `json:"adjustments,omitempty"`
	Lines           []InvoiceLineResponse `json:"lines,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// WorkflowResponse reports the outcome of an approve or pay operation
type WorkflowResponse struct {
	InvoiceID      uuid.UUID        `json:"invoice_id"`
	Status         string           `json:"status"`
	FiscalYearID   *uuid.UUID       `json:"fiscal_year_id,omitempty"`
	ExchangeRate   *decimal.Decimal `json:"exchange_rate,omitempty"`
	TransactionIDs []uuid.UUID      `json:"transaction_ids"`
}

// toInvoiceResponse converts a domain invoice and its lines to a response
func toInvoiceResponse(inv *invoice.Invoice, lines []invoice.InvoiceLine) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:              inv.ID,
		VendorID:        inv.VendorID,
		VendorInvoiceNo: inv.VendorInvoiceNo,
		Status:          inv.Status.String(),
		Currency:        string(inv.Currency),
		InvoiceDate:     inv.InvoiceDate,
		Total:           inv.Total,
		FiscalYearID:    inv.FiscalYearID,
		ExchangeRate:    inv.ExchangeRate,
		Adjustments:     inv.Adjustments,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.Version,
	}
	for i := range lines {
		resp.Lines = append(resp.Lines, toLineResponse(&lines[i]))
	}
	return resp
}

func toLineResponse(line *invoice.InvoiceLine) InvoiceLineResponse {
	resp := InvoiceLineResponse{
		ID:          line.ID,
		InvoiceID:   line.InvoiceID,
		Description: line.Description,
		SubTotal:    line.SubTotal,
		Total:       line.Total,
		PoLineID:    line.PoLineID,
	}
	for _, d := range line.FundDistributions {
		resp.FundDistributions = append(resp.FundDistributions, FundDistributionResponse{
			FundID:         d.FundID,
			Code:           d.Code,
			ExpenseClassID: d.ExpenseClassID,
			Type:           string(d.Type),
			Value:          d.Value,
			EncumbranceID:  d.EncumbranceID,
		})
	}
	return resp
}

// toWorkflowResponse converts an engine result to a response
func toWorkflowResponse(inv *invoice.Invoice, res *workflow.Result) *WorkflowResponse {
	resp := &WorkflowResponse{
		InvoiceID:      inv.ID,
		Status:         inv.Status.String(),
		FiscalYearID:   inv.FiscalYearID,
		ExchangeRate:   inv.ExchangeRate,
		TransactionIDs: []uuid.UUID{},
	}
	if res != nil {
		for _, tx := range res.Transactions {
			resp.TransactionIDs = append(resp.TransactionIDs, tx.ID)
		}
	}
	return resp
}
