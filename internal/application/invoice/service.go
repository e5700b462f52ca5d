package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/application/workflow"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// TransactionWorkflow is the slice of the workflow engine the invoice
// service drives.
type TransactionWorkflow interface {
	ProcessApproval(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error)
	ProcessFiscalYearChange(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error)
	ProcessPayment(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error)
}

// Service provides application-level invoice operations: CRUD against the
// local store plus the approve/pay/cancel workflow against the external
// finance services.
type Service struct {
	repo   invoice.Repository
	engine TransactionWorkflow
	logger *zap.Logger
}

// NewService creates a new invoice Service
func NewService(repo invoice.Repository, engine TransactionWorkflow, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// Create validates and stores a new invoice with its lines
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if _, err := valueobject.NewMoney(req.Total, currency); err != nil {
		return nil, shared.ErrInvalidInput.WithParam("currency", req.Currency)
	}

	if existing, err := s.repo.FindByVendorInvoiceNo(ctx, req.VendorID, req.VendorInvoiceNo); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists.
			WithParam("vendorInvoiceNo", req.VendorInvoiceNo).
			WithParam("invoiceId", existing.ID.String())
	}

	now := time.Now()
	inv := &invoice.Invoice{
		ID:              uuid.New(),
		VendorID:        req.VendorID,
		VendorInvoiceNo: req.VendorInvoiceNo,
		Status:          invoice.InvoiceStatusOpen,
		Currency:        currency,
		InvoiceDate:     req.InvoiceDate,
		Total:           req.Total,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	for _, adj := range req.Adjustments {
		inv.Adjustments = append(inv.Adjustments, invoice.Adjustment{
			ID:                uuid.New(),
			Description:       adj.Description,
			Type:              invoice.AdjustmentType(adj.Type),
			Prorate:           invoice.AdjustmentProrate(adj.Prorate),
			RelationToTotal:   invoice.AdjustmentRelation(adj.RelationToTotal),
			Value:             adj.Value,
			FundDistributions: toDomainDistributions(adj.FundDistributions),
		})
	}

	lines := make([]invoice.InvoiceLine, 0, len(req.Lines))
	for _, lineReq := range req.Lines {
		if err := validateDistributions(lineReq.FundDistributions, lineReq.Total); err != nil {
			return nil, err
		}
		lines = append(lines, invoice.InvoiceLine{
			ID:                uuid.New(),
			InvoiceID:         inv.ID,
			Description:       lineReq.Description,
			SubTotal:          lineReq.SubTotal,
			Total:             lineReq.Total,
			PoLineID:          lineReq.PoLineID,
			FundDistributions: toDomainDistributions(lineReq.FundDistributions),
		})
	}

	if err := s.repo.Save(ctx, inv, lines); err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("vendor_invoice_no", inv.VendorInvoiceNo),
		zap.Int("lines", len(lines)))

	return toInvoiceResponse(inv, lines), nil
}

// Get loads an invoice with its lines
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.FindLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, lines), nil
}

// List finds invoices matching the filter
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceResponse, int64, error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	filter.Search = req.Search
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.VendorID != nil {
		filter.Filters["vendor_id"] = req.VendorID.String()
	}

	invoices, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i], nil)
	}
	return responses, total, nil
}

// Delete removes an invoice that has not entered the approval workflow
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != invoice.InvoiceStatusOpen && inv.Status != invoice.InvoiceStatusReviewed {
		return shared.ErrInvalidState.
			WithParam("invoiceId", id.String()).
			WithParam("status", inv.Status.String())
	}
	return s.repo.Delete(ctx, id)
}

// Approve runs the approval workflow. For an OPEN or REVIEWED invoice it
// builds the pending payments and transitions the invoice to APPROVED.
// For an invoice that is already APPROVED and whose fiscal year has
// rolled, it runs the fiscal-year-change reconciliation instead.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, req ApproveInvoiceRequest) (*WorkflowResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.FindLines(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status == invoice.InvoiceStatusApproved {
		return s.reapproveForNewFiscalYear(ctx, inv, lines, req)
	}

	res, err := s.engine.ProcessApproval(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	if err := inv.Approve(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice approved",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("transactions", len(res.Transactions)))

	return toWorkflowResponse(inv, res), nil
}

// reapproveForNewFiscalYear handles the fiscal-year-change path: the
// invoice keeps its APPROVED status while encumbrance references are
// re-linked and the pending payments are reconciled into the new year.
func (s *Service) reapproveForNewFiscalYear(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine, req ApproveInvoiceRequest) (*WorkflowResponse, error) {
	if req.FiscalYearID == nil || (inv.FiscalYearID != nil && *req.FiscalYearID == *inv.FiscalYearID) {
		return nil, shared.ErrInvalidState.
			WithParam("invoiceId", inv.ID.String()).
			WithParam("status", inv.Status.String())
	}

	res, err := s.engine.ProcessFiscalYearChange(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	// Relink rewrites encumbrance references on the lines; persist them
	// together with the re-pinned fiscal year.
	if err := s.repo.UpdateLines(ctx, inv.ID, lines); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice fiscal year reconciled",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("transactions", len(res.Transactions)))

	return toWorkflowResponse(inv, res), nil
}

// Pay runs the payment workflow and transitions the invoice to PAID
func (s *Service) Pay(ctx context.Context, id uuid.UUID) (*WorkflowResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.FindLines(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.ProcessPayment(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	if err := inv.Pay(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice paid",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("transactions", len(res.Transactions)))

	return toWorkflowResponse(inv, res), nil
}

// Cancel transitions the invoice to CANCELLED. Transactions already
// committed to the ledger are voided upstream by the transaction store;
// this only flips the local status.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled", zap.String("invoice_id", inv.ID.String()))

	return toInvoiceResponse(inv, nil), nil
}

func toDomainDistributions(inputs []FundDistributionInput) []invoice.FundDistribution {
	dists := make([]invoice.FundDistribution, 0, len(inputs))
	for _, d := range inputs {
		dists = append(dists, invoice.FundDistribution{
			FundID:         d.FundID,
			Code:           d.Code,
			ExpenseClassID: d.ExpenseClassID,
			Type:           invoice.DistributionType(d.Type),
			Value:          d.Value,
			EncumbranceID:  d.EncumbranceID,
		})
	}
	return dists
}

// validateDistributions checks that percentage distributions of a line sum
// to 100 and amount distributions do not exceed the line total.
func validateDistributions(inputs []FundDistributionInput, total decimal.Decimal) error {
	percentSum := decimal.Zero
	amountSum := decimal.Zero
	hasPercentage := false

	for _, d := range inputs {
		if !invoice.DistributionType(d.Type).IsValid() {
			return shared.ErrInvalidInput.WithParam("distributionType", d.Type)
		}
		switch invoice.DistributionType(d.Type) {
		case invoice.DistributionTypePercentage:
			hasPercentage = true
			percentSum = percentSum.Add(d.Value)
		case invoice.DistributionTypeAmount:
			amountSum = amountSum.Add(d.Value)
		}
	}

	if hasPercentage && !percentSum.Equal(decimal.NewFromInt(100)) {
		return shared.ErrInvalidInput.
			WithParam("reason", "percentage distributions must sum to 100").
			WithParam("sum", percentSum.String())
	}
	if amountSum.Abs().GreaterThan(total.Abs()) {
		return shared.ErrInvalidInput.
			WithParam("reason", "amount distributions exceed the line total").
			WithParam("sum", amountSum.String())
	}
	return nil
}
