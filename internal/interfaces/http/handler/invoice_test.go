package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invoiceapp "github.com/erp/acquisitions/internal/application/invoice"
	"github.com/erp/acquisitions/internal/application/workflow"
	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared"
	"github.com/erp/acquisitions/internal/interfaces/http/dto"
	"github.com/erp/acquisitions/internal/interfaces/http/middleware"
)

// MockInvoiceRepository implements invoice.Repository for testing
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByVendorInvoiceNo(ctx context.Context, vendorID uuid.UUID, vendorInvoiceNo string) (*invoice.Invoice, error) {
	args := m.Called(ctx, vendorID, vendorInvoiceNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoice.Invoice, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) error {
	args := m.Called(ctx, inv, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateLines(ctx context.Context, invoiceID uuid.UUID, lines []invoice.InvoiceLine) error {
	args := m.Called(ctx, invoiceID, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindLines(ctx context.Context, invoiceID uuid.UUID) ([]invoice.InvoiceLine, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]invoice.InvoiceLine), args.Error(1)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTransactionWorkflow implements invoiceapp.TransactionWorkflow for testing
type MockTransactionWorkflow struct {
	mock.Mock
}

func (m *MockTransactionWorkflow) ProcessApproval(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error) {
	args := m.Called(ctx, inv, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Result), args.Error(1)
}

func (m *MockTransactionWorkflow) ProcessFiscalYearChange(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error) {
	args := m.Called(ctx, inv, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Result), args.Error(1)
}

func (m *MockTransactionWorkflow) ProcessPayment(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*workflow.Result, error) {
	args := m.Called(ctx, inv, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Result), args.Error(1)
}

func newInvoiceTestRouter() (*gin.Engine, *MockInvoiceRepository, *MockTransactionWorkflow) {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	repo := new(MockInvoiceRepository)
	engine := new(MockTransactionWorkflow)
	service := invoiceapp.NewService(repo, engine, zap.NewNop())
	h := NewInvoiceHandler(service)

	r := gin.New()
	r.POST("/invoices", h.Create)
	r.GET("/invoices", h.List)
	r.GET("/invoices/:id", h.GetByID)
	r.DELETE("/invoices/:id", h.Delete)
	r.POST("/invoices/:id/approve", h.Approve)
	r.POST("/invoices/:id/pay", h.Pay)
	r.POST("/invoices/:id/cancel", h.Cancel)
	return r, repo, engine
}

func testInvoice(status invoice.InvoiceStatus) *invoice.Invoice {
	return &invoice.Invoice{
		ID:              uuid.New(),
		VendorID:        uuid.New(),
		VendorInvoiceNo: "INV-2025-042",
		Status:          status,
		Currency:        "USD",
		InvoiceDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Total:           decimal.NewFromInt(250),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		Version:         1,
	}
}

func testLines(invoiceID uuid.UUID) []invoice.InvoiceLine {
	return []invoice.InvoiceLine{
		{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			Description: "Serials subscription",
			SubTotal:    decimal.NewFromInt(250),
			Total:       decimal.NewFromInt(250),
			FundDistributions: []invoice.FundDistribution{
				{
					FundID: uuid.New(),
					Code:   "SERIALS",
					Type:   invoice.DistributionTypePercentage,
					Value:  decimal.NewFromInt(100),
				},
			},
		},
	}
}

func createInvoiceBody(vendorID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"vendor_id":         vendorID.String(),
		"vendor_invoice_no": "INV-2025-042",
		"currency":          "USD",
		"invoice_date":      "2025-04-01T00:00:00Z",
		"total":             "250",
		"lines": []map[string]interface{}{
			{
				"description": "Serials subscription",
				"sub_total":   "250",
				"total":       "250",
				"fund_distributions": []map[string]interface{}{
					{
						"fund_id":           uuid.New().String(),
						"code":              "SERIALS",
						"distribution_type": "PERCENTAGE",
						"value":             "100",
					},
				},
			},
		},
	}
}

func TestInvoiceHandler_Create(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	vendorID := uuid.New()

	repo.On("FindByVendorInvoiceNo", mock.Anything, vendorID, "INV-2025-042").
		Return(nil, shared.ErrNotFound)
	repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	body, _ := json.Marshal(createInvoiceBody(vendorID))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "INV-2025-042", data["vendor_invoice_no"])
	assert.Equal(t, "OPEN", data["status"])
	repo.AssertExpectations(t)
}

func TestInvoiceHandler_Create_MissingLines(t *testing.T) {
	router, _, _ := newInvoiceTestRouter()

	body := createInvoiceBody(uuid.New())
	delete(body, "lines")
	raw, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
}

func TestInvoiceHandler_Create_Duplicate(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	vendorID := uuid.New()
	existing := testInvoice(invoice.InvoiceStatusOpen)

	repo.On("FindByVendorInvoiceNo", mock.Anything, vendorID, "INV-2025-042").
		Return(existing, nil)

	body, _ := json.Marshal(createInvoiceBody(vendorID))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("FindLines", mock.Anything, inv.ID).Return(testLines(inv.ID), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices/"+inv.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, inv.ID.String(), data["id"])
	assert.Len(t, data["lines"], 1)
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	id := uuid.New()

	repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices/"+id.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_GetByID_InvalidID(t *testing.T) {
	router, _, _ := newInvoiceTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_List(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)

	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["status"] == "OPEN" && f.PageSize == 10
	})).Return([]invoice.Invoice{*inv}, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices?status=OPEN&page_size=10", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestInvoiceHandler_List_InvalidStatus(t *testing.T) {
	router, _, _ := newInvoiceTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices?status=BOGUS", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_Delete(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("Delete", mock.Anything, inv.ID).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/invoices/"+inv.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestInvoiceHandler_Delete_Approved(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusApproved)

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/invoices/"+inv.ID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestInvoiceHandler_Approve(t *testing.T) {
	router, repo, engine := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)
	lines := testLines(inv.ID)
	res := &workflow.Result{
		Transactions: []*finance.Transaction{{ID: uuid.New()}, {ID: uuid.New()}},
	}

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("FindLines", mock.Anything, inv.ID).Return(lines, nil)
	engine.On("ProcessApproval", mock.Anything, inv, lines).Return(res, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices/"+inv.ID.String()+"/approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "APPROVED", data["status"])
	assert.Len(t, data["transaction_ids"], 2)
	engine.AssertExpectations(t)
}

func TestInvoiceHandler_Approve_BudgetExceeded(t *testing.T) {
	router, repo, engine := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)
	lines := testLines(inv.ID)

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("FindLines", mock.Anything, inv.ID).Return(lines, nil)
	engine.On("ProcessApproval", mock.Anything, inv, lines).
		Return(nil, shared.ErrFundCannotBePaid.WithParam("fundCode", "SERIALS"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices/"+inv.ID.String()+"/approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeFundCannotBePaid, resp.Error.Code)
	assert.Equal(t, "SERIALS", resp.Error.Parameters["fundCode"])
}

func TestInvoiceHandler_Approve_FiscalYearChange(t *testing.T) {
	router, repo, engine := newInvoiceTestRouter()
	oldFY := uuid.New()
	newFY := uuid.New()
	inv := testInvoice(invoice.InvoiceStatusApproved)
	inv.FiscalYearID = &oldFY
	lines := testLines(inv.ID)
	res := &workflow.Result{
		Transactions: []*finance.Transaction{{ID: uuid.New()}},
	}

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("FindLines", mock.Anything, inv.ID).Return(lines, nil)
	engine.On("ProcessFiscalYearChange", mock.Anything, inv, lines).Return(res, nil)
	repo.On("UpdateLines", mock.Anything, inv.ID, lines).Return(nil)
	repo.On("Update", mock.Anything, inv).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{"fiscal_year_id": newFY.String()})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices/"+inv.ID.String()+"/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	engine.AssertExpectations(t)
}

func TestInvoiceHandler_Pay(t *testing.T) {
	router, repo, engine := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusApproved)
	lines := testLines(inv.ID)
	res := &workflow.Result{
		Transactions: []*finance.Transaction{{ID: uuid.New()}},
	}

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("FindLines", mock.Anything, inv.ID).Return(lines, nil)
	engine.On("ProcessPayment", mock.Anything, inv, lines).Return(res, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices/"+inv.ID.String()+"/pay", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "PAID", data["status"])
}

func TestInvoiceHandler_Cancel(t *testing.T) {
	router, repo, _ := newInvoiceTestRouter()
	inv := testInvoice(invoice.InvoiceStatusOpen)

	repo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invoices/"+inv.ID.String()+"/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "CANCELLED", data["status"])
}
