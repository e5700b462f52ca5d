package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// State is the per-invoice transaction workflow state, derived from which
// transactions already exist in the external ledger.
type State string

const (
	StateNone                   State = "NONE"
	StatePendingPaymentsCreated State = "PENDING_PAYMENTS_CREATED"
	StatePaymentsCreditsCreated State = "PAYMENTS_CREDITS_CREATED"
)

// Result is what one engine run hands back to the caller: the enriched row
// set and the transactions that were built or updated.
type Result struct {
	Holders      []TransactionHolder
	Transactions []*finance.Transaction
}

// Engine drives the invoice financial transaction workflow: expand the
// invoice into rows, enrich them, validate budgets and commit the ledger
// transactions. One invocation owns its row set exclusively; rows are
// never shared across invocations.
type Engine struct {
	enricher        *Enricher
	validator       *BudgetValidator
	pendingPayments *PendingPaymentService
	paymentsCredits *PaymentCreditService
	encumbrances    *EncumbranceReconciler
	transactions    finance.TransactionService
	logger          *zap.Logger
}

// NewEngine creates a new workflow Engine
func NewEngine(
	enricher *Enricher,
	validator *BudgetValidator,
	pendingPayments *PendingPaymentService,
	paymentsCredits *PaymentCreditService,
	encumbrances *EncumbranceReconciler,
	transactions finance.TransactionService,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		enricher:        enricher,
		validator:       validator,
		pendingPayments: pendingPayments,
		paymentsCredits: paymentsCredits,
		encumbrances:    encumbrances,
		transactions:    transactions,
		logger:          logger,
	}
}

// StateOf derives the invoice's workflow state from the external ledger
func (e *Engine) StateOf(ctx context.Context, inv *invoice.Invoice) (State, error) {
	payments, err := e.transactions.GetPaymentsAndCreditsByInvoiceID(ctx, inv.ID, 1)
	if err != nil {
		return "", err
	}
	if len(payments) > 0 {
		return StatePaymentsCreditsCreated, nil
	}
	pending, err := e.transactions.GetPendingPaymentsByInvoiceID(ctx, inv.ID, 1)
	if err != nil {
		return "", err
	}
	if len(pending) > 0 {
		return StatePendingPaymentsCreated, nil
	}
	return StateNone, nil
}

// ProcessApproval runs the approval workflow: build and enrich the row
// set, build pending payments, validate budget availability and commit.
// From StateNone this creates; from StatePendingPaymentsCreated it
// reconciles (update, net-delta validation). Once payments or credits
// exist the invoice can no longer be re-approved.
func (e *Engine) ProcessApproval(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*Result, error) {
	state, err := e.StateOf(ctx, inv)
	if err != nil {
		return nil, err
	}
	if state == StatePaymentsCreditsCreated {
		return nil, shared.ErrInvalidState.
			WithParam("invoiceId", inv.ID.String()).
			WithParam("workflowState", string(state))
	}

	rows, err := e.enrich(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	rows = withNewPendingPayments(rows)

	switch state {
	case StateNone:
		if err := e.validator.ValidateCreation(rows); err != nil {
			return nil, err
		}
		rows, err = e.pendingPayments.Create(ctx, rows)
	default:
		if err := e.validator.ValidateUpdate(rows); err != nil {
			return nil, err
		}
		rows, err = e.pendingPayments.Update(ctx, rows)
	}
	if err != nil {
		return nil, err
	}

	fyID := rows[0].FiscalYear.ID
	inv.FiscalYearID = &fyID
	return resultOf(rows), nil
}

// ProcessFiscalYearChange handles an approved invoice whose fiscal year
// changed without a payment-state transition: encumbrance references are
// re-linked into the new fiscal year, then the pending payments are
// reconciled against it.
func (e *Engine) ProcessFiscalYearChange(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*Result, error) {
	state, err := e.StateOf(ctx, inv)
	if err != nil {
		return nil, err
	}
	if state != StatePendingPaymentsCreated {
		return nil, shared.ErrInvalidState.
			WithParam("invoiceId", inv.ID.String()).
			WithParam("workflowState", string(state))
	}

	rows, err := e.enrich(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	rows, err = e.encumbrances.Relink(ctx, rows)
	if err != nil {
		return nil, err
	}

	rows = withNewPendingPayments(rows)
	if err := e.validator.ValidateUpdate(rows); err != nil {
		return nil, err
	}
	rows, err = e.pendingPayments.Update(ctx, rows)
	if err != nil {
		return nil, err
	}

	fyID := rows[0].FiscalYear.ID
	inv.FiscalYearID = &fyID
	return resultOf(rows), nil
}

// ProcessPayment runs the payment workflow: build payments/credits from
// the enriched rows and commit them sequentially. Requires pending
// payments to exist; re-running after payments exist is a no-op thanks to
// the idempotency guard.
func (e *Engine) ProcessPayment(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*Result, error) {
	state, err := e.StateOf(ctx, inv)
	if err != nil {
		return nil, err
	}
	if state == StateNone {
		return nil, shared.ErrInvalidState.
			WithParam("invoiceId", inv.ID.String()).
			WithParam("workflowState", string(state))
	}

	rows, err := e.enrich(ctx, inv, lines)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Result{}, nil
	}

	rows = withNewPaymentsCredits(rows)
	rows, err = e.paymentsCredits.Create(ctx, rows)
	if err != nil {
		return nil, err
	}
	return resultOf(rows), nil
}

func (e *Engine) enrich(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) ([]TransactionHolder, error) {
	rows := BuildHolders(inv, lines)
	if len(rows) == 0 {
		e.logger.Info("invoice has no fund distributions, nothing to do",
			zap.String("invoice_id", inv.ID.String()))
		return nil, nil
	}
	return e.enricher.Enrich(ctx, rows)
}

func resultOf(rows []TransactionHolder) *Result {
	txs := make([]*finance.Transaction, 0, len(rows))
	for _, row := range rows {
		if row.NewTransaction != nil {
			txs = append(txs, row.NewTransaction)
		}
	}
	return &Result{Holders: rows, Transactions: txs}
}
