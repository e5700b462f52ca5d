package workflow

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared"
)

// BudgetValidator rejects a commit that would exceed a fund's allowed
// spend. It checks every fund and reports all offenders together instead
// of failing on the first.
type BudgetValidator struct {
	logger *zap.Logger
}

// NewBudgetValidator creates a new BudgetValidator
func NewBudgetValidator(logger *zap.Logger) *BudgetValidator {
	return &BudgetValidator{logger: logger}
}

// ValidateCreation checks that each fund's summed new transaction amounts
// fit within its remaining capacity. Rows must already carry built
// transactions (amounts in the fiscal year's currency).
func (v *BudgetValidator) ValidateCreation(rows []TransactionHolder) error {
	return v.validate(rows, func(row TransactionHolder) decimal.Decimal {
		return row.NewTransaction.Amount
	})
}

// ValidateUpdate checks only the net delta per fund: new amounts minus the
// matched existing pending-payment amounts, so lowering an amount never
// spuriously fails.
func (v *BudgetValidator) ValidateUpdate(rows []TransactionHolder) error {
	return v.validate(rows, func(row TransactionHolder) decimal.Decimal {
		return row.NewTransaction.Amount.Sub(row.ExistingTransaction.Amount)
	})
}

func (v *BudgetValidator) validate(rows []TransactionHolder, requestedOf func(TransactionHolder) decimal.Decimal) error {
	type fundCheck struct {
		budget    *finance.Budget
		code      string
		requested decimal.Decimal
	}

	checks := make(map[uuid.UUID]*fundCheck)
	var order []uuid.UUID
	for _, row := range rows {
		if !row.RestrictExpenditures || !row.Budget.IsRestricted() {
			continue
		}
		fundID := row.Fund.ID
		check, ok := checks[fundID]
		if !ok {
			check = &fundCheck{budget: row.Budget, code: row.Fund.Code, requested: decimal.Zero}
			checks[fundID] = check
			order = append(order, fundID)
		}
		check.requested = check.requested.Add(requestedOf(row))
	}

	var failing []shared.Parameter
	for _, fundID := range order {
		check := checks[fundID]
		remaining := check.budget.RemainingCapacity()
		if check.requested.GreaterThan(remaining) {
			v.logger.Warn("fund would exceed allowable expenditure",
				zap.String("fund_id", fundID.String()),
				zap.String("requested", check.requested.String()),
				zap.String("remaining", remaining.String()),
			)
			failing = append(failing, shared.Parameter{Key: "fundCode", Value: check.code})
		}
	}

	if len(failing) > 0 {
		err := shared.ErrFundCannotBePaid
		for _, p := range failing {
			err = err.WithParam(p.Key, p.Value)
		}
		return err
	}
	return nil
}
