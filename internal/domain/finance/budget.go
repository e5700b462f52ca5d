package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetStatus represents the lifecycle status of a budget
type BudgetStatus string

const (
	BudgetStatusActive   BudgetStatus = "ACTIVE"
	BudgetStatusFrozen   BudgetStatus = "FROZEN"
	BudgetStatusPlanned  BudgetStatus = "PLANNED"
	BudgetStatusClosed   BudgetStatus = "CLOSED"
	BudgetStatusInactive BudgetStatus = "INACTIVE"
)

// IsValid checks if the status is a valid BudgetStatus
func (s BudgetStatus) IsValid() bool {
	switch s {
	case BudgetStatusActive, BudgetStatusFrozen, BudgetStatusPlanned,
		BudgetStatusClosed, BudgetStatusInactive:
		return true
	}
	return false
}

// Budget is a fund's spending envelope for one fiscal year.
// All amounts are denominated in the fiscal year's currency.
type Budget struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	FundID          uuid.UUID       `json:"fund_id"`
	FiscalYearID    uuid.UUID       `json:"fiscal_year_id"`
	Status          BudgetStatus    `json:"status"`
	Allocated       decimal.Decimal `json:"allocated"`
	Available       decimal.Decimal `json:"available"`
	Unavailable     decimal.Decimal `json:"unavailable"`
	AwaitingPayment decimal.Decimal `json:"awaiting_payment"`
	Expenditures    decimal.Decimal `json:"expenditures"`
	Credits         decimal.Decimal `json:"credits"`

	// AllowableExpenditure is a percentage ceiling on spending against
	// the allocation. Nil means the fund is unrestricted.
	AllowableExpenditure *decimal.Decimal `json:"allowable_expenditure,omitempty"`
}

// IsActive returns true if the budget can accept new transactions
func (b *Budget) IsActive() bool {
	return b.Status == BudgetStatusActive
}

// IsRestricted returns true if an expenditure ceiling applies
func (b *Budget) IsRestricted() bool {
	return b.AllowableExpenditure != nil
}

// RemainingCapacity returns how much more can be committed against this
// budget before the allowable-expenditure ceiling is exceeded:
//
//	allocated * allowable/100
//	  - (allocated - (unavailable + available))
//	  - (awaitingPayment + expenditures)
//
// The middle term compensates for allocation adjustments that have already
// moved money out of this budget.
func (b *Budget) RemainingCapacity() decimal.Decimal {
	if b.AllowableExpenditure == nil {
		// Callers must check IsRestricted first; an unrestricted budget
		// has no meaningful capacity number.
		return decimal.Zero
	}
	ceiling := b.Allocated.Mul(*b.AllowableExpenditure).Div(decimal.NewFromInt(100))
	adjustment := b.Allocated.Sub(b.Unavailable.Add(b.Available))
	committed := b.AwaitingPayment.Add(b.Expenditures)
	return ceiling.Sub(adjustment).Sub(committed)
}
