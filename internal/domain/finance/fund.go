package finance

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// Fund is an organizational unit money is allocated from.
type Fund struct {
	ID                    uuid.UUID `json:"id"`
	LedgerID              uuid.UUID `json:"ledger_id"`
	Code                  string    `json:"code"`
	Name                  string    `json:"name"`
	ExternalAccountNumber string    `json:"external_account_no"`
}

// Ledger groups funds and carries the expenditure restriction policy
// that applies to all of its funds.
type Ledger struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	RestrictExpenditures bool      `json:"restrict_expenditures"`
}

// FiscalYear is the accounting period governing a set of budgets.
// Budget amounts and ledger transactions are denominated in its currency.
type FiscalYear struct {
	ID          uuid.UUID            `json:"id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Currency    valueobject.Currency `json:"currency"`
	PeriodStart time.Time            `json:"period_start"`
	PeriodEnd   time.Time            `json:"period_end"`
}

// ExpenseClass categorizes spending within a fund (e.g. electronic vs print).
type ExpenseClass struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}
