package finance

import (
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// Conversion re-expresses invoice-currency amounts in the fiscal year's
// currency. It is resolved once per engine run and reused by every row.
type Conversion struct {
	From valueobject.Currency `json:"from"`
	To   valueobject.Currency `json:"to"`
	Rate decimal.Decimal      `json:"rate"`
}

// IdentityConversion returns a rate-1 conversion for matching currencies
func IdentityConversion(currency valueobject.Currency) Conversion {
	return Conversion{From: currency, To: currency, Rate: decimal.NewFromInt(1)}
}

// NewConversion builds a fixed-rate conversion between two currencies
func NewConversion(from, to valueobject.Currency, rate decimal.Decimal) Conversion {
	return Conversion{From: from, To: to, Rate: rate}
}

// IsIdentity returns true when the conversion does not change amounts
func (c Conversion) IsIdentity() bool {
	return c.From == c.To
}

// Apply converts a monetary amount into the conversion's target currency.
// Amounts already in the target currency pass through unchanged.
func (c Conversion) Apply(m valueobject.Money) valueobject.Money {
	if m.Currency() == c.To {
		return m
	}
	return m.ConvertTo(c.To, c.Rate)
}
