package invoice

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// DistributionType determines how a fund distribution's value is read
type DistributionType string

const (
	DistributionTypePercentage DistributionType = "PERCENTAGE"
	DistributionTypeAmount     DistributionType = "AMOUNT"
)

// IsValid checks if the type is a valid DistributionType
func (t DistributionType) IsValid() bool {
	return t == DistributionTypePercentage || t == DistributionTypeAmount
}

// FundDistribution is a share of an invoice line's or adjustment's total
// charged to one fund. It belongs to exactly one line or one adjustment.
type FundDistribution struct {
	FundID         uuid.UUID        `json:"fund_id"`
	Code           string           `json:"code"`
	ExpenseClassID *uuid.UUID       `json:"expense_class_id,omitempty"`
	Type           DistributionType `json:"distribution_type"`
	Value          decimal.Decimal  `json:"value"`

	// EncumbranceID references a prior fund reservation from the
	// purchase order, released when the invoice is paid.
	EncumbranceID *uuid.UUID `json:"encumbrance_id,omitempty"`
}

// HasEncumbrance returns true if this distribution references an encumbrance
func (d *FundDistribution) HasEncumbrance() bool {
	return d.EncumbranceID != nil
}

// Amount computes the monetary amount this distribution charges against
// its fund, given the owning line's or adjustment's total:
//
//	PERCENTAGE: total * value/100, magnitude |total|*|value|/100 with the
//	  sign following the total (and a negative percentage negating it)
//	AMOUNT:     the fixed value in the given currency, independent of total
//
// Pure function; no rounding is applied here.
func (d *FundDistribution) Amount(total valueobject.Money) valueobject.Money {
	if d.Type == DistributionTypeAmount {
		m, _ := valueobject.NewMoney(d.Value, total.Currency())
		return m
	}
	return total.CalculatePercentage(d.Value)
}

// AdjustmentType determines how an adjustment's value is read
type AdjustmentType string

const (
	AdjustmentTypePercentage AdjustmentType = "PERCENTAGE"
	AdjustmentTypeAmount     AdjustmentType = "AMOUNT"
)

// AdjustmentProrate determines how an adjustment is spread across lines
type AdjustmentProrate string

const (
	ProrateByLine     AdjustmentProrate = "BY_LINE"
	ProrateByAmount   AdjustmentProrate = "BY_AMOUNT"
	ProrateByQuantity AdjustmentProrate = "BY_QUANTITY"
	ProrateNone       AdjustmentProrate = "NOT_PRORATED"
)

// AdjustmentRelation relates an adjustment to the invoice total
type AdjustmentRelation string

const (
	RelationToTotalInAddition    AdjustmentRelation = "IN_ADDITION_TO"
	RelationToTotalIncludedIn    AdjustmentRelation = "INCLUDED_IN"
	RelationToTotalSeparateFrom  AdjustmentRelation = "SEPARATE_FROM"
)

// Adjustment is an invoice-level charge (tax, shipping, discount).
// Prorated adjustments are distributed across lines at approval time;
// non-prorated ones carry their own fund distributions.
type Adjustment struct {
	ID              uuid.UUID          `json:"id"`
	Description     string             `json:"description"`
	Type            AdjustmentType     `json:"type"`
	Prorate         AdjustmentProrate  `json:"prorate"`
	RelationToTotal AdjustmentRelation `json:"relation_to_total"`
	Value           decimal.Decimal    `json:"value"`

	FundDistributions []FundDistribution `json:"fund_distributions,omitempty"`
}

// IsProrated returns true if the adjustment is spread across lines
func (a *Adjustment) IsProrated() bool {
	return a.Prorate != ProrateNone && a.Prorate != ""
}

// TotalMoney returns the adjustment's own total in the invoice currency.
// PERCENTAGE adjustments are resolved against the invoice total.
func (a *Adjustment) TotalMoney(invoiceTotal decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	if a.Type == AdjustmentTypePercentage {
		base, _ := valueobject.NewMoney(invoiceTotal, currency)
		return base.CalculatePercentage(a.Value)
	}
	m, _ := valueobject.NewMoney(a.Value, currency)
	return m
}
