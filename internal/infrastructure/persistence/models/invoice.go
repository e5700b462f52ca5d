package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// FundDistributions is a JSONB column holding the fund distributions of an
// invoice line or adjustment. Distributions are value objects owned by their
// line and never queried individually, so they live inside the row.
type FundDistributions []invoice.FundDistribution

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d FundDistributions) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *FundDistributions) Scan(value interface{}) error {
	if value == nil {
		*d = FundDistributions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan FundDistributions: unsupported type")
	}

	if len(bytes) == 0 {
		*d = FundDistributions{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// Adjustments is a JSONB column holding invoice-level adjustments
type Adjustments []invoice.Adjustment

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a Adjustments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *Adjustments) Scan(value interface{}) error {
	if value == nil {
		*a = Adjustments{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Adjustments: unsupported type")
	}

	if len(bytes) == 0 {
		*a = Adjustments{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	ID              uuid.UUID             `gorm:"type:uuid;primary_key"`
	VendorID        uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_vendor_no,priority:1"`
	VendorInvoiceNo string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_invoices_vendor_no,priority:2"`
	Status          invoice.InvoiceStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Currency        valueobject.Currency  `gorm:"type:varchar(3);not null"`
	InvoiceDate     time.Time             `gorm:"not null"`
	Total           decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	FiscalYearID    *uuid.UUID            `gorm:"type:uuid;index"`
	ExchangeRate    *decimal.Decimal      `gorm:"type:decimal(18,8)"`
	Adjustments     Adjustments           `gorm:"type:jsonb"`
	Lines           []InvoiceLineModel    `gorm:"foreignKey:InvoiceID;references:ID"`
	CreatedAt       time.Time             `gorm:"not null"`
	UpdatedAt       time.Time             `gorm:"not null"`
	Version         int                   `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	return &invoice.Invoice{
		ID:              m.ID,
		VendorID:        m.VendorID,
		VendorInvoiceNo: m.VendorInvoiceNo,
		Status:          m.Status,
		Currency:        m.Currency,
		InvoiceDate:     m.InvoiceDate,
		Total:           m.Total,
		FiscalYearID:    m.FiscalYearID,
		ExchangeRate:    m.ExchangeRate,
		Adjustments:     m.Adjustments,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Version:         m.Version,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.ID = inv.ID
	m.VendorID = inv.VendorID
	m.VendorInvoiceNo = inv.VendorInvoiceNo
	m.Status = inv.Status
	m.Currency = inv.Currency
	m.InvoiceDate = inv.InvoiceDate
	m.Total = inv.Total
	m.FiscalYearID = inv.FiscalYearID
	m.ExchangeRate = inv.ExchangeRate
	m.Adjustments = inv.Adjustments
	m.CreatedAt = inv.CreatedAt
	m.UpdatedAt = inv.UpdatedAt
	m.Version = inv.Version
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineModel is the persistence model for invoice lines.
type InvoiceLineModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primary_key"`
	InvoiceID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	Description       string            `gorm:"type:text"`
	SubTotal          decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Total             decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	PoLineID          *uuid.UUID        `gorm:"type:uuid;index"`
	FundDistributions FundDistributions `gorm:"type:jsonb"`
	CreatedAt         time.Time         `gorm:"not null"`
	UpdatedAt         time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() *invoice.InvoiceLine {
	return &invoice.InvoiceLine{
		ID:                m.ID,
		InvoiceID:         m.InvoiceID,
		Description:       m.Description,
		SubTotal:          m.SubTotal,
		Total:             m.Total,
		PoLineID:          m.PoLineID,
		FundDistributions: m.FundDistributions,
	}
}

// FromDomain populates the persistence model from a domain InvoiceLine
func (m *InvoiceLineModel) FromDomain(line *invoice.InvoiceLine) {
	m.ID = line.ID
	m.InvoiceID = line.InvoiceID
	m.Description = line.Description
	m.SubTotal = line.SubTotal
	m.Total = line.Total
	m.PoLineID = line.PoLineID
	m.FundDistributions = line.FundDistributions
}

// InvoiceLineModelFromDomain creates a new persistence model from a domain InvoiceLine
func InvoiceLineModelFromDomain(line *invoice.InvoiceLine) *InvoiceLineModel {
	m := &InvoiceLineModel{}
	m.FromDomain(line)
	return m
}
