package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared"
	"github.com/erp/acquisitions/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID. Lines are loaded separately via FindLines.
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithParam("invoiceId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByVendorInvoiceNo finds an invoice by the vendor's own number
func (r *GormInvoiceRepository) FindByVendorInvoiceNo(ctx context.Context, vendorID uuid.UUID, vendorInvoiceNo string) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND vendor_invoice_no = ?", vendorID, vendorInvoiceNo).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithParam("vendorInvoiceNo", vendorInvoiceNo)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices matching the filter. Lines are not loaded.
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoice.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates a new invoice with its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) error {
	model := models.InvoiceModelFromDomain(inv)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].InvoiceID = inv.ID
			lineModel := models.InvoiceLineModelFromDomain(&lines[i])
			if err := tx.Create(lineModel).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update persists invoice changes with an optimistic version check.
// The version carried by the invoice must match the stored row.
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	currentVersion := inv.Version
	inv.Version++
	inv.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, currentVersion).
		Updates(map[string]interface{}{
			"status":         inv.Status,
			"fiscal_year_id": inv.FiscalYearID,
			"exchange_rate":  inv.ExchangeRate,
			"total":          inv.Total,
			"adjustments":    models.Adjustments(inv.Adjustments),
			"version":        inv.Version,
			"updated_at":     inv.UpdatedAt,
		})

	if result.Error != nil {
		inv.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		inv.Version = currentVersion
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another user").
			WithParam("invoiceId", inv.ID.String())
	}
	return nil
}

// UpdateLines replaces the stored lines of an invoice
func (r *GormInvoiceRepository) UpdateLines(ctx context.Context, invoiceID uuid.UUID, lines []invoice.InvoiceLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoiceID).
			Delete(&models.InvoiceLineModel{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].InvoiceID = invoiceID
			lineModel := models.InvoiceLineModelFromDomain(&lines[i])
			if err := tx.Create(lineModel).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindLines loads the lines of an invoice
func (r *GormInvoiceRepository) FindLines(ctx context.Context, invoiceID uuid.UUID) ([]invoice.InvoiceLine, error) {
	var rows []models.InvoiceLineModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	lines := make([]invoice.InvoiceLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// Delete removes an invoice and its lines
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&models.InvoiceLineModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound.WithParam("invoiceId", id.String())
		}
		return nil
	})
}

// applyFilter applies filter options including pagination and ordering
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) != "asc" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("vendor_invoice_no ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "fiscal_year_id":
			query = query.Where("fiscal_year_id = ?", value)
		case "currency":
			query = query.Where("currency = ?", value)
		}
	}
	return query
}
