package workflow

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
)

// EncumbranceReconciler re-links fund-distribution encumbrance references
// when the invoice's fiscal year changes without a payment-state
// transition, so references never point at a transaction from a different
// fiscal year.
type EncumbranceReconciler struct {
	transactions finance.TransactionService
	logger       *zap.Logger
}

// NewEncumbranceReconciler creates a new EncumbranceReconciler
func NewEncumbranceReconciler(transactions finance.TransactionService, logger *zap.Logger) *EncumbranceReconciler {
	return &EncumbranceReconciler{transactions: transactions, logger: logger}
}

type fundPoLine struct {
	fundID   uuid.UUID
	poLineID uuid.UUID
}

// Relink looks up, batched by purchase-order-line id, the encumbrance in
// the rows' (new) fiscal year for each referencing row's (fund, po line)
// pair. Found matches repoint the fund distribution's reference; misses
// clear it.
func (r *EncumbranceReconciler) Relink(ctx context.Context, rows []TransactionHolder) ([]TransactionHolder, error) {
	var poLineIDs []uuid.UUID
	for _, row := range rows {
		if row.FundDistribution.HasEncumbrance() && row.InvoiceLine != nil && row.InvoiceLine.PoLineID != nil {
			poLineIDs = append(poLineIDs, *row.InvoiceLine.PoLineID)
		}
	}
	if len(poLineIDs) == 0 {
		return rows, nil
	}

	fiscalYearID := rows[0].FiscalYear.ID
	encumbrances, err := fetchChunked(ctx, distinctIDs(poLineIDs), func(ctx context.Context, ids []uuid.UUID) ([]finance.Transaction, error) {
		return r.transactions.GetEncumbrancesByPoLineIDs(ctx, fiscalYearID, ids)
	})
	if err != nil {
		return nil, err
	}

	byPair := make(map[fundPoLine]uuid.UUID, len(encumbrances))
	for _, enc := range encumbrances {
		if enc.FromFundID == nil || enc.Encumbrance == nil {
			continue
		}
		byPair[fundPoLine{fundID: *enc.FromFundID, poLineID: enc.Encumbrance.SourcePoLineID}] = enc.ID
	}

	out := make([]TransactionHolder, len(rows))
	for i, row := range rows {
		if row.FundDistribution.HasEncumbrance() && row.InvoiceLine != nil && row.InvoiceLine.PoLineID != nil {
			key := fundPoLine{fundID: row.FundDistribution.FundID, poLineID: *row.InvoiceLine.PoLineID}
			if encID, ok := byPair[key]; ok {
				id := encID
				row.FundDistribution.EncumbranceID = &id
			} else {
				r.logger.Info("no encumbrance in target fiscal year, clearing reference",
					zap.String("fund_id", row.FundDistribution.FundID.String()),
					zap.String("po_line_id", row.InvoiceLine.PoLineID.String()))
				row.FundDistribution.EncumbranceID = nil
			}
			// Write the repointed reference back onto the owning line so
			// the caller persists it.
			row.InvoiceLine.FundDistributions[row.fdIndex].EncumbranceID = row.FundDistribution.EncumbranceID
		}
		out[i] = row
	}
	return out, nil
}
