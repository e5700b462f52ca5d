package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/invoice"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// ConversionResolver resolves the single currency conversion of an engine
// run, from the invoice currency into the fiscal year's currency.
type ConversionResolver struct {
	provider finance.ExchangeRateProvider
	logger   *zap.Logger
}

// NewConversionResolver creates a new ConversionResolver
func NewConversionResolver(provider finance.ExchangeRateProvider, logger *zap.Logger) *ConversionResolver {
	return &ConversionResolver{provider: provider, logger: logger}
}

// Resolve returns the conversion for one invoice. Matching currencies get
// an identity conversion; a frozen exchange rate on the invoice is honored
// as-is; otherwise a live rate is quoted and frozen onto the invoice so
// repeated use within the run and later audits are reproducible.
func (r *ConversionResolver) Resolve(ctx context.Context, inv *invoice.Invoice, fiscalYearCurrency valueobject.Currency) (finance.Conversion, error) {
	if inv.Currency == fiscalYearCurrency {
		return finance.IdentityConversion(inv.Currency), nil
	}

	if inv.HasFrozenExchangeRate() {
		return finance.NewConversion(inv.Currency, fiscalYearCurrency, *inv.ExchangeRate), nil
	}

	rate, err := r.provider.GetExchangeRate(ctx, inv.Currency, fiscalYearCurrency)
	if err != nil {
		return finance.Conversion{}, fmt.Errorf("failed to resolve exchange rate %s->%s: %w",
			inv.Currency, fiscalYearCurrency, err)
	}

	inv.FreezeExchangeRate(rate)
	r.logger.Info("froze exchange rate on invoice",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("from", string(inv.Currency)),
		zap.String("to", string(fiscalYearCurrency)),
		zap.String("rate", rate.String()),
	)
	return finance.NewConversion(inv.Currency, fiscalYearCurrency, rate), nil
}
