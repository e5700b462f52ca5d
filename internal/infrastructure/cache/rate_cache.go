package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/acquisitions/internal/domain/finance"
	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// RateCache stores quoted exchange rates for a bounded time so repeated
// invoice runs within the window do not hit the live rate service.
type RateCache interface {
	// Get returns the cached rate and whether it was present
	Get(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, bool, error)
	// Set stores a rate with the given TTL
	Set(ctx context.Context, from, to valueobject.Currency, rate decimal.Decimal, ttl time.Duration) error
	// Close releases cache resources
	Close() error
}

// rateKey builds the cache key for a currency pair
func rateKey(from, to valueobject.Currency) string {
	return fmt.Sprintf("rate:%s:%s", from, to)
}

// CachingRateProvider is a read-through decorator over a live
// ExchangeRateProvider. A cache failure never fails the quote; the
// provider is consulted and the error logged.
type CachingRateProvider struct {
	provider finance.ExchangeRateProvider
	cache    RateCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachingRateProvider creates a new CachingRateProvider
func NewCachingRateProvider(provider finance.ExchangeRateProvider, cache RateCache, ttl time.Duration, logger *zap.Logger) *CachingRateProvider {
	return &CachingRateProvider{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// GetExchangeRate returns the cached rate when fresh, otherwise quotes the
// live provider and caches the result.
func (p *CachingRateProvider) GetExchangeRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error) {
	rate, ok, err := p.cache.Get(ctx, from, to)
	if err != nil {
		p.logger.Warn("rate cache read failed, quoting live",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	} else if ok {
		return rate, nil
	}

	rate, err = p.provider.GetExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.cache.Set(ctx, from, to, rate, p.ttl); err != nil {
		p.logger.Warn("rate cache write failed",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}
	return rate, nil
}

var _ finance.ExchangeRateProvider = (*CachingRateProvider)(nil)
