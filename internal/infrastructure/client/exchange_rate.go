package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// ExchangeRateClient quotes live exchange rates from the record store's
// rate-of-exchange endpoint.
type ExchangeRateClient struct {
	store *RecordStore
}

// NewExchangeRateClient creates a new ExchangeRateClient
func NewExchangeRateClient(store *RecordStore) *ExchangeRateClient {
	return &ExchangeRateClient{store: store}
}

type exchangeRateResponse struct {
	From         valueobject.Currency `json:"from"`
	To           valueobject.Currency `json:"to"`
	ExchangeRate decimal.Decimal      `json:"exchange_rate"`
}

// GetExchangeRate quotes the rate converting one unit of from into to
func (c *ExchangeRateClient) GetExchangeRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error) {
	path := fmt.Sprintf("/finance/exchange-rate?from=%s&to=%s",
		url.QueryEscape(string(from)), url.QueryEscape(string(to)))

	var out exchangeRateResponse
	if err := c.store.getCollection(ctx, path, "", 0, &out); err != nil {
		return decimal.Zero, err
	}
	if !out.ExchangeRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("finance client: non-positive exchange rate %s for %s->%s",
			out.ExchangeRate, from, to)
	}
	return out.ExchangeRate, nil
}
