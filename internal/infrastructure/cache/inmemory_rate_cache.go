package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// rateEntry is a cached rate with expiration
type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// InMemoryRateCache implements RateCache with an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryRateCache struct {
	mu        sync.RWMutex
	entries   map[string]rateEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateCache creates a new in-memory rate cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryRateCache() *InMemoryRateCache {
	c := &InMemoryRateCache{
		entries:  make(map[string]rateEntry),
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get returns the cached rate for the pair, if present and fresh
func (c *InMemoryRateCache) Get(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[rateKey(from, to)]
	if !exists || time.Now().After(e.expiresAt) {
		return decimal.Zero, false, nil
	}
	return e.rate, true, nil
}

// Set stores a rate with the given TTL
func (c *InMemoryRateCache) Set(ctx context.Context, from, to valueobject.Currency, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[rateKey(from, to)] = rateEntry{
		rate:      rate,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRateCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of entries (for testing/monitoring)
func (c *InMemoryRateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryRateCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryRateCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ RateCache = (*InMemoryRateCache)(nil)
