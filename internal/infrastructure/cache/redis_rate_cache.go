package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/erp/acquisitions/internal/domain/shared/valueobject"
)

// RedisRateCache implements RateCache using Redis, for deployments where
// multiple instances should share quoted rates.
type RedisRateCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRateCache creates a new Redis-backed rate cache
func NewRedisRateCache(cfg RedisConfig) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateCache{client: client, keyPrefix: "finance:"}, nil
}

// NewRedisRateCacheWithClient creates a cache with an existing Redis
// client, useful for testing or when sharing a client across components.
func NewRedisRateCacheWithClient(client *redis.Client, keyPrefix string) *RedisRateCache {
	if keyPrefix == "" {
		keyPrefix = "finance:"
	}
	return &RedisRateCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached rate for the pair, if present
func (c *RedisRateCache) Get(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+rateKey(from, to)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read cached rate: %w", err)
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

// Set stores a rate with the given TTL
func (c *RedisRateCache) Set(ctx context.Context, from, to valueobject.Currency, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+rateKey(from, to), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

var _ RateCache = (*RedisRateCache)(nil)
