package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"

	"condor-screener/internal/models"
)

// CacheConfig holds TTLs and the cost budget for CachedProvider.
type CacheConfig struct {
	// MaxCost is the approximate cache size in bytes.
	MaxCost        int64
	SpotTTL        time.Duration
	ChainTTL       time.Duration
	ExpirationsTTL time.Duration
	EarningsTTL    time.Duration
	// CloseTTL applies to settlement closes, which do not change once published.
	CloseTTL time.Duration
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxCost:        64 << 20,
		SpotTTL:        15 * time.Second,
		ChainTTL:       time.Minute,
		ExpirationsTTL: 10 * time.Minute,
		EarningsTTL:    time.Hour,
		CloseTTL:       24 * time.Hour,
	}
}

// Approximate in-memory sizes used as ristretto costs.
const (
	scalarCost   = 64
	contractCost = 256
	dateCost     = 32
)

// CachedProvider wraps a Provider with a ristretto cache.
type CachedProvider struct {
	next   Provider
	cache  *ristretto.Cache
	cfg    CacheConfig
	logger zerolog.Logger
}

// NewCachedProvider wraps next with a cache sized by cfg.
func NewCachedProvider(next Provider, cfg CacheConfig, logger zerolog.Logger) (*CachedProvider, error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = DefaultCacheConfig().MaxCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &CachedProvider{
		next:   next,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Name implements Provider.
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// Wait blocks until pending cache writes are applied.
func (c *CachedProvider) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *CachedProvider) Close() {
	c.cache.Close()
}

func (c *CachedProvider) lookup(kind, key string) (interface{}, bool) {
	value, found := c.cache.Get(key)
	if found {
		CacheHitsTotal.WithLabelValues(kind).Inc()
		c.logger.Debug().Str("key", key).Msg("cache hit")
	} else {
		CacheMissesTotal.WithLabelValues(kind).Inc()
	}
	return value, found
}

func (c *CachedProvider) store(key string, value interface{}, cost int64, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.cache.SetWithTTL(key, value, cost, ttl)
}

// SpotPrice implements Provider.
func (c *CachedProvider) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	key := "spot:" + symbol
	if v, ok := c.lookup("spot", key); ok {
		if price, ok := v.(float64); ok {
			return price, nil
		}
	}

	price, err := c.next.SpotPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	c.store(key, price, scalarCost, c.cfg.SpotTTL)
	return price, nil
}

// Expirations implements Provider.
func (c *CachedProvider) Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	key := fmt.Sprintf("expirations:%s:%s:%s", symbol, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if v, ok := c.lookup("expirations", key); ok {
		if exps, ok := v.([]time.Time); ok {
			return append([]time.Time(nil), exps...), nil
		}
	}

	exps, err := c.next.Expirations(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	c.store(key, append([]time.Time(nil), exps...), int64(len(exps))*dateCost+scalarCost, c.cfg.ExpirationsTTL)
	return exps, nil
}

// Chain implements Provider.
func (c *CachedProvider) Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error) {
	key := fmt.Sprintf("chain:%s:%s", symbol, expiration.Format(models.DateLayout))
	if v, ok := c.lookup("chain", key); ok {
		if chain, ok := v.([]models.RawContract); ok {
			return append([]models.RawContract(nil), chain...), nil
		}
	}

	chain, err := c.next.Chain(ctx, symbol, expiration)
	if err != nil {
		return nil, err
	}
	c.store(key, append([]models.RawContract(nil), chain...), int64(len(chain))*contractCost+scalarCost, c.cfg.ChainTTL)
	return chain, nil
}

// HasEarnings implements Provider.
func (c *CachedProvider) HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	key := fmt.Sprintf("earnings:%s:%s:%s", symbol, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if v, ok := c.lookup("earnings", key); ok {
		if has, ok := v.(bool); ok {
			return has, nil
		}
	}

	has, err := c.next.HasEarnings(ctx, symbol, from, to)
	if err != nil {
		return false, err
	}
	c.store(key, has, scalarCost, c.cfg.EarningsTTL)
	return has, nil
}

// ClosePrice implements Provider.
func (c *CachedProvider) ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	key := fmt.Sprintf("close:%s:%s", symbol, date.Format(models.DateLayout))
	if v, ok := c.lookup("close", key); ok {
		if price, ok := v.(float64); ok {
			return price, nil
		}
	}

	price, err := c.next.ClosePrice(ctx, symbol, date)
	if err != nil {
		return 0, err
	}
	c.store(key, price, scalarCost, c.cfg.CloseTTL)
	return price, nil
}
