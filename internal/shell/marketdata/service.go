// Package marketdata serves quotes, option chains, and daily candles,
// caching upstream responses so repeated requests within a TTL do not
// hit the Polygon API again.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/chartkit/chartwatch/internal/shell/cache"
	"github.com/chartkit/chartwatch/internal/shell/metrics"
	"github.com/chartkit/chartwatch/internal/shell/polygon"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures cache TTLs per data kind.
type Config struct {
	// QuoteTTL is how long a last-trade price stays cached.
	// Default: 5 seconds.
	QuoteTTL time.Duration

	// ChainTTL is how long an options chain snapshot stays cached.
	// Default: 30 seconds.
	ChainTTL time.Duration

	// CandleTTL is how long a daily candle range stays cached.
	// Default: 10 minutes.
	CandleTTL time.Duration
}

// DefaultConfig returns the default market data configuration.
func DefaultConfig() Config {
	return Config{
		QuoteTTL:  5 * time.Second,
		ChainTTL:  30 * time.Second,
		CandleTTL: 10 * time.Minute,
	}
}

// =============================================================================
// Service
// =============================================================================

// Service wraps a Polygon client with a cache-aside layer. Cache failures
// are logged and treated as misses so the upstream remains the source of
// truth.
type Service struct {
	client polygon.Client
	cache  cache.Cache
	config Config
	logger *slog.Logger
}

// NewService creates a market data service.
func NewService(client polygon.Client, c cache.Cache, config Config, logger *slog.Logger) *Service {
	if config.QuoteTTL == 0 {
		config.QuoteTTL = 5 * time.Second
	}
	if config.ChainTTL == 0 {
		config.ChainTTL = 30 * time.Second
	}
	if config.CandleTTL == 0 {
		config.CandleTTL = 10 * time.Minute
	}

	if c == nil {
		c = cache.NewNoopCache()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		client: client,
		cache:  c,
		config: config,
		logger: logger.With("component", "marketdata"),
	}
}

// =============================================================================
// Operations
// =============================================================================

// UnderlyingPrice returns the last trade price for a ticker.
func (s *Service) UnderlyingPrice(ctx context.Context, ticker string) (float64, error) {
	key := "quote:" + ticker

	var price float64
	if s.cacheGet(ctx, key, &price) {
		return price, nil
	}

	price, err := s.client.LastTrade(ctx, ticker)
	if err != nil {
		return 0, err
	}

	s.cacheSet(ctx, key, price, s.config.QuoteTTL)
	return price, nil
}

// OptionsChain returns the current options chain snapshot for an underlying.
func (s *Service) OptionsChain(ctx context.Context, underlying string) ([]domain.Contract, error) {
	key := "chain:" + underlying

	var contracts []domain.Contract
	if s.cacheGet(ctx, key, &contracts) {
		return contracts, nil
	}

	contracts, err := s.client.OptionsChain(ctx, underlying)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, contracts, s.config.ChainTTL)
	return contracts, nil
}

// DailyCandles returns daily OHLCV bars for a ticker over [from, to].
func (s *Service) DailyCandles(ctx context.Context, ticker string, from, to time.Time) (domain.Series, error) {
	key := fmt.Sprintf("candles:%s:%s:%s", ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var series domain.Series
	if s.cacheGet(ctx, key, &series) {
		return series, nil
	}

	series, err := s.client.DailyCandles(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, series, s.config.CandleTTL)
	return series, nil
}

// =============================================================================
// Cache Helpers
// =============================================================================

// cacheGet loads and decodes a cached value. Returns false on miss,
// cache error, or decode error.
func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheOperation("get", "error")
		s.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !found {
		metrics.RecordCacheOperation("get", "miss")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.RecordCacheOperation("get", "error")
		s.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return false
	}
	metrics.RecordCacheOperation("get", "hit")
	return true
}

// cacheSet encodes and stores a value. Failures are logged, never fatal.
func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		metrics.RecordCacheOperation("set", "error")
		s.logger.Warn("cache set failed", "key", key, "error", err)
		return
	}
	metrics.RecordCacheOperation("set", "ok")
}
