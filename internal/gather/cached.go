package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chartgallery/internal/domain"
	"chartgallery/internal/metrics"
	"chartgallery/internal/store"
	"chartgallery/internal/util"
)

var _ Provider = (*CachedProvider)(nil)

// CacheOptions tunes a CachedProvider.
type CacheOptions struct {
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// CachedProvider wraps an upstream Provider with rate limiting, retries and a
// write-through bar cache. When the upstream keeps failing for reasons other
// than missing data, bars already in the cache are served instead.
type CachedProvider struct {
	upstream    Provider
	cache       store.BarStore // nil disables caching
	limiter     *util.RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewCachedProvider wraps upstream. cache may be nil.
func NewCachedProvider(upstream Provider, cache store.BarStore, opts CacheOptions) *CachedProvider {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CachedProvider{
		upstream:    upstream,
		cache:       cache,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		metrics:     opts.Metrics,
		log:         log.With("component", "provider", "provider", upstream.Name()),
	}
}

// Name returns the upstream identifier.
func (p *CachedProvider) Name() string { return p.upstream.Name() }

// Fetch returns bars from the upstream, persisting them to the cache.
func (p *CachedProvider) Fetch(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	var bars []domain.Bar
	err := util.Retry(ctx, p.maxAttempts, p.retryDelay, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var ferr error
		bars, ferr = p.upstream.Fetch(ctx, symbol, r)
		if errors.Is(ferr, domain.ErrNoData) || ctx.Err() != nil {
			return util.Permanent(ferr)
		}
		return ferr
	})

	switch {
	case err == nil && len(bars) > 0:
		p.metrics.ObserveFetch(p.Name(), "ok")
		p.writeThrough(ctx, symbol, bars)
		return bars, nil
	case err == nil, errors.Is(err, domain.ErrNoData):
		p.metrics.ObserveFetch(p.Name(), "no_data")
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrNoData)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	p.metrics.ObserveFetch(p.Name(), "error")
	if cached := p.readCache(ctx, symbol, r); len(cached) > 0 {
		p.metrics.ObserveFetch(p.Name(), "cache")
		p.log.Warn("upstream failed, serving cached bars",
			"symbol", symbol, "bars", len(cached), "err", err)
		return cached, nil
	}
	return nil, fmt.Errorf("fetching %s from %s: %w", symbol, p.Name(), err)
}

func (p *CachedProvider) writeThrough(ctx context.Context, symbol string, bars []domain.Bar) {
	if p.cache == nil {
		return
	}
	if err := p.cache.WriteBars(ctx, bars); err != nil {
		p.log.Warn("caching bars failed", "symbol", symbol, "err", err)
	}
}

func (p *CachedProvider) readCache(ctx context.Context, symbol string, r DateRange) []domain.Bar {
	if p.cache == nil {
		return nil
	}
	bars, err := p.cache.ReadBars(ctx, symbol, r.Start, r.End)
	if err != nil {
		p.log.Debug("reading cached bars failed", "symbol", symbol, "err", err)
		return nil
	}
	return bars
}
