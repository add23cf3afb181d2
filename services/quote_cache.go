package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/observability"
)

// DefaultQuoteCacheTTL is used when the configured TTL is not positive.
const DefaultQuoteCacheTTL = time.Minute

type cachedQuote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// QuoteCache keeps the last price per ticker for a TTL in front of a
// QuoteProvider. Only tickers that are missing or stale hit the provider.
type QuoteCache struct {
	provider QuoteProvider
	ttl      time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	quotes map[string]cachedQuote
}

func NewQuoteCache(provider QuoteProvider, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteCacheTTL
	}
	return &QuoteCache{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		quotes:   make(map[string]cachedQuote),
	}
}

// Name reports the wrapped provider.
func (c *QuoteCache) Name() string { return c.provider.Name() }

// TTL returns the cache's time-to-live duration.
func (c *QuoteCache) TTL() time.Duration { return c.ttl }

// GetPrices serves fresh entries from memory and fetches the rest. When the
// provider fails, the fresh subset is still returned alongside the error.
func (c *QuoteCache) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	tickers = uniqueTickers(tickers)
	prices := make(map[string]decimal.Decimal, len(tickers))
	metrics := observability.GetMetrics()

	var missing []string
	c.mu.RLock()
	now := c.now()
	for _, t := range tickers {
		if q, ok := c.quotes[t]; ok && now.Sub(q.fetchedAt) < c.ttl {
			prices[t] = q.price
			continue
		}
		missing = append(missing, t)
	}
	c.mu.RUnlock()

	for range prices {
		metrics.RecordQuoteCache(true)
	}
	if len(missing) == 0 {
		return prices, nil
	}
	for range missing {
		metrics.RecordQuoteCache(false)
	}

	fetched, err := c.fetch(ctx, missing)
	for t, p := range fetched {
		prices[t] = p
	}
	return prices, err
}

// Refresh re-fetches tickers regardless of age.
func (c *QuoteCache) Refresh(ctx context.Context, tickers []string) error {
	tickers = uniqueTickers(tickers)
	if len(tickers) == 0 {
		return nil
	}
	_, err := c.fetch(ctx, tickers)
	return err
}

func (c *QuoteCache) fetch(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	metrics := observability.GetMetrics()
	name := c.provider.Name()

	fetched, err := c.provider.GetPrices(ctx, tickers)
	if err != nil {
		metrics.RecordQuoteFetch(name, "error")
		return nil, err
	}
	metrics.RecordQuoteFetch(name, "success")

	c.mu.Lock()
	now := c.now()
	for t, p := range fetched {
		c.quotes[t] = cachedQuote{price: p, fetchedAt: now}
	}
	c.mu.Unlock()
	return fetched, nil
}

// Invalidate drops every cached price.
func (c *QuoteCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes = make(map[string]cachedQuote)
}

// Len returns the number of cached tickers, fresh or stale.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
