package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/observability"
)

const (
	// MockProviderName labels quotes produced without a live provider.
	MockProviderName = "mock"

	defaultMockDelay = 500 * time.Millisecond
)

// mockFallbackCost seeds tickers the cost lookup does not know.
var mockFallbackCost = decimal.NewFromInt(100)

// CostLookup returns the average cost held for a ticker.
type CostLookup func(ticker string) (decimal.Decimal, bool)

// MockQuoteProvider invents prices within -18%..+22% of average cost so the
// dashboard works with no API key configured.
type MockQuoteProvider struct {
	costs CostLookup
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockQuoteProvider builds a generator. A nil rng uses a time-seeded one.
func NewMockQuoteProvider(costs CostLookup, rng *rand.Rand) *MockQuoteProvider {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &MockQuoteProvider{
		costs: costs,
		delay: defaultMockDelay,
		rng:   rng,
	}
}

// WithDelay sets the artificial latency; zero disables it.
func (m *MockQuoteProvider) WithDelay(d time.Duration) *MockQuoteProvider {
	m.delay = d
	return m
}

func (m *MockQuoteProvider) Name() string { return MockProviderName }

func (m *MockQuoteProvider) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	tickers = uniqueTickers(tickers)
	prices := make(map[string]decimal.Decimal, len(tickers))

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ticker := range tickers {
		cost := mockFallbackCost
		if m.costs != nil {
			if c, ok := m.costs(ticker); ok && c.IsPositive() {
				cost = c
			}
		}
		factor := decimal.NewFromFloat(1 + (m.rng.Float64()-0.45)*0.4)
		prices[ticker] = cost.Mul(factor).Round(2)
	}

	observability.Debug("generated mock quotes", "count", len(prices))
	return prices, nil
}
