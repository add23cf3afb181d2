package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/models"
	"portfolio-tracker/services"
)

var fixedNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

type stubQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (s *stubQuotes) Name() string { return "stub" }

func (s *stubQuotes) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

type stubAnalyst struct {
	text    string
	err     error
	prompt  string
	system  string
	started chan struct{}
	release chan struct{}
}

func (s *stubAnalyst) Name() string { return "stub-analyst" }

func (s *stubAnalyst) Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system = systemPrompt
	s.prompt = userPrompt
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	return s.text, s.err
}

type stubFundamentals struct {
	eps   map[string]decimal.Decimal
	calls int
}

func (s *stubFundamentals) Name() string { return "stub-eps" }

func (s *stubFundamentals) GetEPS(ctx context.Context, ticker string) (decimal.Decimal, error) {
	s.calls++
	if eps, ok := s.eps[ticker]; ok {
		return eps, nil
	}
	return decimal.Zero, services.ErrNoData
}

type stubNews struct {
	query    string
	articles []models.NewsArticle
	err      error
}

func (s *stubNews) GetHeadlines(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	s.query = query
	return s.articles, s.err
}

// fakeStore is an in-memory repository.Store.
type fakeStore struct {
	mu           sync.Mutex
	positions    []models.Position
	transactions []models.TransactionRecord // newest first
	eps          map[string]decimal.Decimal
	healthErr    error
	writeErr     error
	replaced     int
	closed       bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{eps: make(map[string]decimal.Decimal)}
}

func (f *fakeStore) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeStore) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeStore) GetPositions(ctx context.Context) ([]models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Position(nil), f.positions...), nil
}

func (f *fakeStore) ReplacePositions(ctx context.Context, positions []models.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.replaced++
	f.positions = append([]models.Position(nil), positions...)
	return nil
}

func (f *fakeStore) CreateTransaction(ctx context.Context, rec *models.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.transactions = append([]models.TransactionRecord{*rec}, f.transactions...)
	return nil
}

func (f *fakeStore) GetTransactions(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.transactions)
	if limit < n {
		n = limit
	}
	return append([]models.TransactionRecord(nil), f.transactions[:n]...), nil
}

func (f *fakeStore) GetCachedEPS(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eps, ok := f.eps[ticker]
	return eps, ok, nil
}

func (f *fakeStore) SetCachedEPS(ctx context.Context, ticker string, eps decimal.Decimal, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eps[ticker] = eps
	return nil
}

func (f *fakeStore) CleanExpiredCache(ctx context.Context) (int64, error) { return 0, nil }

var errUpstream = errors.New("upstream exploded")

func staticFactory(p Providers) ProviderFactory {
	return func(ctx context.Context, cfg *config.Config, costs services.CostLookup) Providers {
		return p
	}
}

// newTestApp builds an App over the seed book with the given providers.
func newTestApp(p Providers, opts ...Option) *App {
	if p.Quotes == nil {
		p.Quotes = &stubQuotes{}
	}
	base := []Option{
		WithProviderFactory(staticFactory(p)),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return fixedNow }),
	}
	return New(config.NewTestConfig(), append(base, opts...)...)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// gatedStore holds its first ReplacePositions call until release is closed.
type gatedStore struct {
	*fakeStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedStore) ReplacePositions(ctx context.Context, positions []models.Position) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.fakeStore.ReplacePositions(ctx, positions)
}
