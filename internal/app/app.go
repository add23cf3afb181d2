package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/models"
	"portfolio-tracker/observability"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/repository"
	"portfolio-tracker/services"
)

var (
	// ErrAnalysisBusy is returned when every analysis slot is taken.
	ErrAnalysisBusy = errors.New("analysis queue full, too many concurrent requests - try again later")
	// ErrSettingsDisabled is returned when no settings store is attached.
	ErrSettingsDisabled = errors.New("settings store not configured")
)

// HistoryLimit bounds the activity list restored from the database.
const HistoryLimit = 200

// Providers is the set of external clients the App talks to. Nil fields
// disable the matching feature; Quotes is always set.
type Providers struct {
	Quotes       services.QuoteProvider
	Fundamentals services.FundamentalsProvider
	Analyst      services.Analyst
	News         services.NewsProvider
}

// ProviderFactory builds Providers from the effective configuration.
type ProviderFactory func(ctx context.Context, cfg *config.Config, costs services.CostLookup) Providers

// DefaultProviders wires the real clients selected by cfg.
func DefaultProviders(ctx context.Context, cfg *config.Config, costs services.CostLookup) Providers {
	p := Providers{
		Quotes: services.NewQuoteProvider(cfg, costs),
		News:   services.NewNewsProvider(cfg),
	}

	if f, err := services.NewFundamentalsProvider(cfg); err != nil {
		observability.Info("EPS lookup disabled", "reason", err)
	} else {
		p.Fundamentals = f
	}

	if a, err := services.NewAnalyst(ctx, cfg); err != nil {
		observability.Info("portfolio analysis disabled", "provider", cfg.Analysis.Provider, "reason", err)
	} else {
		p.Analyst = a
	}

	return p
}

// App owns the book and the provider clients and implements every
// dashboard operation. Handlers and the desktop shell call into it.
type App struct {
	ctx       context.Context
	cfg       *config.Config
	book      *portfolio.Book
	store     repository.Store
	settings  *settings.Store
	validator *settings.Validator
	factory   ProviderFactory
	now       func() time.Time

	mu        sync.RWMutex
	providers Providers
	quotes    *services.QuoteCache
	refresher *services.QuoteRefresher

	// persistMu orders position writes so the last one stored is the
	// latest snapshot of the book.
	persistMu sync.Mutex

	perfMu      sync.RWMutex
	mockPerf    models.Performance
	uploadPerf  *models.Performance
	analysisSem chan struct{}
}

// Option customises an App.
type Option func(*App)

// WithStore enables write-through persistence.
func WithStore(store repository.Store) Option {
	return func(a *App) { a.store = store }
}

// WithSettings enables runtime API-key overrides.
func WithSettings(store *settings.Store, validator *settings.Validator) Option {
	return func(a *App) {
		a.settings = store
		a.validator = validator
	}
}

// WithProviderFactory replaces DefaultProviders.
func WithProviderFactory(f ProviderFactory) Option {
	return func(a *App) { a.factory = f }
}

// WithRand seeds the generated performance series.
func WithRand(rng *rand.Rand) Option {
	return func(a *App) {
		a.mockPerf = portfolio.MockPerformance(rng, portfolio.DefaultPerformanceStart, portfolio.DefaultPerformanceMonths)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds the App with the seed book (when enabled) and providers
// resolved from cfg plus any stored settings.
func New(cfg *config.Config, opts ...Option) *App {
	var seed []models.Position
	if cfg.Portfolio.SeedDefaultPositions {
		seed = portfolio.DefaultSeed()
	}

	limit := cfg.Analysis.ConcurrencyLimit
	if limit <= 0 {
		limit = 1
	}

	a := &App{
		ctx:         context.Background(),
		cfg:         cfg,
		book:        portfolio.NewBook(seed),
		factory:     DefaultProviders,
		now:         time.Now,
		analysisSem: make(chan struct{}, limit),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.mockPerf.Points == nil {
		seed := uint64(time.Now().UnixNano())
		a.mockPerf = portfolio.MockPerformance(rand.New(rand.NewPCG(seed, seed>>1)),
			portfolio.DefaultPerformanceStart, portfolio.DefaultPerformanceMonths)
	}

	a.RebuildProviders(a.ctx)
	return a
}

// Startup loads persisted state and starts the quote refresher. It is
// called once, by the server or by the desktop runtime.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	if a.store != nil {
		a.restore(ctx)
	}

	if a.cfg.Quotes.RefreshSchedule != "" {
		a.mu.Lock()
		a.startRefresherLocked()
		a.mu.Unlock()
	}
}

// Shutdown stops background work and closes the store.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	if a.refresher != nil {
		a.refresher.Stop()
		a.refresher = nil
	}
	a.mu.Unlock()

	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) restore(ctx context.Context) {
	positions, err := a.store.GetPositions(ctx)
	switch {
	case err != nil:
		observability.Error("failed to load positions, keeping in-memory book", "error", err)
	case len(positions) > 0:
		a.book.Replace(positions)
		observability.Info("loaded positions from database", "count", len(positions))
	case a.book.Len() > 0:
		a.persistPositions(ctx)
	}

	if records, err := a.store.GetTransactions(ctx, HistoryLimit); err != nil {
		observability.Warn("failed to load transaction history", "error", err)
	} else {
		// stored newest first, the book keeps oldest first
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
		a.book.RestoreHistory(records)
	}

	if n, err := a.store.CleanExpiredCache(ctx); err != nil {
		observability.Warn("failed to clean expired cache", "error", err)
	} else if n > 0 {
		observability.Debug("cleaned expired cache entries", "count", n)
	}
}

// RebuildProviders re-resolves every client from the environment config
// overlaid with stored settings, and swaps them in.
func (a *App) RebuildProviders(ctx context.Context) {
	effective := a.effectiveConfig()
	p := a.factory(ctx, effective, a.costLookup)
	if p.Quotes == nil {
		p.Quotes = services.NewMockQuoteProvider(a.costLookup, nil)
	}

	ttl := time.Duration(a.cfg.Quotes.CacheTTLSeconds) * time.Second
	cache := services.NewQuoteCache(p.Quotes, ttl)

	a.mu.Lock()
	defer a.mu.Unlock()

	running := a.refresher != nil
	if running {
		a.refresher.Stop()
		a.refresher = nil
	}

	a.providers = p
	a.quotes = cache

	if running {
		a.startRefresherLocked()
	}

	observability.Info("providers ready",
		"quotes", p.Quotes.Name(),
		"fundamentals", providerName(p.Fundamentals),
		"analysis", providerName(p.Analyst),
		"news", p.News != nil)
}

func (a *App) startRefresherLocked() {
	r := services.NewQuoteRefresher(a.quotes, a.book.Tickers)
	if err := r.Start(a.cfg.Quotes.RefreshSchedule); err != nil {
		observability.Error("quote refresher not started", "error", err)
		return
	}
	a.refresher = r
}

func (a *App) effectiveConfig() *config.Config {
	effective := *a.cfg
	if a.settings != nil {
		a.settings.ApplyTo(&effective)
	}
	return &effective
}

// costLookup feeds the mock quote generator with average costs.
func (a *App) costLookup(ticker string) (decimal.Decimal, bool) {
	p, ok := a.book.Get(ticker)
	if !ok {
		return decimal.Zero, false
	}
	return p.AvgCost, true
}

func (a *App) current() (Providers, *services.QuoteCache) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.providers, a.quotes
}

// Config returns the environment configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// AnalysisSemCapacity returns the capacity of the analysis semaphore (for testing)
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}

// providerName returns "none" for a nil provider.
func providerName(p any) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "none"
}
