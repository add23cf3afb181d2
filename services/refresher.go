package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"portfolio-tracker/observability"
)

// DefaultRefreshSchedule refreshes held quotes every five minutes.
const DefaultRefreshSchedule = "@every 5m"

const refreshTimeout = 30 * time.Second

// QuoteRefresher periodically re-fetches quotes for the tickers currently held
// so dashboard loads are served from a warm cache.
type QuoteRefresher struct {
	cache   *QuoteCache
	tickers func() []string
	cron    *cron.Cron
}

func NewQuoteRefresher(cache *QuoteCache, tickers func() []string) *QuoteRefresher {
	return &QuoteRefresher{
		cache:   cache,
		tickers: tickers,
		cron:    cron.New(),
	}
}

// Start registers the schedule (standard cron syntax or @every) and starts
// the cron goroutine.
func (r *QuoteRefresher) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}

	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return fmt.Errorf("invalid quote refresh schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	observability.Info("quote refresher started",
		"schedule", schedule,
		"provider", r.cache.Name())
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *QuoteRefresher) Stop() {
	<-r.cron.Stop().Done()
	observability.Info("quote refresher stopped")
}

// RunOnce refreshes every held ticker.
func (r *QuoteRefresher) RunOnce() {
	tickers := r.tickers()
	if len(tickers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	if err := r.cache.Refresh(ctx, tickers); err != nil {
		observability.WithProvider(r.cache.Name()).Warn("scheduled quote refresh failed",
			"tickers", len(tickers),
			"error", err)
		return
	}
	observability.Debug("scheduled quote refresh completed",
		"tickers", len(tickers),
		"duration", time.Since(start))
}
