package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
	"portfolio-tracker/services"
	"portfolio-tracker/valuation"
)

// epsCacheTTL is how long a looked-up EPS stays in the store.
const epsCacheTTL = 24 * time.Hour

// ValuationRequest carries DCF assumptions in percent. A nil EPS means
// look it up.
type ValuationRequest struct {
	Ticker         string
	EPS            *float64
	GrowthRate     float64
	TerminalGrowth float64
	DiscountRate   float64
}

// ValuationReport is a DCF result plus where its EPS came from and, when a
// quote was available, how it compares to the market.
type ValuationReport struct {
	valuation.Result
	EPSSource      string   `json:"eps_source"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	MarginOfSafety *float64 `json:"margin_of_safety,omitempty"`
}

// Valuate runs the two-stage DCF for one ticker.
func (a *App) Valuate(ctx context.Context, req ValuationRequest) (*ValuationReport, error) {
	metrics := observability.GetMetrics()
	ticker := models.NormalizeTicker(req.Ticker)

	in := valuation.Input{
		Ticker:         ticker,
		GrowthRate:     req.GrowthRate,
		TerminalGrowth: req.TerminalGrowth,
		DiscountRate:   req.DiscountRate,
	}
	// reject bad rates before spending a lookup on the EPS
	if err := in.Validate(); err != nil {
		metrics.RecordValuation("invalid")
		return nil, err
	}

	source := "input"
	if req.EPS != nil {
		in.EPS = *req.EPS
	} else {
		if ticker == "" {
			metrics.RecordValuation("invalid")
			return nil, fmt.Errorf("%w: ticker is required", valuation.ErrInvalidInput)
		}
		eps, from, err := a.lookupEPS(ctx, ticker)
		if err != nil {
			metrics.RecordValuation("no_eps")
			return nil, err
		}
		in.EPS = eps.InexactFloat64()
		source = from
	}

	res, err := valuation.DCF(in)
	if err != nil {
		metrics.RecordValuation("invalid")
		return nil, err
	}
	metrics.RecordValuation("success")

	report := &ValuationReport{Result: res, EPSSource: source}
	if ticker != "" {
		a.attachPrice(ctx, ticker, report)
	}

	observability.WithTicker(ticker).Info("dcf computed",
		"eps", in.EPS,
		"eps_source", source,
		"intrinsic_value", res.IntrinsicValue)
	return report, nil
}

// lookupEPS tries the store cache, then the fundamentals provider.
func (a *App) lookupEPS(ctx context.Context, ticker string) (decimal.Decimal, string, error) {
	if a.store != nil {
		eps, ok, err := a.store.GetCachedEPS(ctx, ticker)
		if err != nil {
			observability.WithTicker(ticker).Warn("eps cache read failed", "error", err)
		} else if ok {
			return eps, "cache", nil
		}
	}

	providers, _ := a.current()
	if providers.Fundamentals == nil {
		return decimal.Zero, "", errors.Join(valuation.ErrEPSUnavailable, services.ErrNotConfigured)
	}

	eps, err := providers.Fundamentals.GetEPS(ctx, ticker)
	if err != nil {
		observability.WithTicker(ticker).Warn("eps lookup failed",
			"provider", providers.Fundamentals.Name(),
			"error", err)
		return decimal.Zero, "", errors.Join(valuation.ErrEPSUnavailable, err)
	}

	if a.store != nil {
		if err := a.store.SetCachedEPS(ctx, ticker, eps, epsCacheTTL); err != nil {
			observability.WithTicker(ticker).Warn("eps cache write failed", "error", err)
		}
	}
	return eps, providers.Fundamentals.Name(), nil
}

func (a *App) attachPrice(ctx context.Context, ticker string, report *ValuationReport) {
	_, cache := a.current()
	// mock prices for unheld tickers are noise
	if _, held := a.book.Get(ticker); !held && cache.Name() == services.MockProviderName {
		return
	}
	prices, err := cache.GetPrices(ctx, []string{ticker})
	if err != nil {
		return
	}
	price, ok := prices[ticker]
	if !ok || !price.IsPositive() {
		return
	}

	p := price.InexactFloat64()
	mos := report.Result.MarginOfSafety(p)
	report.CurrentPrice = &p
	report.MarginOfSafety = &mos
}
