package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-tracker/importer"
	"portfolio-tracker/models"
	"portfolio-tracker/observability"
	"portfolio-tracker/portfolio"
)

// Notification texts shown after an upload.
const (
	UploadSuccessMessage = "Portfolio uploaded successfully!"
	UploadFailureMessage = "Error reading Excel file."
	QuoteFailureWarning  = "Live quotes are unavailable, prices fall back to average cost."
)

// MaxQuoteTickers caps an ad-hoc quote lookup.
const MaxQuoteTickers = 50

var (
	// ErrNoTickers is returned by Quotes when nothing usable was requested.
	ErrNoTickers = errors.New("at least one ticker is required")
	// ErrTooManyTickers is returned when a lookup exceeds MaxQuoteTickers.
	ErrTooManyTickers = fmt.Errorf("at most %d tickers per request", MaxQuoteTickers)
)

// Snapshot prices the book and derives totals and distributions. A quote
// failure is never fatal: affected positions are valued at average cost and
// the snapshot carries a warning.
func (a *App) Snapshot(ctx context.Context) *models.PortfolioSnapshot {
	_, quotes := a.current()
	positions := a.book.Positions()

	tickers := make([]string, len(positions))
	for i, p := range positions {
		tickers[i] = p.Ticker
	}

	var warning string
	prices := map[string]decimal.Decimal{}
	if len(tickers) > 0 {
		fetched, err := quotes.GetPrices(ctx, tickers)
		if err != nil {
			observability.WithProvider(quotes.Name()).Warn("quote fetch failed, using average cost",
				"tickers", len(tickers),
				"error", err)
			warning = QuoteFailureWarning
		}
		if fetched != nil {
			prices = fetched
		}
	}

	priced, totals := portfolio.Price(positions, prices)
	if warning == "" {
		warning = missingQuotesWarning(priced)
	}

	observability.GetMetrics().SetPortfolio(totals.CurrentValue.InexactFloat64(), totals.Positions)

	return &models.PortfolioSnapshot{
		Positions:     priced,
		Totals:        totals,
		Distributions: portfolio.AllDistributions(priced),
		QuoteSource:   quotes.Name(),
		Warning:       warning,
		AsOf:          a.now(),
	}
}

func missingQuotesWarning(priced []models.PricedPosition) string {
	var missing []string
	for _, p := range priced {
		if p.PriceFallback {
			missing = append(missing, p.Ticker)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("No quote for %s, valued at average cost.", strings.Join(missing, ", "))
}

// Positions returns the unpriced book.
func (a *App) Positions() []models.Position {
	return a.book.Positions()
}

// ApplyTransaction runs a buy or sell against the book and writes the
// result through to the store when one is attached.
func (a *App) ApplyTransaction(ctx context.Context, tx models.Transaction) (*models.TransactionRecord, error) {
	metrics := observability.GetMetrics()

	rec, err := a.book.Apply(tx)
	if err != nil {
		metrics.RecordTransaction(string(tx.Side), "rejected")
		observability.WithTicker(models.NormalizeTicker(tx.Ticker)).Info("transaction rejected",
			"side", tx.Side,
			"shares", tx.Shares.String(),
			"error", err)
		return nil, err
	}
	metrics.RecordTransaction(string(rec.Side), "applied")

	observability.WithTicker(rec.Ticker).Info("transaction applied",
		"side", rec.Side,
		"shares", rec.Shares.String(),
		"price", rec.Price.String(),
		"shares_after", rec.SharesAfter.String())

	if a.store != nil {
		a.persistPositions(ctx)
		if err := a.store.CreateTransaction(ctx, rec); err != nil {
			observability.WithError(err).Error("failed to record transaction", "ticker", rec.Ticker)
		}
	}

	return rec, nil
}

// History returns the most recent transactions first.
func (a *App) History(limit int) []models.TransactionRecord {
	return a.book.History(limit)
}

// Import replaces the book with the positions in an xlsx workbook. On any
// parse error the book is left untouched.
func (a *App) Import(ctx context.Context, r io.Reader) (*importer.Result, error) {
	metrics := observability.GetMetrics()

	res, err := importer.Import(r)
	if err != nil {
		metrics.RecordImport("failed")
		observability.Warn("workbook import failed", "error", err)
		return nil, err
	}

	a.book.Replace(res.Positions)
	if _, cache := a.current(); cache != nil {
		// mock prices are derived from average cost
		cache.Invalidate()
	}

	a.perfMu.Lock()
	a.uploadPerf = res.Performance
	a.perfMu.Unlock()

	metrics.RecordImport("success")
	observability.Info("workbook imported",
		"sheet", res.Sheet,
		"positions", len(res.Positions),
		"skipped_rows", res.Skipped,
		"performance", res.Performance != nil)

	if a.store != nil {
		a.persistPositions(ctx)
	}
	return res, nil
}

// Export writes the book, and an uploaded performance series if any, as xlsx.
func (a *App) Export(w io.Writer) error {
	a.perfMu.RLock()
	perf := a.uploadPerf
	a.perfMu.RUnlock()

	return importer.Export(w, a.book.Positions(), perf)
}

// Performance returns the uploaded series, or the generated one.
func (a *App) Performance() models.Performance {
	a.perfMu.RLock()
	defer a.perfMu.RUnlock()

	if a.uploadPerf != nil {
		return *a.uploadPerf
	}
	return a.mockPerf
}

// Distributions returns the category, sector and market-cap breakdowns.
func (a *App) Distributions(ctx context.Context) []models.Distribution {
	return a.Snapshot(ctx).Distributions
}

// Quotes looks up prices for arbitrary tickers through the quote cache.
// Tickers without a price are left out of the result.
func (a *App) Quotes(ctx context.Context, tickers []string) ([]models.Quote, error) {
	var wanted []string
	seen := make(map[string]bool)
	for _, t := range tickers {
		t = models.NormalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		wanted = append(wanted, t)
	}
	if len(wanted) == 0 {
		return nil, ErrNoTickers
	}
	if len(wanted) > MaxQuoteTickers {
		return nil, ErrTooManyTickers
	}

	_, cache := a.current()
	prices, err := cache.GetPrices(ctx, wanted)
	if err != nil && len(prices) == 0 {
		return nil, fmt.Errorf("quote lookup failed: %w", err)
	}

	at := a.now()
	out := make([]models.Quote, 0, len(prices))
	for _, t := range wanted {
		if price, ok := prices[t]; ok {
			out = append(out, models.Quote{Symbol: t, Price: price, Source: cache.Name(), Timestamp: at})
		}
	}
	return out, nil
}

// persistPositions writes the current book. The snapshot is taken under
// persistMu, so a write that started earlier can never land after a newer one.
func (a *App) persistPositions(ctx context.Context) {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	if err := a.store.ReplacePositions(ctx, a.book.Positions()); err != nil {
		observability.WithError(err).Error("failed to persist positions")
	}
}
