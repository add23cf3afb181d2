package main

import (
	"context"

	"portfolio-tracker/internal/app"
	"portfolio-tracker/models"

	"github.com/shopspring/decimal"
)

// Desktop is bound to the Wails runtime. The window renders the same htmx
// dashboard as the server; these methods are the JavaScript-callable
// surface for the native menu and scripting.
type Desktop struct {
	app *app.App
}

// NewDesktop wraps an App for binding
func NewDesktop(a *app.App) *Desktop {
	return &Desktop{app: a}
}

// startup is called when the app starts
func (d *Desktop) startup(ctx context.Context) {
	d.app.Startup(ctx)
}

// shutdown is called when the app is closing
func (d *Desktop) shutdown(ctx context.Context) {
	d.app.Shutdown(ctx)
}

// Snapshot returns the priced portfolio
func (d *Desktop) Snapshot() *models.PortfolioSnapshot {
	return d.app.Snapshot(context.Background())
}

// RecordTransaction applies a buy or a sell. Amounts are decimal strings.
func (d *Desktop) RecordTransaction(ticker, shares, price, side string) (*models.TransactionRecord, error) {
	s, err := decimal.NewFromString(shares)
	if err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return d.app.ApplyTransaction(context.Background(), models.Transaction{
		Ticker: ticker,
		Shares: s,
		Price:  p,
		Side:   models.TradeSide(side),
	})
}

// Valuate runs the DCF. A nil eps (null from JavaScript) means look it up.
func (d *Desktop) Valuate(ticker string, eps *float64, growth, terminal, discount float64) (*app.ValuationReport, error) {
	return d.app.Valuate(context.Background(), app.ValuationRequest{
		Ticker:         ticker,
		EPS:            eps,
		GrowthRate:     growth,
		TerminalGrowth: terminal,
		DiscountRate:   discount,
	})
}

// Analyze runs the AI portfolio review
func (d *Desktop) Analyze() (models.Analysis, error) {
	return d.app.Analyze(context.Background())
}
