package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classification defaults for positions opened by a buy of an unheld ticker
const (
	DefaultCategory  = "Misc"
	DefaultSector    = "Misc"
	DefaultMarketCap = "Unknown"
)

// Position is a holding of a single ticker
type Position struct {
	ID        uuid.UUID       `json:"id"`
	Ticker    string          `json:"ticker"`
	Shares    decimal.Decimal `json:"shares"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	Category  string          `json:"category"`
	Sector    string          `json:"sector"`
	MarketCap string          `json:"market_cap"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewPosition creates a position with a fresh ID and normalised ticker
func NewPosition(ticker string, shares, avgCost decimal.Decimal, category, sector, marketCap string) Position {
	now := time.Now()
	return Position{
		ID:        uuid.New(),
		Ticker:    NormalizeTicker(ticker),
		Shares:    shares,
		AvgCost:   avgCost,
		Category:  category,
		Sector:    sector,
		MarketCap: marketCap,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CostBasis returns shares × average cost
func (p Position) CostBasis() decimal.Decimal {
	return p.Shares.Mul(p.AvgCost)
}

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// PricedPosition is a position valued at a current price. It is derived, never stored.
type PricedPosition struct {
	Position
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	PL           decimal.Decimal `json:"pl"`
	PLPercent    decimal.Decimal `json:"pl_percent"`
	// PriceFallback is set when no quote was available and avg cost was used
	PriceFallback bool `json:"price_fallback"`
}

// IsGain reports whether the position is at or above its cost basis
func (p PricedPosition) IsGain() bool {
	return !p.PL.IsNegative()
}

// PortfolioTotals is the fold of all priced positions
type PortfolioTotals struct {
	CurrentValue   decimal.Decimal `json:"current_value"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalPL        decimal.Decimal `json:"total_pl"`
	TotalPLPercent decimal.Decimal `json:"total_pl_percent"`
	Positions      int             `json:"positions"`
}

// IsGain reports whether the portfolio is at or above its cost basis
func (t PortfolioTotals) IsGain() bool {
	return !t.TotalPL.IsNegative()
}
