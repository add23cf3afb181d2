package portfolio

import (
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

// DefaultSeed returns the demo holdings shown on first launch
func DefaultSeed() []models.Position {
	return []models.Position{
		models.NewPosition("NVDA", decimal.NewFromInt(10), decimal.RequireFromString("450.75"), "Software", "Technology", "Large"),
		models.NewPosition("PLTR", decimal.NewFromInt(100), decimal.RequireFromString("18.50"), "AI infra", "Technology", "Mid"),
		models.NewPosition("SMCI", decimal.NewFromInt(5), decimal.RequireFromString("880.20"), "Hardware", "Technology", "Mid"),
		models.NewPosition("SOFI", decimal.NewFromInt(200), decimal.RequireFromString("7.25"), "FinTech", "Financials", "Small"),
		models.NewPosition("VRT", decimal.NewFromInt(20), decimal.RequireFromString("55.10"), "Industrials", "Industrials", "Large"),
	}
}
