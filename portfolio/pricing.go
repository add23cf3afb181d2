package portfolio

import (
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

var hundred = decimal.NewFromInt(100)

// Price values positions at the given prices. A missing or non-positive price
// falls back to the position's average cost, so P/L for that position is zero.
func Price(positions []models.Position, prices map[string]decimal.Decimal) ([]models.PricedPosition, models.PortfolioTotals) {
	priced := make([]models.PricedPosition, 0, len(positions))
	totals := models.PortfolioTotals{
		CurrentValue: decimal.Zero,
		TotalCost:    decimal.Zero,
	}

	for _, p := range positions {
		price, ok := prices[p.Ticker]
		fallback := !ok || !price.IsPositive()
		if fallback {
			price = p.AvgCost
		}

		value := p.Shares.Mul(price)
		cost := p.CostBasis()
		pl := value.Sub(cost)

		priced = append(priced, models.PricedPosition{
			Position:      p,
			CurrentPrice:  price,
			CurrentValue:  value,
			CostBasis:     cost,
			PL:            pl,
			PLPercent:     percentOf(pl, cost),
			PriceFallback: fallback,
		})

		totals.CurrentValue = totals.CurrentValue.Add(value)
		totals.TotalCost = totals.TotalCost.Add(cost)
	}

	totals.TotalPL = totals.CurrentValue.Sub(totals.TotalCost)
	totals.TotalPLPercent = percentOf(totals.TotalPL, totals.TotalCost)
	totals.Positions = len(priced)

	return priced, totals
}

// percentOf returns part / whole × 100 rounded to 2 places, or 0 when whole <= 0
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
