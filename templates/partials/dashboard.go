package partials

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"portfolio-tracker/models"
	c "portfolio-tracker/templates/components"
)

// Dashboard is the region refreshed after every mutation. With oob set it
// is emitted as an htmx out-of-band swap.
func Dashboard(snap *models.PortfolioSnapshot, perf models.Performance, history []models.TransactionRecord, oob bool) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<section id="dashboard"`)
		if oob {
			h.Attr("hx-swap-oob", "true")
		}
		h.Raw(`>`)
		if snap.Warning != "" {
			h.Raw(`<div class="warning-banner" role="alert">`)
			h.Text(snap.Warning)
			h.Raw(`</div>`)
		}
		h.Render(KPISection(snap.Totals))
		h.Raw(`<div class="charts">`)
		h.Render(PerformanceChart(perf))
		h.Render(DistributionCharts(snap.Distributions))
		h.Raw(`</div>`)
		h.Render(PositionsTable(snap.Positions))
		h.Render(TransactionHistory(history))
		h.Raw(`<p class="as-of">Quotes: `)
		h.Text(snap.QuoteSource)
		h.Raw(` &middot; `)
		h.Text(snap.AsOf.Format("Jan 2, 2006 15:04"))
		h.Raw(`</p></section>`)
	})
}

// KPISection shows total value, total P/L, cost basis and position count.
func KPISection(t models.PortfolioTotals) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="kpis" class="kpi-grid">`)
		h.Render(c.KPICard("Total Value", c.Money(t.CurrentValue), "", ""))
		h.Render(c.KPICard("Total P/L", c.SignedMoney(t.TotalPL), c.SignedPercent(t.TotalPLPercent), c.Tone(t.TotalPL)))
		h.Render(c.KPICard("Cost Basis", c.Money(t.TotalCost), "", ""))
		h.Render(c.KPICard("Positions", strconv.Itoa(t.Positions), "", ""))
		h.Raw(`</div>`)
	})
}

// PositionsTable lists priced holdings.
func PositionsTable(positions []models.PricedPosition) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="positions" class="card"><h2>Positions</h2>`)
		if len(positions) == 0 {
			h.Raw(`<p class="empty">No positions yet. Upload a spreadsheet or record a buy.</p></div>`)
			return
		}
		h.Raw(`<table class="positions-table"><thead><tr>` +
			`<th>Ticker</th><th>Shares</th><th>Avg Cost</th><th>Price</th><th>Value</th>` +
			`<th>P/L</th><th>P/L %</th><th>Category</th><th>Sector</th><th>Market Cap</th>` +
			`</tr></thead><tbody>`)
		for _, p := range positions {
			h.Raw(`<tr><td class="ticker">`)
			h.Text(p.Ticker)
			h.Raw(`</td><td>`)
			h.Text(c.Shares(p.Shares))
			h.Raw(`</td><td>`)
			h.Text(c.Money(p.AvgCost))
			h.Raw(`</td><td`)
			if p.PriceFallback {
				h.Attr("class", "fallback")
				h.Attr("title", "No quote, valued at average cost")
			}
			h.Raw(`>`)
			h.Text(c.Money(p.CurrentPrice))
			h.Raw(`</td><td>`)
			h.Text(c.Money(p.CurrentValue))
			h.Raw(`</td><td`)
			h.Attr("class", c.Tone(p.PL))
			h.Raw(`>`)
			h.Text(c.SignedMoney(p.PL))
			h.Raw(`</td><td`)
			h.Attr("class", c.Tone(p.PL))
			h.Raw(`>`)
			h.Text(c.SignedPercent(p.PLPercent))
			h.Raw(`</td><td>`)
			h.Text(p.Category)
			h.Raw(`</td><td>`)
			h.Text(p.Sector)
			h.Raw(`</td><td>`)
			h.Text(p.MarketCap)
			h.Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table></div>`)
	})
}

// DistributionCharts emits one doughnut canvas per dimension. The page
// script builds the charts from the data attributes.
func DistributionCharts(dists []models.Distribution) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="distributions" class="distribution-grid">`)
		for _, d := range dists {
			h.Raw(`<div class="card chart-card"><h3>`)
			h.Text("By " + d.Dimension.Title())
			h.Raw(`</h3><canvas data-chart="doughnut"`)
			h.Attr("id", "chart-"+string(d.Dimension))
			h.Attr("data-labels", mustJSON(d.Labels()))
			h.Attr("data-values", mustJSON(d.Values()))
			h.Raw(`></canvas><ul class="legend">`)
			for _, b := range d.Buckets {
				h.Raw(`<li><span>`)
				h.Text(b.Label)
				h.Raw(`</span> <span>`)
				h.Text(c.Percent(b.Percent))
				h.Raw(`</span></li>`)
			}
			h.Raw(`</ul></div>`)
		}
		h.Raw(`</div>`)
	})
}

// PerformanceChart is the portfolio versus S&P 500 line chart.
func PerformanceChart(perf models.Performance) templ.Component {
	return c.Func(func(h *c.Writer) {
		labels := make([]string, len(perf.Points))
		portfolio := make([]float64, len(perf.Points))
		benchmark := make([]float64, len(perf.Points))
		for i, p := range perf.Points {
			labels[i] = p.Label
			portfolio[i] = p.Portfolio
			benchmark[i] = p.Benchmark
		}

		h.Raw(`<div id="performance" class="card chart-card wide"><h3>Performance vs S&amp;P 500`)
		if perf.Source == models.PerformanceSourceMock {
			h.Raw(` <small>(illustrative)</small>`)
		}
		h.Raw(`</h3><canvas id="chart-performance" data-chart="line"`)
		h.Attr("data-labels", mustJSON(labels))
		h.Attr("data-portfolio", mustJSON(portfolio))
		h.Attr("data-benchmark", mustJSON(benchmark))
		h.Raw(`></canvas></div>`)
	})
}

// TransactionHistory lists recent transactions, newest first.
func TransactionHistory(records []models.TransactionRecord) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="history" class="card"><h2>Recent Activity</h2>`)
		if len(records) == 0 {
			h.Raw(`<p class="empty">No transactions recorded.</p></div>`)
			return
		}
		h.Raw(`<table class="history-table"><thead><tr><th>When</th><th>Side</th><th>Ticker</th>` +
			`<th>Shares</th><th>Price</th><th>Realized P/L</th></tr></thead><tbody>`)
		for _, r := range records {
			h.Raw(`<tr><td>`)
			h.Text(r.ExecutedAt.Format("Jan 2 15:04"))
			h.Raw(`</td><td`)
			h.Attr("class", "side-"+string(r.Side))
			h.Raw(`>`)
			h.Text(string(r.Side))
			h.Raw(`</td><td>`)
			h.Text(r.Ticker)
			h.Raw(`</td><td>`)
			h.Text(c.Shares(r.Shares))
			h.Raw(`</td><td>`)
			h.Text(c.Money(r.Price))
			h.Raw(`</td><td`)
			if r.Side == models.TradeSideSell {
				h.Attr("class", c.Tone(r.RealizedPL))
				h.Raw(`>`)
				h.Text(c.SignedMoney(r.RealizedPL))
			} else {
				h.Raw(`>&ndash;`)
			}
			h.Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table></div>`)
	})
}

// QuotesTable renders an ad-hoc quote lookup.
func QuotesTable(quotes []models.Quote) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<table class="quotes-table"><thead><tr><th>Ticker</th><th>Price</th><th>Source</th></tr></thead><tbody>`)
		for _, q := range quotes {
			h.Raw(`<tr><td>`)
			h.Text(q.Symbol)
			h.Raw(`</td><td>`)
			h.Text(c.Money(q.Price))
			h.Raw(`</td><td>`)
			h.Text(q.Source)
			h.Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table>`)
	})
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(b)
}
