package partials

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/models"
	"portfolio-tracker/valuation"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return buf.String()
}

func priced(ticker, shares, avg, price string, fallback bool) models.PricedPosition {
	p := models.NewPosition(ticker, decimal.RequireFromString(shares), decimal.RequireFromString(avg), "Growth", "Technology", "Large")
	cur := decimal.RequireFromString(price)
	value := p.Shares.Mul(cur)
	return models.PricedPosition{
		Position:      p,
		CurrentPrice:  cur,
		CurrentValue:  value,
		CostBasis:     p.CostBasis(),
		PL:            value.Sub(p.CostBasis()),
		PriceFallback: fallback,
	}
}

func TestPositionsTable(t *testing.T) {
	out := render(t, PositionsTable([]models.PricedPosition{
		priced("NVDA", "10", "100", "120", false),
		priced("PLTR", "5", "20", "15", true),
	}))

	for _, want := range []string{"NVDA", "$1,200.00", "+$200.00", "PLTR", "-$25.00", `class="loss"`, `class="fallback"`} {
		if !strings.Contains(out, want) {
			t.Errorf("positions table missing %q", want)
		}
	}
}

func TestPositionsTable_Empty(t *testing.T) {
	out := render(t, PositionsTable(nil))
	if !strings.Contains(out, "No positions yet") {
		t.Errorf("expected empty state, got %s", out)
	}
}

func TestKPISection(t *testing.T) {
	out := render(t, KPISection(models.PortfolioTotals{
		CurrentValue:   decimal.NewFromInt(1100),
		TotalCost:      decimal.NewFromInt(1000),
		TotalPL:        decimal.NewFromInt(100),
		TotalPLPercent: decimal.NewFromInt(10),
		Positions:      2,
	}))
	for _, want := range []string{"$1,100.00", "+$100.00", "+10.00%", "$1,000.00", ">2<"} {
		if !strings.Contains(out, want) {
			t.Errorf("KPIs missing %q in %s", want, out)
		}
	}
}

func TestDistributionCharts(t *testing.T) {
	out := render(t, DistributionCharts([]models.Distribution{{
		Dimension: models.DimensionMarketCap,
		Buckets: []models.Bucket{
			{Label: "Large", Value: decimal.NewFromInt(75), Percent: decimal.NewFromInt(75)},
			{Label: "Small", Value: decimal.NewFromInt(25), Percent: decimal.NewFromInt(25)},
		},
	}}))
	for _, want := range []string{`id="chart-market_cap"`, "By Market Cap", `data-labels="[&#34;Large&#34;,&#34;Small&#34;]"`, `data-values="[75,25]"`, "75.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("distribution missing %q in %s", want, out)
		}
	}
}

func TestPerformanceChart(t *testing.T) {
	out := render(t, PerformanceChart(models.Performance{
		Source: models.PerformanceSourceMock,
		Points: []models.PerformancePoint{{Label: "Jan", Portfolio: 100, Benchmark: 100}},
	}))
	if !strings.Contains(out, "illustrative") {
		t.Error("mock series should be labelled illustrative")
	}
	if !strings.Contains(out, `data-portfolio="[100]"`) {
		t.Errorf("missing series data: %s", out)
	}
}

func TestTransactionHistory(t *testing.T) {
	sell := models.TransactionRecord{
		Ticker:     "NVDA",
		Side:       models.TradeSideSell,
		Shares:     decimal.NewFromInt(2),
		Price:      decimal.NewFromInt(150),
		RealizedPL: decimal.NewFromInt(100),
		ExecutedAt: time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}
	out := render(t, TransactionHistory([]models.TransactionRecord{sell}))
	for _, want := range []string{"Mar 4 10:30", "side-sell", "+$100.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q in %s", want, out)
		}
	}

	if out := render(t, TransactionHistory(nil)); !strings.Contains(out, "No transactions recorded") {
		t.Errorf("expected empty state, got %s", out)
	}
}

func TestDashboard_OOBAndWarning(t *testing.T) {
	snap := &models.PortfolioSnapshot{
		QuoteSource: "mock",
		Warning:     "No quote for PLTR, valued at average cost.",
		AsOf:        time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}
	out := render(t, Dashboard(snap, models.Performance{}, nil, true))
	if !strings.Contains(out, `id="dashboard" hx-swap-oob="true"`) {
		t.Errorf("expected oob dashboard, got %s", out)
	}
	if !strings.Contains(out, "No quote for PLTR") {
		t.Error("warning banner missing")
	}

	out = render(t, Dashboard(snap, models.Performance{}, nil, false))
	if strings.Contains(out, "hx-swap-oob") {
		t.Error("inline dashboard must not be out-of-band")
	}
}

func TestAnalysisResult(t *testing.T) {
	out := render(t, AnalysisResult(models.Analysis{
		Provider:   "none",
		Paragraphs: []string{"<b>plain</b>"},
		Fallback:   true,
	}))
	if !strings.Contains(out, "analysis fallback") {
		t.Error("fallback class missing")
	}
	if strings.Contains(out, "<b>plain</b>") {
		t.Error("paragraph text must be escaped")
	}

	out = render(t, AnalysisResult(models.Analysis{Provider: "gemini", HTML: "<p><strong>ok</strong></p>"}))
	if !strings.Contains(out, "<strong>ok</strong>") {
		t.Error("rendered markdown should be emitted as HTML")
	}
}

func TestDCFCalculator_Defaults(t *testing.T) {
	out := render(t, DCFCalculator(config.DCFConfig{DefaultGrowth: 15, DefaultTerminal: 3, DefaultDiscount: 8.5}))
	for _, want := range []string{`name="growth_rate" type="number" step="any" required value="15"`, `value="3"`, `value="8.5"`} {
		if !strings.Contains(out, want) {
			t.Errorf("calculator missing %q", want)
		}
	}
}

func TestDCFResult(t *testing.T) {
	res, err := valuation.DCF(valuation.Input{Ticker: "MSFT", EPS: 10, GrowthRate: 10, TerminalGrowth: 3, DiscountRate: 9})
	if err != nil {
		t.Fatal(err)
	}
	price, mos := 100.0, 42.5
	out := render(t, DCFResult(&app.ValuationReport{Result: res, EPSSource: "input", CurrentPrice: &price, MarginOfSafety: &mos}))
	for _, want := range []string{"MSFT", "$10.00", "(input)", "$100.00", "+42.50%", "Projection"} {
		if !strings.Contains(out, want) {
			t.Errorf("result missing %q", want)
		}
	}
	if strings.Count(out, "<tr><td>") != valuation.ProjectionYears {
		t.Errorf("expected %d projection rows", valuation.ProjectionYears)
	}
}

func TestSettingsForm(t *testing.T) {
	out := render(t, SettingsForm([]settings.MaskedAPIKeyConfig{
		{ServiceName: settings.ServiceAlpaca, DisplayName: "Alpaca", APIKey: "****abcd", APISecret: "****wxyz", IsConfigured: true},
		{ServiceName: settings.ServiceBedrock, DisplayName: "AWS Bedrock", Region: "us-east-1"},
	}, false))

	for _, want := range []string{`placeholder="****abcd"`, `name="api_secret"`, `hx-delete="/api/settings/alpaca"`, `name="model_id"`, `value="us-east-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("settings form missing %q", want)
		}
	}
	if strings.Count(out, "hx-delete") != 1 {
		t.Error("only configured services get a remove button")
	}
}

func TestServiceStatus(t *testing.T) {
	out := render(t, ServiceStatus(settings.ValidationResult{Valid: false, Message: "invalid API credentials"}))
	if !strings.Contains(out, "status-failed") || !strings.Contains(out, "invalid API credentials") {
		t.Errorf("unexpected status markup: %s", out)
	}
}
