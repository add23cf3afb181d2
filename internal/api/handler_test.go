package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"portfolio-tracker/config"
	"portfolio-tracker/importer"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/models"
	"portfolio-tracker/services"

	"github.com/shopspring/decimal"
)

type stubQuotes struct {
	prices map[string]decimal.Decimal
	err    error
}

func (s *stubQuotes) Name() string { return "stub" }

func (s *stubQuotes) GetPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

type stubFundamentals struct {
	eps decimal.Decimal
	err error
}

func (s *stubFundamentals) Name() string { return "stub-fundamentals" }

func (s *stubFundamentals) GetEPS(context.Context, string) (decimal.Decimal, error) {
	return s.eps, s.err
}

type stubAnalyst struct {
	text string
	err  error
}

func (s *stubAnalyst) Name() string { return "stub-analyst" }

func (s *stubAnalyst) Analyze(context.Context, string, string) (string, error) {
	return s.text, s.err
}

func seedPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"NVDA": decimal.NewFromInt(500),
		"PLTR": decimal.NewFromInt(20),
		"SMCI": decimal.NewFromInt(800),
		"SOFI": decimal.NewFromInt(8),
		"VRT":  decimal.NewFromInt(60),
	}
}

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

// testApp creates an App over the seed book with stubbed providers
func testApp(t *testing.T, p app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	if p.Quotes == nil {
		p.Quotes = &stubQuotes{prices: seedPrices()}
	}
	opts = append(opts, app.WithProviderFactory(func(context.Context, *config.Config, services.CostLookup) app.Providers {
		return p
	}))
	return app.New(testConfig(), opts...)
}

// testAppWithSettings creates an App with an encrypted settings store in a temp dir
func testAppWithSettings(t *testing.T, validator *settings.Validator) *app.App {
	t.Helper()
	store, err := settings.NewStore(t.TempDir(), "test-passphrase")
	if err != nil {
		t.Fatalf("failed to create settings store: %v", err)
	}
	return testApp(t, app.Providers{}, app.WithSettings(store, validator))
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	return NewRouter(NewHandler(application, cfg), cfg)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, path string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["error"]
}

func TestHandler_Index(t *testing.T) {
	t.Run("serves dashboard at root", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Errorf("expected Content-Type text/html, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, "Portfolio Tracker") || !strings.Contains(body, "NVDA") {
			t.Error("expected dashboard with seed positions")
		}
		if strings.Contains(body, `id="settings"`) {
			t.Error("settings panel should be hidden without a settings store")
		}
	})

	t.Run("serves dashboard at /index.html", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/index.html", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})

	t.Run("index method not allowed", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", w.Code)
		}
	})
}

func TestHandler_Health(t *testing.T) {
	w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var report app.HealthReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Store != "disabled" {
		t.Errorf("store = %q, want disabled", report.Store)
	}
	if report.Positions != 5 {
		t.Errorf("positions = %d, want 5", report.Positions)
	}
	if report.AnalysisProvider != "none" {
		t.Errorf("analysis provider = %q, want none", report.AnalysisProvider)
	}
}

func TestHandler_GetPortfolio(t *testing.T) {
	t.Run("json snapshot", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var resp struct {
			Count  int                    `json:"count"`
			Totals models.PortfolioTotals `json:"totals"`
			Dists  []models.Distribution  `json:"distributions"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Count != 5 {
			t.Errorf("count = %d, want 5", resp.Count)
		}
		if !resp.Totals.TotalCost.Equal(decimal.RequireFromString("13310.5")) {
			t.Errorf("total cost = %s, want 13310.5", resp.Totals.TotalCost)
		}
		// 5000 + 2000 + 4000 + 1600 + 1200
		if !resp.Totals.CurrentValue.Equal(decimal.NewFromInt(13800)) {
			t.Errorf("current value = %s, want 13800", resp.Totals.CurrentValue)
		}
		if len(resp.Dists) != 3 {
			t.Errorf("expected 3 distributions, got %d", len(resp.Dists))
		}
	})

	t.Run("quote failure falls back with warning", func(t *testing.T) {
		a := testApp(t, app.Providers{Quotes: &stubQuotes{err: errors.New("upstream down")}})
		w := serve(testRouter(a), httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var snap models.PortfolioSnapshot
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatal(err)
		}
		if snap.Warning != app.QuoteFailureWarning {
			t.Errorf("warning = %q", snap.Warning)
		}
		if !snap.Totals.TotalPL.IsZero() {
			t.Errorf("expected zero P/L at avg cost, got %s", snap.Totals.TotalPL)
		}
	})

	t.Run("htmx returns dashboard partial", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		req.Header.Set("HX-Request", "true")
		w := serve(testRouter(testApp(t, app.Providers{})), req)

		if !strings.Contains(w.Body.String(), `id="dashboard"`) {
			t.Error("expected dashboard partial")
		}
	})
}

func TestHandler_GetPositions(t *testing.T) {
	w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var positions []models.PricedPosition
	if err := json.NewDecoder(w.Body).Decode(&positions); err != nil {
		t.Fatal(err)
	}
	if len(positions) != 5 || positions[0].Ticker != "NVDA" {
		t.Fatalf("unexpected positions: %+v", positions)
	}
	if !positions[0].CurrentValue.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("NVDA value = %s, want 5000", positions[0].CurrentValue)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	req.Header.Set("HX-Request", "true")
	w = serve(testRouter(testApp(t, app.Providers{})), req)
	if !strings.Contains(w.Body.String(), "positions-table") {
		t.Error("expected positions table partial")
	}
}

func TestHandler_CreateTransaction(t *testing.T) {
	t.Run("json buy averages cost", func(t *testing.T) {
		a := testApp(t, app.Providers{})
		router := testRouter(a)

		w := serve(router, jsonRequest(http.MethodPost, "/api/transactions",
			`{"ticker":"nvda","shares":"10","price":"549.25","side":"buy"}`))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}

		var rec models.TransactionRecord
		if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
			t.Fatal(err)
		}
		// (10 × 450.75 + 10 × 549.25) / 20
		if !rec.AvgCostAfter.Equal(decimal.NewFromInt(500)) || !rec.SharesAfter.Equal(decimal.NewFromInt(20)) {
			t.Errorf("after = %s @ %s, want 20 @ 500", rec.SharesAfter, rec.AvgCostAfter)
		}
	})

	t.Run("form sell", func(t *testing.T) {
		a := testApp(t, app.Providers{})
		w := serve(testRouter(a), formRequest(http.MethodPost, "/api/transactions", url.Values{
			"ticker": {"SOFI"}, "shares": {"50"}, "price": {"9.25"}, "side": {"sell"},
		}))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}

		var rec models.TransactionRecord
		if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
			t.Fatal(err)
		}
		// (9.25 - 7.25) × 50
		if !rec.RealizedPL.Equal(decimal.NewFromInt(100)) {
			t.Errorf("realized = %s, want 100", rec.RealizedPL)
		}
		if len(a.History(10)) != 1 {
			t.Error("transaction missing from history")
		}
	})

	t.Run("side is case insensitive", func(t *testing.T) {
		a := testApp(t, app.Providers{})
		router := testRouter(a)

		w := serve(router, jsonRequest(http.MethodPost, "/api/transactions",
			`{"ticker":"PLTR","shares":"5","price":"25","side":"BUY"}`))
		if w.Code != http.StatusCreated {
			t.Fatalf("json: expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		w = serve(router, formRequest(http.MethodPost, "/api/transactions", url.Values{
			"ticker": {"PLTR"}, "shares": {"5"}, "price": {"25"}, "side": {" Sell "},
		}))
		if w.Code != http.StatusCreated {
			t.Fatalf("form: expected status 201, got %d: %s", w.Code, w.Body.String())
		}

		history := a.History(10)
		if len(history) != 2 || history[0].Side != models.TradeSideSell || history[1].Side != models.TradeSideBuy {
			t.Errorf("unexpected history %+v", history)
		}
	})

	t.Run("oversell is rejected", func(t *testing.T) {
		a := testApp(t, app.Providers{})
		w := serve(testRouter(a), jsonRequest(http.MethodPost, "/api/transactions",
			`{"ticker":"SMCI","shares":"6","price":"900","side":"sell"}`))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
		if msg := decodeError(t, w); !strings.Contains(msg, "not enough shares") {
			t.Errorf("error = %q", msg)
		}
	})

	validationCases := []struct {
		name string
		body string
	}{
		{"missing ticker", `{"shares":"1","price":"1","side":"buy"}`},
		{"bad side", `{"ticker":"AAPL","shares":"1","price":"1","side":"short"}`},
		{"bad symbol", `{"ticker":"AA PL!","shares":"1","price":"1","side":"buy"}`},
		{"zero shares", `{"ticker":"AAPL","shares":"0","price":"1","side":"buy"}`},
		{"invalid json", `{"ticker":`},
	}
	for _, tc := range validationCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(testRouter(testApp(t, app.Providers{})), jsonRequest(http.MethodPost, "/api/transactions", tc.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("htmx gets notification and oob dashboard", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/transactions", url.Values{
			"ticker": {"AAPL"}, "shares": {"2"}, "price": {"200"}, "side": {"buy"},
		})
		req.Header.Set("HX-Request", "true")
		w := serve(testRouter(testApp(t, app.Providers{})), req)

		body := w.Body.String()
		if !strings.Contains(body, "Bought 2 AAPL at $200.00.") {
			t.Errorf("missing success notification: %s", body)
		}
		if !strings.Contains(body, `id="dashboard" hx-swap-oob="true"`) {
			t.Error("missing out-of-band dashboard")
		}
	})

	t.Run("htmx error keeps 200 and skips swap", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/transactions", url.Values{
			"ticker": {"AAPL"}, "shares": {"1"}, "price": {"1"}, "side": {"sell"},
		})
		req.Header.Set("HX-Request", "true")
		w := serve(testRouter(testApp(t, app.Providers{})), req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if w.Header().Get("HX-Reswap") != "none" {
			t.Error("expected HX-Reswap: none")
		}
		if !strings.Contains(w.Body.String(), "notification-error") {
			t.Errorf("expected error notification: %s", w.Body.String())
		}
	})
}

func TestHandler_GetTransactions(t *testing.T) {
	a := testApp(t, app.Providers{})
	router := testRouter(a)
	for _, body := range []string{
		`{"ticker":"AAPL","shares":"1","price":"100","side":"buy"}`,
		`{"ticker":"MSFT","shares":"1","price":"300","side":"buy"}`,
	} {
		if w := serve(router, jsonRequest(http.MethodPost, "/api/transactions", body)); w.Code != http.StatusCreated {
			t.Fatalf("setup transaction failed: %d", w.Code)
		}
	}

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/transactions?limit=1", nil))
	var history []models.TransactionRecord
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Ticker != "MSFT" {
		t.Errorf("expected newest transaction only, got %+v", history)
	}
}

func uploadRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "portfolio.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/positions/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_ImportExport(t *testing.T) {
	t.Run("upload replaces the book", func(t *testing.T) {
		var wb bytes.Buffer
		positions := []models.Position{
			models.NewPosition("MSFT", decimal.NewFromInt(3), decimal.NewFromInt(400), "Software", "Technology", "Large"),
		}
		if err := importer.Export(&wb, positions, nil); err != nil {
			t.Fatal(err)
		}

		a := testApp(t, app.Providers{})
		w := serve(testRouter(a), uploadRequest(t, "file", wb.Bytes()))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp ImportResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Message != app.UploadSuccessMessage || resp.Positions != 1 {
			t.Errorf("unexpected response: %+v", resp)
		}
		if got := a.Positions(); len(got) != 1 || got[0].Ticker != "MSFT" {
			t.Errorf("book not replaced: %+v", got)
		}
	})

	t.Run("garbage upload leaves the book alone", func(t *testing.T) {
		a := testApp(t, app.Providers{})
		w := serve(testRouter(a), uploadRequest(t, "file", []byte("not a workbook")))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
		if msg := decodeError(t, w); !strings.HasPrefix(msg, app.UploadFailureMessage) {
			t.Errorf("error = %q", msg)
		}
		if len(a.Positions()) != 5 {
			t.Error("book changed after failed upload")
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), uploadRequest(t, "other", []byte("x")))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("export downloads xlsx", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/api/positions/export", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if w.Header().Get("Content-Type") != xlsxContentType {
			t.Errorf("content type = %s", w.Header().Get("Content-Type"))
		}

		res, err := importer.Import(w.Body)
		if err != nil {
			t.Fatalf("exported workbook does not re-import: %v", err)
		}
		if len(res.Positions) != 5 {
			t.Errorf("expected 5 positions, got %d", len(res.Positions))
		}
	})
}

func TestHandler_PerformanceAndDistribution(t *testing.T) {
	router := testRouter(testApp(t, app.Providers{}))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/performance", nil))
	var perf models.Performance
	if err := json.NewDecoder(w.Body).Decode(&perf); err != nil {
		t.Fatal(err)
	}
	if perf.Source != models.PerformanceSourceMock || len(perf.Points) == 0 {
		t.Errorf("unexpected performance: %s with %d points", perf.Source, len(perf.Points))
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/distribution", nil))
	var dists []models.Distribution
	if err := json.NewDecoder(w.Body).Decode(&dists); err != nil {
		t.Fatal(err)
	}
	if len(dists) != 3 || dists[0].Dimension != models.DimensionCategory {
		t.Fatalf("unexpected distributions: %+v", dists)
	}
	sum := decimal.Zero
	for _, b := range dists[1].Buckets {
		sum = sum.Add(b.Percent)
	}
	if !sum.Round(6).Equal(decimal.NewFromInt(100)) {
		t.Errorf("sector percentages sum to %s", sum)
	}
}

func TestHandler_Quotes(t *testing.T) {
	router := testRouter(testApp(t, app.Providers{}))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/quotes?tickers=vrt,nvda,NVDA,UNKNOWN", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var quotes []models.Quote
	if err := json.NewDecoder(w.Body).Decode(&quotes); err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 || quotes[0].Symbol != "VRT" || quotes[1].Symbol != "NVDA" {
		t.Errorf("unexpected quotes: %+v", quotes)
	}

	if w := serve(router, httptest.NewRequest(http.MethodGet, "/api/quotes", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("empty ticker list: expected 400, got %d", w.Code)
	}
	if w := serve(router, httptest.NewRequest(http.MethodGet, "/api/quotes?tickers=A$B", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("bad symbol: expected 400, got %d", w.Code)
	}
}

func TestHandler_Analysis(t *testing.T) {
	t.Run("unconfigured analyst answers with fallback", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodPost, "/api/analysis", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var analysis models.Analysis
		if err := json.NewDecoder(w.Body).Decode(&analysis); err != nil {
			t.Fatal(err)
		}
		if !analysis.Fallback || analysis.Text != services.AnalysisFallbackText {
			t.Errorf("unexpected analysis: %+v", analysis)
		}
	})

	t.Run("model output rendered for htmx", func(t *testing.T) {
		a := testApp(t, app.Providers{Analyst: &stubAnalyst{text: "Well **diversified**.\nWatch SMCI."}})
		req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
		req.Header.Set("HX-Request", "true")
		w := serve(testRouter(a), req)

		body := w.Body.String()
		if !strings.Contains(body, "<strong>diversified</strong>") || !strings.Contains(body, "stub-analyst") {
			t.Errorf("unexpected analysis markup: %s", body)
		}
	})

	t.Run("model failure still 200", func(t *testing.T) {
		a := testApp(t, app.Providers{Analyst: &stubAnalyst{err: errors.New("boom")}})
		w := serve(testRouter(a), httptest.NewRequest(http.MethodPost, "/api/analysis", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var analysis models.Analysis
		if err := json.NewDecoder(w.Body).Decode(&analysis); err != nil {
			t.Fatal(err)
		}
		if !analysis.Fallback {
			t.Error("expected fallback analysis")
		}
	})
}

func TestHandler_DCF(t *testing.T) {
	t.Run("explicit eps with defaults", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), jsonRequest(http.MethodPost, "/api/valuation/dcf", `{"eps":5}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var report app.ValuationReport
		if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
			t.Fatal(err)
		}
		if report.EPSSource != "input" || report.Input.GrowthRate != 15 || report.Input.DiscountRate != 8.5 {
			t.Errorf("unexpected report input: %+v (%s)", report.Input, report.EPSSource)
		}
		if report.IntrinsicValue <= 0 || len(report.Projections) != 10 {
			t.Errorf("unexpected result: %+v", report.Result)
		}
	})

	t.Run("looked up eps with margin of safety", func(t *testing.T) {
		a := testApp(t, app.Providers{Fundamentals: &stubFundamentals{eps: decimal.NewFromInt(12)}})
		w := serve(testRouter(a), formRequest(http.MethodPost, "/api/valuation/dcf", url.Values{
			"ticker": {"nvda"}, "growth_rate": {"10"}, "terminal_growth": {"3"}, "discount_rate": {"9"},
		}))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var report app.ValuationReport
		if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
			t.Fatal(err)
		}
		if report.EPSSource != "stub-fundamentals" || report.Input.EPS != 12 {
			t.Errorf("eps = %v from %s", report.Input.EPS, report.EPSSource)
		}
		if report.CurrentPrice == nil || *report.CurrentPrice != 500 || report.MarginOfSafety == nil {
			t.Errorf("expected price and margin of safety, got %+v", report)
		}
	})

	t.Run("discount not above terminal", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), jsonRequest(http.MethodPost, "/api/valuation/dcf",
			`{"eps":5,"terminal_growth":9,"discount_rate":9}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("overflowing assumptions", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), jsonRequest(http.MethodPost, "/api/valuation/dcf",
			`{"eps":5,"growth_rate":1e40,"terminal_growth":3,"discount_rate":8.5}`))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
		}
		if msg := decodeError(t, w); !strings.Contains(msg, "invalid valuation input") {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("eps lookup not configured", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), jsonRequest(http.MethodPost, "/api/valuation/dcf", `{"ticker":"AAPL"}`))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", w.Code)
		}
		if msg := decodeError(t, w); msg != "could not fetch EPS, check the ticker" {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("eps provider failure", func(t *testing.T) {
		a := testApp(t, app.Providers{Fundamentals: &stubFundamentals{err: services.ErrProviderUnavailable}})
		w := serve(testRouter(a), jsonRequest(http.MethodPost, "/api/valuation/dcf", `{"ticker":"AAPL"}`))
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
	})

	t.Run("unknown ticker", func(t *testing.T) {
		a := testApp(t, app.Providers{Fundamentals: &stubFundamentals{err: services.ErrNoData}})
		w := serve(testRouter(a), jsonRequest(http.MethodPost, "/api/valuation/dcf", `{"ticker":"ZZZZ"}`))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("non-numeric form rate", func(t *testing.T) {
		w := serve(testRouter(testApp(t, app.Providers{})), formRequest(http.MethodPost, "/api/valuation/dcf", url.Values{
			"eps": {"5"}, "growth_rate": {"fast"},
		}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("htmx result partial", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/valuation/dcf", url.Values{"eps": {"5"}})
		req.Header.Set("HX-Request", "true")
		w := serve(testRouter(testApp(t, app.Providers{})), req)
		if !strings.Contains(w.Body.String(), `id="dcf-result"`) {
			t.Errorf("expected DCF result partial: %s", w.Body.String())
		}
	})
}

func TestJSONResponse_EncodeFailure(t *testing.T) {
	h := NewHandler(testApp(t, app.Providers{}), testConfig())
	w := httptest.NewRecorder()
	h.jsonResponse(w, map[string]float64{"intrinsic_value": math.Inf(1)})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if msg := decodeError(t, w); msg == "" {
		t.Error("expected an error message in the body")
	}
}

func TestHandler_SettingsDisabled(t *testing.T) {
	w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestHandler_Settings(t *testing.T) {
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","price":190.5}]`))
	}))
	defer probe.Close()

	validator := settings.NewValidatorWithEndpoints(settings.Endpoints{FMP: probe.URL}, probe.Client())
	a := testAppWithSettings(t, validator)
	router := testRouter(a)

	w := serve(router, jsonRequest(http.MethodPost, "/api/settings", `{"service_name":"fmp","api_key":"good-key"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	var masked []settings.MaskedAPIKeyConfig
	if err := json.NewDecoder(w.Body).Decode(&masked); err != nil {
		t.Fatal(err)
	}
	var fmp *settings.MaskedAPIKeyConfig
	for i := range masked {
		if masked[i].ServiceName == settings.ServiceFMP {
			fmp = &masked[i]
		}
	}
	if fmp == nil || !fmp.IsConfigured || fmp.APIKey != "****-key" {
		t.Fatalf("unexpected masked fmp config: %+v", fmp)
	}

	// blank key re-tests the stored one
	w = serve(router, httptest.NewRequest(http.MethodPost, "/api/settings/fmp/test", nil))
	var result settings.ValidationResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Errorf("stored key should validate: %+v", result)
	}

	w = serve(router, jsonRequest(http.MethodPost, "/api/settings/fmp/test", `{"api_key":"bad-key"}`))
	result = settings.ValidationResult{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Error("posted bad key should fail validation")
	}

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/settings/fmp", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	masked, _ = a.Settings()
	for _, m := range masked {
		if m.ServiceName == settings.ServiceFMP && m.IsConfigured {
			t.Error("fmp still configured after delete")
		}
	}
}

func TestHandler_SettingsValidation(t *testing.T) {
	router := testRouter(testAppWithSettings(t, settings.NewValidator()))

	cases := []struct {
		name string
		req  *http.Request
	}{
		{"unknown service", jsonRequest(http.MethodPost, "/api/settings", `{"service_name":"bloomberg","api_key":"x"}`)},
		{"missing service", jsonRequest(http.MethodPost, "/api/settings", `{"api_key":"x"}`)},
		{"bad base url", jsonRequest(http.MethodPost, "/api/settings", `{"service_name":"alpaca","base_url":"not a url"}`)},
		{"delete unknown", httptest.NewRequest(http.MethodDelete, "/api/settings/bloomberg", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := serve(router, tc.req); w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodOptions, "/api/portfolio", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestCORS_OriginList(t *testing.T) {
	h := CORS("http://localhost:5173, https://folio.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := map[string]string{
		"https://folio.example": "https://folio.example",
		"https://evil.example":  "",
		"":                      "",
	}
	for origin, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %q: Access-Control-Allow-Origin = %q, want %q", origin, got, want)
		}
	}
}

func TestHandler_Metrics(t *testing.T) {
	w := serve(testRouter(testApp(t, app.Providers{})), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestParseLimitParam(t *testing.T) {
	h := NewHandler(testApp(t, app.Providers{}), testConfig())
	tests := map[string]int{"": 50, "?limit=10": 10, "?limit=-1": 50, "?limit=abc": 50}
	for query, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/transactions"+query, nil)
		if got := h.ParseLimitParam(req, 50); got != want {
			t.Errorf("ParseLimitParam(%q) = %d, want %d", query, got, want)
		}
	}
}
