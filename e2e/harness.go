// Package e2e provides end-to-end testing infrastructure for the portfolio tracker.
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"portfolio-tracker/config"
	"portfolio-tracker/e2e/mocks"
	"portfolio-tracker/internal/api"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/repository"
	"portfolio-tracker/services"
)

// TestHarness wires the real router, app and providers to a mock upstream.
// A database is used only when E2E_DATABASE_URL is set.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	repo       *repository.Repository
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies.
func (h *TestHarness) Setup() error {
	h.mockServer = mocks.NewMockServer()
	h.config = h.createTestConfig()

	opts := []app.Option{
		app.WithProviderFactory(h.providers),
		app.WithRand(rand.New(rand.NewPCG(7, 11))),
	}

	if dbURL := os.Getenv("E2E_DATABASE_URL"); dbURL != "" {
		repo, err := repository.NewRepository(h.ctx, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to test database: %w", err)
		}
		h.repo = repo
		if err := h.cleanupTestData(); err != nil {
			return err
		}
		opts = append(opts, app.WithStore(repo))
	}

	store, err := settings.NewStore(h.t.TempDir(), "e2e-passphrase")
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	validator := settings.NewValidatorWithEndpoints(settings.Endpoints{
		FMP:     h.mockServer.URL(),
		NewsAPI: h.mockServer.URL(),
	}, nil)
	opts = append(opts, app.WithSettings(store, validator))

	h.app = app.New(h.config, opts...)
	h.app.Startup(h.ctx)

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.repo != nil {
		if err := h.cleanupTestData(); err != nil {
			h.t.Log(err)
		}
	}

	// Shutdown closes the repository
	if h.app != nil {
		h.app.Shutdown(context.Background())
	}

	if h.cancel != nil {
		h.cancel()
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Repository returns the test database repository, or nil when running in memory.
func (h *TestHarness) Repository() *repository.Repository {
	return h.repo
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs a JSON request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	req := newRequest(method, path, body)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoHTMXRequest performs a form-encoded HTMX request and returns the response.
func (h *TestHarness) DoHTMXRequest(method, path string, form string) *httptest.ResponseRecorder {
	req := newRequest(method, path, form)
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("HX-Request", "true")

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// Upload posts a workbook to the import endpoint.
func (h *TestHarness) Upload(filename string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		h.t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		h.t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/positions/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// ResetDatabase clears all test data from the database.
func (h *TestHarness) ResetDatabase() error {
	if h.repo == nil {
		return nil
	}
	return h.cleanupTestData()
}

func newRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return httptest.NewRequest(method, path, r)
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.Quotes.Provider = config.QuoteProviderFMP
	cfg.FMP.APIKey = mocks.ValidAPIKey
	cfg.NewsAPI.APIKey = mocks.ValidAPIKey
	cfg.Analysis.Provider = config.AnalysisProviderOpenAI
	cfg.OpenAI.APIKey = mocks.ValidAPIKey
	cfg.OpenAI.BaseURL = h.mockServer.URL() + "/v1/"
	return cfg
}

// providers builds the real REST clients pointed at the mock server.
func (h *TestHarness) providers(ctx context.Context, cfg *config.Config, costs services.CostLookup) app.Providers {
	retry := services.RetryConfig{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}

	fmp := services.NewFMPService(cfg.FMP.APIKey,
		services.WithBaseURL(h.mockServer.URL()+"/api/v3"),
		services.WithRetryConfig(retry))
	news := services.NewNewsAPIService(cfg.NewsAPI.APIKey,
		services.WithBaseURL(h.mockServer.URL()+"/v2"),
		services.WithRetryConfig(retry))

	p := app.Providers{Quotes: fmp, Fundamentals: fmp, News: news}
	if analyst, err := services.NewOpenAIService(cfg); err == nil {
		p.Analyst = analyst
	} else {
		h.t.Logf("analysis disabled: %v", err)
	}
	return p
}

func (h *TestHarness) cleanupTestData() error {
	queries := []string{
		"DELETE FROM transactions",
		"DELETE FROM positions",
		"DELETE FROM market_data_cache",
	}

	for _, q := range queries {
		if _, err := h.repo.Pool().Exec(h.ctx, q); err != nil {
			return fmt.Errorf("cleanup query failed: %s: %w", q, err)
		}
	}

	return nil
}
