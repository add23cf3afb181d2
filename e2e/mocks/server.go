// Package mocks provides HTTP mock servers for external APIs used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer stands in for FMP, NewsAPI and an OpenAI-compatible chat endpoint.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	quotes       map[string]FMPQuote
	newsArticles []NewsArticle
	analysis     string

	// Error injection
	fmpError      error
	newsAPIError  error
	analysisError error

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Body   string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		quotes:     make(map[string]FMPQuote),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP routes requests to the matching mock handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 64<<10))

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   string(body),
	})
	m.mu.Unlock()

	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/api/v3/quote-short/"):
		m.handleFMPQuoteShort(w, r, strings.TrimPrefix(path, "/api/v3/quote-short/"))
	case strings.HasPrefix(path, "/api/v3/quote/"):
		m.handleFMPQuote(w, r, strings.TrimPrefix(path, "/api/v3/quote/"))
	case path == "/v2/everything":
		m.handleNewsAPI(w, r)
	case path == "/v1/chat/completions":
		m.handleChatCompletion(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many logged requests had a path starting with prefix.
func (m *MockServer) CountRequests(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, entry := range m.requestLog {
		if strings.HasPrefix(entry.Path, prefix) {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetQuote configures the price, and optionally the EPS, for a ticker.
func (m *MockServer) SetQuote(symbol string, price float64, eps *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = FMPQuote{Symbol: symbol, Name: symbol + " Inc", Price: price, EPS: eps}
}

// RemoveQuote makes the ticker unknown to FMP.
func (m *MockServer) RemoveQuote(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, symbol)
}

// SetFMPError configures FMP to return an error.
func (m *MockServer) SetFMPError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fmpError = err
}

// SetNewsArticles configures the news articles response.
func (m *MockServer) SetNewsArticles(articles []NewsArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsArticles = articles
}

// SetNewsAPIError configures NewsAPI to return an error.
func (m *MockServer) SetNewsAPIError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newsAPIError = err
}

// SetAnalysis configures the text returned by the chat endpoint.
func (m *MockServer) SetAnalysis(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = text
}

// SetAnalysisError configures the chat endpoint to return an error.
func (m *MockServer) SetAnalysisError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisError = err
}

func (m *MockServer) setDefaults() {
	prices := map[string]float64{
		"NVDA": 500, "PLTR": 20, "SMCI": 800, "SOFI": 8, "VRT": 60, "AAPL": 190,
	}
	for symbol, price := range prices {
		m.quotes[symbol] = FMPQuote{Symbol: symbol, Name: symbol + " Inc", Price: price}
	}
	eps := 6.5
	m.quotes["AAPL"] = FMPQuote{Symbol: "AAPL", Name: "Apple Inc", Price: 190, EPS: &eps}

	m.newsArticles = generateDefaultNewsArticles(5)
	m.analysis = "## Summary\n\nThe portfolio is concentrated in **technology**.\n\n- Trim the largest winner\n- Add a defensive position"
}

func (m *MockServer) authorized(w http.ResponseWriter, key string) bool {
	if key != ValidAPIKey {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (m *MockServer) handleFMPQuoteShort(w http.ResponseWriter, r *http.Request, tickers string) {
	if !m.authorized(w, r.URL.Query().Get("apikey")) {
		return
	}

	m.mu.RLock()
	err := m.fmpError
	rows := make([]FMPQuote, 0)
	for _, symbol := range strings.Split(tickers, ",") {
		if q, ok := m.quotes[symbol]; ok {
			rows = append(rows, FMPQuote{Symbol: q.Symbol, Price: q.Price, Volume: 1_000_000})
		}
	}
	m.mu.RUnlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (m *MockServer) handleFMPQuote(w http.ResponseWriter, r *http.Request, symbol string) {
	if !m.authorized(w, r.URL.Query().Get("apikey")) {
		return
	}

	m.mu.RLock()
	err := m.fmpError
	q, ok := m.quotes[symbol]
	m.mu.RUnlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, []FMPQuote{})
		return
	}
	writeJSON(w, []FMPQuote{q})
}

func (m *MockServer) handleNewsAPI(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(w, r.Header.Get("X-Api-Key")) {
		return
	}

	m.mu.RLock()
	err := m.newsAPIError
	articles := m.newsArticles
	m.mu.RUnlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, newsResponse{Status: "ok", TotalResults: len(articles), Articles: articles})
}

func (m *MockServer) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(w, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")) {
		return
	}

	m.mu.RLock()
	err := m.analysisError
	text := m.analysis
	m.mu.RUnlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, chatCompletion{
		ID:      "chatcmpl-e2e",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "gpt-4o",
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func generateDefaultNewsArticles(count int) []NewsArticle {
	articles := make([]NewsArticle, count)
	now := time.Now()

	for i := 0; i < count; i++ {
		articles[i] = NewsArticle{
			Source:      map[string]string{"id": "test-source", "name": "Test News"},
			Author:      "Test Author",
			Title:       fmt.Sprintf("Market update %d", i+1),
			Description: fmt.Sprintf("Description of market update %d", i+1),
			URL:         fmt.Sprintf("https://example.com/news/%d", i+1),
			PublishedAt: now.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
		}
	}

	return articles
}
