package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of collectors exported on /metrics.
type Metrics struct {
	TransactionsTotal  *prometheus.CounterVec
	ImportsTotal       *prometheus.CounterVec
	PortfolioValue     prometheus.Gauge
	PortfolioPositions prometheus.Gauge

	QuoteFetchesTotal *prometheus.CounterVec
	QuoteCacheTotal   *prometheus.CounterVec

	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	AnalysisErrorsTotal   *prometheus.CounterVec

	ValuationsTotal *prometheus.CounterVec

	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

var (
	latencyBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	analysisBuckets = []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120}
	sizeBuckets     = prometheus.ExponentialBuckets(100, 10, 6)
)

var (
	globalMetrics *Metrics
	metricsMu     sync.Mutex
)

// builder registers collectors under the portfolio_tracker namespace.
type builder struct {
	f promauto.Factory
}

func (b builder) counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return b.f.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_tracker", Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func (b builder) histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return b.f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portfolio_tracker", Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (b builder) gauge(subsystem, name, help string) prometheus.Gauge {
	return b.f.NewGauge(prometheus.GaugeOpts{
		Namespace: "portfolio_tracker", Subsystem: subsystem, Name: name, Help: help,
	})
}

// NewMetrics registers every collector with reg, or with the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	b := builder{f: promauto.With(reg)}

	return &Metrics{
		TransactionsTotal:  b.counter("portfolio", "transactions_total", "Buy and sell transactions by outcome.", "side", "status"),
		ImportsTotal:       b.counter("portfolio", "imports_total", "Spreadsheet uploads by outcome.", "status"),
		PortfolioValue:     b.gauge("portfolio", "current_value", "Market value of the portfolio at the last snapshot."),
		PortfolioPositions: b.gauge("portfolio", "positions", "Open positions at the last snapshot."),

		QuoteFetchesTotal: b.counter("quotes", "fetches_total", "Quote fetches by provider and outcome.", "provider", "status"),
		QuoteCacheTotal:   b.counter("quotes", "cache_lookups_total", "Quote cache lookups by result.", "result"),

		AnalysisRequestsTotal: b.counter("analysis", "requests_total", "Portfolio analysis requests.", "provider"),
		AnalysisDuration:      b.histogram("analysis", "duration_seconds", "Portfolio analysis latency.", analysisBuckets, "provider", "status"),
		AnalysisErrorsTotal:   b.counter("analysis", "errors_total", "Portfolio analysis failures.", "provider", "error_type"),

		ValuationsTotal: b.counter("valuation", "dcf_total", "DCF valuations by outcome.", "status"),

		ExternalAPIRequestsTotal: b.counter("external_api", "requests_total", "Outbound provider calls.", "service", "operation"),
		ExternalAPIErrorsTotal:   b.counter("external_api", "errors_total", "Failed outbound provider calls.", "service", "operation", "error_type"),
		ExternalAPIDuration:      b.histogram("external_api", "duration_seconds", "Outbound provider call latency.", latencyBuckets, "service", "operation"),

		DBQueryDuration: b.histogram("database", "query_duration_seconds", "Database statement latency.", latencyBuckets, "operation", "table"),
		DBQueryTotal:    b.counter("database", "queries_total", "Database statements executed.", "operation", "table"),
		DBErrorsTotal:   b.counter("database", "errors_total", "Failed database statements.", "operation", "table"),

		HTTPRequestsTotal:   b.counter("http", "requests_total", "HTTP requests by route and status.", "method", "path", "status_code"),
		HTTPRequestDuration: b.histogram("http", "request_duration_seconds", "HTTP request latency.", latencyBuckets, "method", "path"),
		HTTPResponseSize:    b.histogram("http", "response_size_bytes", "HTTP response body size.", sizeBuckets, "method", "path"),

		CircuitBreakerState: b.f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "portfolio_tracker",
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Breaker state per provider: 0 closed, 1 half-open, 2 open.",
		}, []string{"service"}),
		CircuitBreakerTrips: b.counter("circuit_breaker", "trips_total", "Transitions into the open state.", "service"),
	}
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = NewMetrics(nil)
	}
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return InitMetrics()
}

// RecordTransaction records an applied or rejected transaction
func (m *Metrics) RecordTransaction(side, status string) {
	m.TransactionsTotal.WithLabelValues(side, status).Inc()
}

// RecordImport records a spreadsheet upload outcome
func (m *Metrics) RecordImport(status string) {
	m.ImportsTotal.WithLabelValues(status).Inc()
}

// SetPortfolio records the value and size of the latest snapshot
func (m *Metrics) SetPortfolio(value float64, positions int) {
	m.PortfolioValue.Set(value)
	m.PortfolioPositions.Set(float64(positions))
}

// RecordQuoteFetch records a quote fetch against a provider
func (m *Metrics) RecordQuoteFetch(provider, status string) {
	m.QuoteFetchesTotal.WithLabelValues(provider, status).Inc()
}

// RecordQuoteCache records a cache hit or miss
func (m *Metrics) RecordQuoteCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QuoteCacheTotal.WithLabelValues(result).Inc()
}

// RecordAnalysisRequest records an AI analysis request
func (m *Metrics) RecordAnalysisRequest(provider string) {
	m.AnalysisRequestsTotal.WithLabelValues(provider).Inc()
}

// RecordAnalysisDuration records the duration of an AI analysis
func (m *Metrics) RecordAnalysisDuration(provider, status string, duration time.Duration) {
	m.AnalysisDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordAnalysisError records an analysis error
func (m *Metrics) RecordAnalysisError(provider, errorType string) {
	m.AnalysisErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordValuation records a DCF valuation outcome
func (m *Metrics) RecordValuation(status string) {
	m.ValuationsTotal.WithLabelValues(status).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAnalysis records the analysis duration and status
func (t *Timer) ObserveAnalysis(provider, status string) {
	t.metrics.RecordAnalysisDuration(provider, status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
