package app

import (
	"context"
	"time"

	"portfolio-tracker/services"
)

// Health status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthReport is served by the health endpoint.
type HealthReport struct {
	Status           string                          `json:"status"`
	Store            string                          `json:"store"`
	QuoteProvider    string                          `json:"quote_provider"`
	AnalysisProvider string                          `json:"analysis_provider"`
	EPSProvider      string                          `json:"eps_provider"`
	Positions        int                             `json:"positions"`
	CircuitBreakers  []services.CircuitBreakerStatus `json:"circuit_breakers"`
	CheckedAt        time.Time                       `json:"checked_at"`
}

// Health reports store reachability and breaker state. An open breaker or
// an unreachable store marks the app degraded; it keeps serving either way.
func (a *App) Health(ctx context.Context) HealthReport {
	providers, cache := a.current()

	report := HealthReport{
		Status:           StatusOK,
		Store:            "disabled",
		QuoteProvider:    cache.Name(),
		AnalysisProvider: providerName(providers.Analyst),
		EPSProvider:      providerName(providers.Fundamentals),
		Positions:        a.book.Len(),
		CircuitBreakers:  services.GetGlobalRegistry().Status(),
		CheckedAt:        a.now(),
	}

	if a.store != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.store.Health(ctx); err != nil {
			report.Store = "error: " + err.Error()
			report.Status = StatusDegraded
		} else {
			report.Store = StatusOK
		}
	}

	for _, b := range report.CircuitBreakers {
		if b.State == "open" {
			report.Status = StatusDegraded
		}
	}
	return report
}
