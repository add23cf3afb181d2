package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
	"portfolio-tracker/services"
)

const (
	newsHoldings = 3
	newsLimit    = 6
)

// Analyze asks the configured model to review the current portfolio. Excess
// concurrent calls are rejected with ErrAnalysisBusy. Every other failure,
// including a missing analyst, yields the fallback analysis.
func (a *App) Analyze(ctx context.Context) (models.Analysis, error) {
	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return models.Analysis{}, ErrAnalysisBusy
	}

	providers, _ := a.current()
	metrics := observability.GetMetrics()

	if providers.Analyst == nil {
		metrics.RecordAnalysisRequest("none")
		return services.FallbackAnalysis("none", a.now()), nil
	}

	name := providers.Analyst.Name()
	metrics.RecordAnalysisRequest(name)
	timer := metrics.NewTimer()

	timeout := time.Duration(a.cfg.Analysis.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	priced := a.Snapshot(ctx).Positions
	news := a.headlines(ctx, providers.News, priced)

	prompt, err := services.BuildAnalysisPrompt(priced, news)
	if err != nil {
		timer.ObserveAnalysis(name, "error")
		metrics.RecordAnalysisError(name, "prompt")
		observability.WithError(err).Error("failed to build analysis prompt")
		return services.FallbackAnalysis(name, a.now()), nil
	}

	text, err := providers.Analyst.Analyze(ctx, services.AnalysisSystemPrompt, prompt)
	if err != nil {
		timer.ObserveAnalysis(name, "error")
		metrics.RecordAnalysisError(name, services.CategorizeError(err))
		observability.WithProvider(name).Error("portfolio analysis failed", "error", err)
		return services.FallbackAnalysis(name, a.now()), nil
	}

	timer.ObserveAnalysis(name, "success")
	observability.WithProvider(name).Info("portfolio analysis completed",
		"positions", len(priced),
		"headlines", len(news),
		"duration", timer.Duration())
	return services.RenderAnalysis(name, text, false, a.now()), nil
}

// headlines fetches news about the largest holdings. Failures only cost
// the extra context.
func (a *App) headlines(ctx context.Context, news services.NewsProvider, priced []models.PricedPosition) []models.NewsArticle {
	if news == nil || len(priced) == 0 {
		return nil
	}

	query := headlineQuery(priced, newsHoldings)
	articles, err := news.GetHeadlines(ctx, query, newsLimit)
	if err != nil {
		observability.Warn("headline lookup failed, analysing without news", "query", query, "error", err)
		return nil
	}
	return articles
}

// headlineQuery ORs the n largest holdings by current value.
func headlineQuery(priced []models.PricedPosition, n int) string {
	sorted := make([]models.PricedPosition, len(priced))
	copy(sorted, priced)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentValue.GreaterThan(sorted[j].CurrentValue)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	terms := make([]string, len(sorted))
	for i, p := range sorted {
		terms[i] = p.Ticker
	}
	return strings.Join(terms, " OR ")
}
