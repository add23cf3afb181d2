package services

import (
	"context"
	"errors"
	"fmt"

	appconfig "portfolio-tracker/config"
	"portfolio-tracker/observability"
)

// ErrNotConfigured is returned when a feature's provider has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

// NewQuoteProvider returns the provider chosen by QUOTE_PROVIDER. An explicit
// choice without credentials degrades to the mock generator with a warning.
func NewQuoteProvider(cfg *appconfig.Config, costs CostLookup) QuoteProvider {
	opts := []ClientOption{WithRateLimit(cfg.Quotes.RequestsPerMin)}

	name := cfg.ResolveQuoteProvider()
	switch name {
	case appconfig.QuoteProviderFMP:
		if cfg.HasFMP() {
			return NewFMPService(cfg.FMP.APIKey, opts...)
		}
	case appconfig.QuoteProviderAlpaca:
		if cfg.HasAlpaca() {
			return NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
		}
	case appconfig.QuoteProviderAlphaVantage:
		if cfg.HasAlphaVantage() {
			return NewAlphaVantageService(cfg.AlphaVantage.APIKey, opts...)
		}
	case appconfig.QuoteProviderMock:
		return NewMockQuoteProvider(costs, nil)
	}

	observability.WithProvider(name).Warn("quote provider has no credentials, using mock quotes")
	return NewMockQuoteProvider(costs, nil)
}

// NewFundamentalsProvider prefers FMP and falls back to Alpha Vantage.
func NewFundamentalsProvider(cfg *appconfig.Config) (FundamentalsProvider, error) {
	opts := []ClientOption{WithRateLimit(cfg.Quotes.RequestsPerMin)}
	switch {
	case cfg.HasFMP():
		return NewFMPService(cfg.FMP.APIKey, opts...), nil
	case cfg.HasAlphaVantage():
		return NewAlphaVantageService(cfg.AlphaVantage.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("EPS lookup needs FMP_API_KEY or ALPHA_VANTAGE_API_KEY: %w", ErrNotConfigured)
	}
}

// NewAnalyst builds the model client selected by ANALYSIS_PROVIDER.
func NewAnalyst(ctx context.Context, cfg *appconfig.Config) (Analyst, error) {
	switch cfg.Analysis.Provider {
	case appconfig.AnalysisProviderOpenAI:
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return NewOpenAIService(cfg)
	case appconfig.AnalysisProviderBedrock:
		if !cfg.HasBedrock() {
			return nil, fmt.Errorf("bedrock: %w", ErrNotConfigured)
		}
		return NewBedrockService(ctx, cfg)
	default:
		if !cfg.HasGemini() {
			return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
		}
		return NewGeminiService(ctx, cfg)
	}
}

// NewNewsProvider returns nil when news context is disabled or unconfigured.
func NewNewsProvider(cfg *appconfig.Config) NewsProvider {
	if !cfg.Analysis.NewsContext || !cfg.HasNewsAPI() {
		return nil
	}
	return NewNewsAPIService(cfg.NewsAPI.APIKey)
}
