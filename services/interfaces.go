package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

// ErrNoData is returned when a provider answers successfully but has
// nothing for the requested ticker.
var ErrNoData = errors.New("no data returned")

// QuoteProvider returns the latest price per ticker. Tickers the provider
// does not know are simply absent from the map.
type QuoteProvider interface {
	Name() string
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// FundamentalsProvider supplies trailing earnings per share for valuation.
type FundamentalsProvider interface {
	Name() string
	GetEPS(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Analyst turns a prompt pair into free-form analysis text.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewsProvider supplies recent headlines used as analysis context.
type NewsProvider interface {
	GetHeadlines(ctx context.Context, query string, limit int) ([]models.NewsArticle, error)
}

// Compile-time interface verification
var (
	_ QuoteProvider        = (*FMPService)(nil)
	_ QuoteProvider        = (*AlpacaService)(nil)
	_ QuoteProvider        = (*AlphaVantageService)(nil)
	_ QuoteProvider        = (*MockQuoteProvider)(nil)
	_ QuoteProvider        = (*QuoteCache)(nil)
	_ FundamentalsProvider = (*FMPService)(nil)
	_ FundamentalsProvider = (*AlphaVantageService)(nil)
	_ Analyst              = (*GeminiService)(nil)
	_ Analyst              = (*OpenAIService)(nil)
	_ Analyst              = (*BedrockService)(nil)
	_ NewsProvider         = (*NewsAPIService)(nil)
)
