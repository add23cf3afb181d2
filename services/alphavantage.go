package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageService reads GLOBAL_QUOTE prices and OVERVIEW earnings.
// The free tier only prices one ticker per call.
type AlphaVantageService struct {
	apiKey string
	rest   *restClient
}

func NewAlphaVantageService(apiKey string, opts ...ClientOption) *AlphaVantageService {
	return &AlphaVantageService{
		apiKey: apiKey,
		rest:   newRESTClient(BreakerAlphaVantage, alphaVantageBaseURL, opts...),
	}
}

// OverviewResponse is the subset of the company overview we read.
type OverviewResponse struct {
	Symbol    string `json:"Symbol"`
	Name      string `json:"Name"`
	Sector    string `json:"Sector"`
	MarketCap string `json:"MarketCapitalization"`
	EPS       string `json:"EPS"`
	Note      string `json:"Note"`
}

// QuoteResponse wraps the GLOBAL_QUOTE payload.
type QuoteResponse struct {
	GlobalQuote struct {
		Symbol    string `json:"01. symbol"`
		Price     string `json:"05. price"`
		LatestDay string `json:"07. latest trading day"`
	} `json:"Global Quote"`
	Note string `json:"Note"`
}

func (s *AlphaVantageService) Name() string { return BreakerAlphaVantage }

// GetPrices quotes each ticker in turn. A ticker that fails is logged and
// left out so one bad symbol does not blank the whole portfolio.
func (s *AlphaVantageService) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	tickers = uniqueTickers(tickers)
	prices := make(map[string]decimal.Decimal, len(tickers))

	var lastErr error
	for _, ticker := range tickers {
		price, err := s.getQuote(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			observability.WithTicker(ticker).Warn("alpha vantage quote failed", "error", err)
			lastErr = err
			continue
		}
		prices[ticker] = price
	}

	if len(prices) == 0 && lastErr != nil {
		return nil, fmt.Errorf("alpha vantage prices: %w", lastErr)
	}
	return prices, nil
}

func (s *AlphaVantageService) getQuote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var resp QuoteResponse
	if err := s.rest.getJSON(ctx, "get_quote", "/query", s.params("GLOBAL_QUOTE", ticker), nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Note != "" {
		return decimal.Zero, fmt.Errorf("alpha vantage throttled: %s", resp.Note)
	}

	price, err := parseAVNumber(resp.GlobalQuote.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("quote for %s: %w", ticker, ErrNoData)
	}
	return price, nil
}

// GetEPS reads the trailing EPS from the company overview.
func (s *AlphaVantageService) GetEPS(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = models.NormalizeTicker(ticker)

	var overview OverviewResponse
	if err := s.rest.getJSON(ctx, "get_overview", "/query", s.params("OVERVIEW", ticker), nil, &overview); err != nil {
		return decimal.Zero, fmt.Errorf("alpha vantage eps for %s: %w", ticker, err)
	}
	if overview.Note != "" {
		return decimal.Zero, fmt.Errorf("alpha vantage throttled: %s", overview.Note)
	}

	eps, err := parseAVNumber(overview.EPS)
	if err != nil {
		return decimal.Zero, fmt.Errorf("alpha vantage eps for %s: %w", ticker, ErrNoData)
	}
	return eps, nil
}

func (s *AlphaVantageService) params(function, symbol string) url.Values {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)
	return params
}

// parseAVNumber handles the "None" and "-" placeholders Alpha Vantage uses.
func parseAVNumber(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" || raw == "-" {
		return decimal.Zero, ErrNoData
	}
	return decimal.NewFromString(raw)
}
