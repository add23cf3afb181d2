package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPService talks to Financial Modeling Prep for batch prices and EPS.
type FMPService struct {
	apiKey string
	rest   *restClient
}

func NewFMPService(apiKey string, opts ...ClientOption) *FMPService {
	return &FMPService{
		apiKey: apiKey,
		rest:   newRESTClient(BreakerFMP, fmpBaseURL, opts...),
	}
}

// fmpQuoteShort is one row of /quote-short/{tickers}.
type fmpQuoteShort struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// fmpQuote is the subset of /quote/{ticker} used for valuation.
type fmpQuote struct {
	Symbol string   `json:"symbol"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	EPS    *float64 `json:"eps"`
	PE     *float64 `json:"pe"`
}

func (s *FMPService) Name() string { return BreakerFMP }

// GetPrices fetches all tickers in a single quote-short call.
func (s *FMPService) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	tickers = uniqueTickers(tickers)
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	var rows []fmpQuoteShort
	escaped := make([]string, len(tickers))
	for i, t := range tickers {
		escaped[i] = url.PathEscape(t)
	}
	path := "/quote-short/" + strings.Join(escaped, ",")
	if err := s.rest.getJSON(ctx, "get_prices", path, s.params(), nil, &rows); err != nil {
		return nil, fmt.Errorf("fmp prices: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if row.Symbol == "" || row.Price <= 0 {
			continue
		}
		prices[models.NormalizeTicker(row.Symbol)] = decimal.NewFromFloat(row.Price)
	}
	return prices, nil
}

// GetEPS returns the trailing EPS reported on the full quote.
func (s *FMPService) GetEPS(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return decimal.Zero, fmt.Errorf("fmp eps: %w", ErrNoData)
	}

	var rows []fmpQuote
	if err := s.rest.getJSON(ctx, "get_eps", "/quote/"+url.PathEscape(ticker), s.params(), nil, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("fmp eps for %s: %w", ticker, err)
	}
	if len(rows) == 0 || rows[0].EPS == nil {
		return decimal.Zero, fmt.Errorf("fmp eps for %s: %w", ticker, ErrNoData)
	}
	return decimal.NewFromFloat(*rows[0].EPS), nil
}

func (s *FMPService) params() url.Values {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	return params
}

// uniqueTickers normalizes and de-duplicates, keeping first-seen order.
func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = models.NormalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
