package services

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

// latestTradesClient is the slice of the Alpaca market data client we use.
type latestTradesClient interface {
	GetLatestTrades(symbols []string, req marketdata.GetLatestTradeRequest) (map[string]marketdata.Trade, error)
}

// AlpacaService prices positions from Alpaca's latest trades.
type AlpacaService struct {
	dataClient latestTradesClient
}

// NewAlpacaService builds a market data client. baseURL is optional and
// only needed to point at a non-default data host.
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	return &AlpacaService{
		dataClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

func newAlpacaServiceWithClient(client latestTradesClient) *AlpacaService {
	return &AlpacaService{dataClient: client}
}

func (s *AlpacaService) Name() string { return BreakerAlpaca }

// GetPrices returns the last trade price for each ticker.
func (s *AlpacaService) GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	tickers = uniqueTickers(tickers)
	if len(tickers) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "latest_trades")
	timer := metrics.NewTimer()

	trades, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (map[string]marketdata.Trade, error) {
		var trades map[string]marketdata.Trade
		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			var err error
			trades, err = s.dataClient.GetLatestTrades(tickers, marketdata.GetLatestTradeRequest{})
			return err
		})
		return trades, err
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "latest_trades")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "latest_trades", CategorizeError(err))
		return nil, fmt.Errorf("alpaca latest trades: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(trades))
	for symbol, trade := range trades {
		if trade.Price <= 0 {
			continue
		}
		prices[models.NormalizeTicker(symbol)] = decimal.NewFromFloat(trade.Price)
	}
	return prices, nil
}
