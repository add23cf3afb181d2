package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a last-price observation for a ticker
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	EPS       decimal.Decimal `json:"eps"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewsArticle represents a news article about a stock
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
