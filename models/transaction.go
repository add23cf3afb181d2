package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a transaction
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Valid reports whether the side is buy or sell
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Transaction is a buy or sell request against the book
type Transaction struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Side   TradeSide       `json:"side"`
}

// TransactionRecord is an applied transaction kept in the activity history
type TransactionRecord struct {
	ID         uuid.UUID       `json:"id"`
	Ticker     string          `json:"ticker"`
	Side       TradeSide       `json:"side"`
	Shares     decimal.Decimal `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"total_value"`
	// RealizedPL is (price - avg cost) × shares for sells, zero for buys
	RealizedPL decimal.Decimal `json:"realized_pl"`
	// AvgCostAfter is the position's average cost once the transaction was applied
	AvgCostAfter decimal.Decimal `json:"avg_cost_after"`
	SharesAfter  decimal.Decimal `json:"shares_after"`
	ExecutedAt   time.Time       `json:"executed_at"`
}

// NewTransactionRecord creates a record for an applied transaction
func NewTransactionRecord(tx Transaction) *TransactionRecord {
	return &TransactionRecord{
		ID:         uuid.New(),
		Ticker:     NormalizeTicker(tx.Ticker),
		Side:       tx.Side,
		Shares:     tx.Shares,
		Price:      tx.Price,
		TotalValue: tx.Shares.Mul(tx.Price),
		RealizedPL: decimal.Zero,
		ExecutedAt: time.Now(),
	}
}
