package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

// Store is the persistence the application needs. *Repository implements
// it; tests substitute an in-memory fake.
type Store interface {
	Health(ctx context.Context) error
	Close()

	GetPositions(ctx context.Context) ([]models.Position, error)
	ReplacePositions(ctx context.Context, positions []models.Position) error

	CreateTransaction(ctx context.Context, rec *models.TransactionRecord) error
	GetTransactions(ctx context.Context, limit int) ([]models.TransactionRecord, error)

	GetCachedEPS(ctx context.Context, ticker string) (decimal.Decimal, bool, error)
	SetCachedEPS(ctx context.Context, ticker string, eps decimal.Decimal, ttl time.Duration) error
	CleanExpiredCache(ctx context.Context) (int64, error)
}

var _ Store = (*Repository)(nil)
