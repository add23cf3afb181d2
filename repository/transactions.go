package repository

import (
	"context"
	"fmt"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

// CreateTransaction appends an applied transaction to the history.
func (r *Repository) CreateTransaction(ctx context.Context, rec *models.TransactionRecord) (err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("insert", "transactions", timer, err) }()

	_, err = r.db.Exec(ctx, `
		INSERT INTO transactions (id, ticker, side, shares, price, total_value, realized_pl, avg_cost_after, shares_after, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Ticker, string(rec.Side), rec.Shares, rec.Price, rec.TotalValue, rec.RealizedPL, rec.AvgCostAfter, rec.SharesAfter, rec.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactions returns up to limit records, newest first.
func (r *Repository) GetTransactions(ctx context.Context, limit int) (records []models.TransactionRecord, err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("select", "transactions", timer, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, side, shares, price, total_value, realized_pl, avg_cost_after, shares_after, executed_at
		FROM transactions
		ORDER BY executed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.TransactionRecord
		var side string
		if err := rows.Scan(&rec.ID, &rec.Ticker, &side, &rec.Shares, &rec.Price, &rec.TotalValue, &rec.RealizedPL, &rec.AvgCostAfter, &rec.SharesAfter, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		rec.Side = models.TradeSide(side)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return records, nil
}
