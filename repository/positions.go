package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

// GetPositions returns the stored book in its display order.
func (r *Repository) GetPositions(ctx context.Context) (positions []models.Position, err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("select", "positions", timer, err) }()

	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, shares, avg_cost, category, sector, market_cap, created_at, updated_at
		FROM positions
		ORDER BY sort_order, ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.ID, &p.Ticker, &p.Shares, &p.AvgCost, &p.Category, &p.Sector, &p.MarketCap, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}

// ReplacePositions swaps the stored book for positions in one transaction.
func (r *Repository) ReplacePositions(ctx context.Context, positions []models.Position) (err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("replace", "positions", timer, err) }()

	return r.inTx(ctx, func(tx *Repository) error {
		if _, err := tx.db.Exec(ctx, `DELETE FROM positions`); err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}

		batch := &pgx.Batch{}
		for i, p := range positions {
			batch.Queue(`
				INSERT INTO positions (id, ticker, shares, avg_cost, category, sector, market_cap, sort_order, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, p.ID, p.Ticker, p.Shares, p.AvgCost, p.Category, p.Sector, p.MarketCap, i, p.CreatedAt, p.UpdatedAt)
		}
		if batch.Len() > 0 {
			if err := tx.db.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to insert positions: %w", err)
			}
		}
		return nil
	})
}
