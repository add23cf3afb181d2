package repository

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS positions (
	id          UUID PRIMARY KEY,
	ticker      TEXT NOT NULL UNIQUE,
	shares      NUMERIC(20, 6) NOT NULL CHECK (shares >= 0),
	avg_cost    NUMERIC(20, 6) NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	sector      TEXT NOT NULL DEFAULT '',
	market_cap  TEXT NOT NULL DEFAULT '',
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id             UUID PRIMARY KEY,
	ticker         TEXT NOT NULL,
	side           TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	shares         NUMERIC(20, 6) NOT NULL,
	price          NUMERIC(20, 6) NOT NULL,
	total_value    NUMERIC(20, 6) NOT NULL,
	realized_pl    NUMERIC(20, 6) NOT NULL DEFAULT 0,
	avg_cost_after NUMERIC(20, 6) NOT NULL DEFAULT 0,
	shares_after   NUMERIC(20, 6) NOT NULL DEFAULT 0,
	executed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_executed_at ON transactions (executed_at DESC);

CREATE TABLE IF NOT EXISTS market_data_cache (
	symbol     TEXT NOT NULL,
	data_type  TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, data_type)
);
`

// EnsureSchema creates the tables the tracker needs when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
