package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"portfolio-tracker/observability"
)

// DataTypeEPS keys cached earnings-per-share lookups.
const DataTypeEPS = "eps"

// epsEntry is the payload stored for DataTypeEPS. The value is kept as a
// string so no precision is lost through JSON.
type epsEntry struct {
	EPS       string    `json:"eps"`
	FetchedAt time.Time `json:"fetched_at"`
}

// loadCached decodes the live entry for (symbol, kind) into dst. It reports
// false when there is no entry or the entry has expired.
func (r *Repository) loadCached(ctx context.Context, symbol, kind string, dst any) (found bool, err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("select", "market_data_cache", timer, err) }()

	var raw []byte
	err = r.db.QueryRow(ctx,
		`SELECT data FROM market_data_cache WHERE symbol = $1 AND data_type = $2 AND expires_at > NOW()`,
		symbol, kind).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %s cache for %s: %w", kind, symbol, err)
	}

	if err = json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s cache for %s: %w", kind, symbol, err)
	}
	return true, nil
}

// storeCached replaces the entry for (symbol, kind). A non-positive ttl
// writes an entry that is already expired.
func (r *Repository) storeCached(ctx context.Context, symbol, kind string, v any, ttl time.Duration) (err error) {
	timer := observability.GetMetrics().NewTimer()
	defer func() { observe("upsert", "market_data_cache", timer, err) }()

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s cache for %s: %w", kind, symbol, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO market_data_cache (symbol, data_type, data, expires_at)
		VALUES ($1, $2, $3, NOW() + $4 * INTERVAL '1 second')
		ON CONFLICT (symbol, data_type) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, created_at = NOW()`,
		symbol, kind, raw, ttl.Seconds())
	if err != nil {
		return fmt.Errorf("write %s cache for %s: %w", kind, symbol, err)
	}
	return nil
}

// GetCachedEPS returns a cached EPS and whether one was found.
func (r *Repository) GetCachedEPS(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	var entry epsEntry
	ok, err := r.loadCached(ctx, ticker, DataTypeEPS, &entry)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}

	eps, err := decimal.NewFromString(entry.EPS)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached eps %q: %w", entry.EPS, err)
	}
	return eps, true, nil
}

// SetCachedEPS stores an EPS lookup for ttl.
func (r *Repository) SetCachedEPS(ctx context.Context, ticker string, eps decimal.Decimal, ttl time.Duration) error {
	return r.storeCached(ctx, ticker, DataTypeEPS, epsEntry{EPS: eps.String(), FetchedAt: time.Now().UTC()}, ttl)
}

// InvalidateCache drops the entry for (symbol, kind).
func (r *Repository) InvalidateCache(ctx context.Context, symbol, kind string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM market_data_cache WHERE symbol = $1 AND data_type = $2`, symbol, kind); err != nil {
		return fmt.Errorf("invalidate %s cache for %s: %w", kind, symbol, err)
	}
	return nil
}

// CleanExpiredCache purges expired entries and returns the number removed.
func (r *Repository) CleanExpiredCache(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
