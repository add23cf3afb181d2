package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-tracker/observability"
)

// A single user drives the app, so a small pool is plenty.
const (
	maxConns       = 4
	connectTimeout = 5 * time.Second
)

// DBTX is satisfied by both pgxpool.Pool and pgx.Tx, so query code runs
// unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository persists the book, the transaction history and cached
// fundamentals in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewRepository connects, pings and makes sure the schema exists.
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if cfg.MaxConns > maxConns {
		cfg.MaxConns = maxConns
	}
	if cfg.ConnConfig.ConnectTimeout == 0 {
		cfg.ConnConfig.ConnectTimeout = connectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	repo := &Repository{pool: pool, db: pool}
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	observability.Debug("database pool ready", "max_conns", cfg.MaxConns)
	return repo, nil
}

// inTx runs fn against a Repository bound to one transaction, committing
// when fn returns nil and rolling back otherwise.
func (r *Repository) inTx(ctx context.Context, fn func(tx *Repository) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health pings the database.
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Pool exposes the connection pool for test cleanup.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// observe records duration and failures of a query against table.
func observe(operation, table string, timer *observability.Timer, err error) {
	timer.ObserveDB(operation, table)
	if err != nil {
		observability.GetMetrics().RecordDBError(operation, table)
	}
}
