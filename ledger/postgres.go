package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the ledger table. The unique constraint on
// cache_key is what makes cross-process ownership arbitration work.
const Schema = `
CREATE TABLE IF NOT EXISTS generation_ledger (
	id BIGSERIAL PRIMARY KEY,
	cache_key TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'generating',
	payload JSONB,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_generation_ledger_cache_key UNIQUE (cache_key)
)`

// Postgres is the durable Ledger backend.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Ledger over pool. The caller owns the pool's
// lifecycle.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the ledger table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, Schema)
	return err
}

// TryMarkGenerating claims ownership by insert. A unique violation means
// another process holds the claim; if that claim ended in failure it is
// reclaimed with a conditional update.
func (p *Postgres) TryMarkGenerating(ctx context.Context, key string) (bool, error) {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO generation_ledger (cache_key, status) VALUES ($1, $2)`,
		key, StatusGenerating,
	)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false, fmt.Errorf("ledger: claiming %s: %w", key, err)
	}

	// Someone owns the key. Reclaim only if their attempt failed; the
	// WHERE clause makes the reclaim race-safe between competing retriers.
	tag, err := p.pool.Exec(ctx,
		`UPDATE generation_ledger
		 SET status = $2, error = NULL, updated_at = now()
		 WHERE cache_key = $1 AND status = $3`,
		key, StatusGenerating, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("ledger: reclaiming %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns the record for key, or nil when absent.
func (p *Postgres) Get(ctx context.Context, key string) (*Record, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT cache_key, status, payload, COALESCE(error, ''), created_at, updated_at
		 FROM generation_ledger WHERE cache_key = $1`,
		key,
	)
	var rec Record
	err := row.Scan(&rec.CacheKey, &rec.Status, &rec.Payload, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: reading %s: %w", key, err)
	}
	return &rec, nil
}

// WaitForReady polls until the record reaches a terminal status or maxWait
// elapses.
func (p *Postgres) WaitForReady(ctx context.Context, key string, maxWait time.Duration) (*Record, error) {
	return pollForReady(ctx, p, key, maxWait)
}

// SaveOK upserts the owner's successful result.
func (p *Postgres) SaveOK(ctx context.Context, key string, payload json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO generation_ledger (cache_key, status, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ON CONSTRAINT uq_generation_ledger_cache_key
		 DO UPDATE SET status = $2, payload = $3, error = NULL, updated_at = now()`,
		key, StatusReady, payload,
	)
	if err != nil {
		return fmt.Errorf("ledger: saving result for %s: %w", key, err)
	}
	return nil
}

// SaveFailed upserts the owner's failure.
func (p *Postgres) SaveFailed(ctx context.Context, key string, msg string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO generation_ledger (cache_key, status, error)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ON CONSTRAINT uq_generation_ledger_cache_key
		 DO UPDATE SET status = $2, payload = NULL, error = $3, updated_at = now()`,
		key, StatusFailed, msg,
	)
	if err != nil {
		return fmt.Errorf("ledger: saving failure for %s: %w", key, err)
	}
	return nil
}
