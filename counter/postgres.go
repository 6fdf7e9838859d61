package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by Postgres.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	// The upsert holds the row lock for the whole read-increment-write, and
	// resets anything parseCount would read as zero before adding one. bigint
	// input ignores the surrounding whitespace the pattern allows.
	pgIncrementSQL = `INSERT INTO kv (key, value, updated_at) VALUES ($1, '1', NOW())
ON CONFLICT (key) DO UPDATE SET
	value = (CASE WHEN kv.value ~ '^[\t\n\v\f\r ]*[0-9]{1,18}[\t\n\v\f\r ]*$' THEN kv.value::bigint + 1 ELSE 1 END)::text,
	updated_at = NOW()
RETURNING value`

	pgGetSQL = `SELECT COALESCE(value, '') FROM kv WHERE key = $1`
)

// Postgres keeps the count in the kv table under a single key.
type Postgres struct {
	db  Querier
	key string
}

// NewPostgres returns a Postgres store. An empty key selects DefaultKey.
func NewPostgres(db Querier, key string) *Postgres {
	if key == "" {
		key = DefaultKey
	}
	return &Postgres{db: db, key: key}
}

// IncrementAndGet adds one to the stored count and returns the new value.
func (p *Postgres) IncrementAndGet(ctx context.Context) (int64, error) {
	var raw string
	if err := p.db.QueryRow(ctx, pgIncrementSQL, p.key).Scan(&raw); err != nil {
		return 0, fmt.Errorf("%w: postgres increment %s: %w", ErrStorageUnavailable, p.key, err)
	}
	return parseCount(raw), nil
}

// Get returns the current count without modifying it.
func (p *Postgres) Get(ctx context.Context) (int64, error) {
	var raw string
	err := p.db.QueryRow(ctx, pgGetSQL, p.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: postgres get %s: %w", ErrStorageUnavailable, p.key, err)
	}
	return parseCount(raw), nil
}
