// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxverstappen583/Tribute/db"
)

// SetupTestPool connects to TEST_PG_DSN and applies the schema.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := db.Setup(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// ResetKey deletes key from the kv table so a test starts from a fresh count.
func ResetKey(t *testing.T, pool *pgxpool.Pool, key string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `DELETE FROM kv WHERE key = $1`, key); err != nil {
		t.Fatalf("reset key %s: %v", key, err)
	}
}
