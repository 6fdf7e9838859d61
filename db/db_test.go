package db

import (
	"context"
	"os"
	"testing"
)

func TestConnectRejectsBadDSN(t *testing.T) {
	if _, err := Connect(context.Background(), "://not a dsn"); err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}

func TestMigrate(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres migration test")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	// Run twice; the schema must be idempotent.
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}

	var keyColumns string
	err = pool.QueryRow(ctx, `
		SELECT string_agg(a.attname, ',')
		FROM   pg_index i
		JOIN   pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE  i.indrelid = 'kv'::regclass
		AND    i.indisprimary
	`).Scan(&keyColumns)
	if err != nil {
		t.Fatalf("failed to query kv primary key: %v", err)
	}
	if keyColumns != "key" {
		t.Errorf("kv primary key = %s, want key", keyColumns)
	}
}

func TestSetup(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping setup test")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Setup(ctx, pool); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	// pool must still be usable after the migration handle is closed
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'kv')`).Scan(&exists); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !exists {
		t.Fatal("kv table missing after Setup")
	}
}

func TestSetupReleasesConnections(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping setup test")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	// More runs than MaxConns: a pinned migration connection would exhaust the pool.
	for i := 0; i < int(pool.Config().MaxConns)+1; i++ {
		if err := Setup(ctx, pool); err != nil {
			t.Fatalf("Setup() run %d error = %v", i+1, err)
		}
		if n := pool.Stat().AcquiredConns(); n != 0 {
			t.Fatalf("after Setup() run %d: %d connections still acquired", i+1, n)
		}
	}
}
