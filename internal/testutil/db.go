package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ShaneJP-Dev/event-ticket-scanner/migrations"
)

const testDBLockID int64 = 801234568

// NewTestPool connects to TEST_DATABASE_URL and holds a session advisory
// lock for the life of the test so packages run in parallel do not share
// tables mid-test. Skips when the variable is unset or the server is down.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping Postgres integration tests: TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	lockTestDB(t, pool)

	return pool
}

// ApplyMigrations brings the schema up to date
func ApplyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

// TruncateAll empties every application table
func TruncateAll(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `TRUNCATE tickets, events CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// NewMigratedPool is NewTestPool followed by migrations and a truncate
func NewMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := NewTestPool(t)
	ctx := context.Background()
	ApplyMigrations(t, ctx, pool)
	TruncateAll(t, ctx, pool)
	return pool
}

func lockTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
