package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/id-scanner/internal/config"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// testPostgres connects to the Postgres named by TEST_POSTGRES_* variables
// and skips the test when it is unavailable or in -short mode
func testPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := &config.PostgresConfig{
		Host:           envOr("TEST_POSTGRES_HOST", "localhost"),
		Port:           envOr("TEST_POSTGRES_PORT", "5432"),
		Database:       envOr("TEST_POSTGRES_DB", "id_scanner_test"),
		User:           envOr("TEST_POSTGRES_USER", "scanner"),
		Password:       envOr("TEST_POSTGRES_PASSWORD", "scanner"),
		MaxConnections: 4,
	}
	db, err := NewPostgresDB(testContext(t), cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	if err := RunMigrations(cfg.URL(), "../../migrations/postgres"); err != nil {
		db.Close()
		t.Skipf("Skipping test - migrations failed: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
