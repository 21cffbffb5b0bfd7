package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/aqstack/ragstore/internal/config"
	"github.com/aqstack/ragstore/internal/repo"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := repo.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "ragstore",
		Password: "ragstore_pass",
		DBName:   "ragstore_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_, _ = conn.Exec("TRUNCATE documents, document_meta, chunks, embedding_cache")
		_ = conn.Close()
	}
}
