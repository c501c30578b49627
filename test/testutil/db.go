package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/passport/internal/config"
	"github.com/xxxsen/passport/internal/db"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "passport",
		Password: "passport_pass",
		DBName:   "passport_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// ResetTables clears the mutable tables between test cases.
func ResetTables(t *testing.T, conn *sql.DB) {
	t.Helper()
	for _, table := range []string{"verification_codes", "users"} {
		if _, err := conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}
