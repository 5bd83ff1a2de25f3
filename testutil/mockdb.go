package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// TokenQuery is the SQLite stand-in for the remote token function. It reads
// tokens from the csp_tokens table keyed by request URI.
const TokenQuery = "SELECT token AS csptoken FROM csp_tokens WHERE path = ?"

// EchoTokenQuery mints a token for any request URI by echoing it back.
const EchoTokenQuery = "SELECT 'tok:' || ? AS csptoken"

// CreateInMemoryDB creates an in-memory SQLite database for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// Each pooled connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS csp_tokens (
		path TEXT PRIMARY KEY,
		token TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create csp_tokens table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates a token database seeded with the given path to token
// pairs
func CreateTestDB(t *testing.T, tokens map[string]string) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)
	for path, token := range tokens {
		InsertToken(t, db, path, token)
	}
	return db
}

// InsertToken inserts or replaces the token issued for path
func InsertToken(t *testing.T, db *sql.DB, path, token string) {
	t.Helper()
	insertSQL := "INSERT OR REPLACE INTO csp_tokens (path, token) VALUES (?, ?)"
	if _, err := db.Exec(insertSQL, path, token); err != nil {
		t.Fatalf("Failed to insert token: %v", err)
	}
}
