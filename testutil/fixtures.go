package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates an on-disk token database with sample data
func CreateSQLiteFixture(t *testing.T, dbPath string, tokens map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS csp_tokens (
		path TEXT PRIMARY KEY,
		token TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	insertSQL := "INSERT OR REPLACE INTO csp_tokens (path, token) VALUES (?, ?)"
	for path, token := range tokens {
		if _, err := db.Exec(insertSQL, path, token); err != nil {
			t.Fatalf("Failed to insert token: %v", err)
		}
	}
}

// CreateProxyDocument writes a proxy document whose first line is url
func CreateProxyDocument(t *testing.T, dir, name, url string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := url + "\n<!-- visual editor proxy -->\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write proxy document: %v", err)
	}
	return path
}

// CreateConfigFixture writes a studio-bridge.yaml into dir
func CreateConfigFixture(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}
	path := filepath.Join(dir, "studio-bridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}
