package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/iksnae/studio-bridge/testutil"
)

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "valid database",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				dbPath := filepath.Join(tmpDir, "tokens.db")
				testutil.CreateSQLiteFixture(t, dbPath, map[string]string{"/csp/user/": "abc"})
				return dbPath
			},
			wantErr: false,
		},
		{
			name: "non-existent database",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				// Read-only mode fails on a missing file
				return filepath.Join(tmpDir, "nonexistent.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setup(t)
			db, err := OpenDatabase(dbPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if db == nil {
					t.Error("OpenDatabase() returned nil database")
					return
				}
				if err := db.Ping(); err != nil {
					t.Errorf("Database ping failed: %v", err)
				}
				db.Close()
			}
		})
	}
}

func TestSQLQuerier_TokenLookup(t *testing.T) {
	db := testutil.CreateTestDB(t, map[string]string{
		"/csp/user/EnsPortal.BPLEditor.zen?BP=Demo.Order.BPL": "tok-1",
		"/csp/user/EnsPortal.DTLEditor.zen?DT=Demo.Map.DTL":   "tok-2",
	})
	q := NewSQLQuerier(db)

	tests := []struct {
		name string
		path string
		want string
		rows int
	}{
		{"process page", "/csp/user/EnsPortal.BPLEditor.zen?BP=Demo.Order.BPL", "tok-1", 1},
		{"transform page", "/csp/user/EnsPortal.DTLEditor.zen?DT=Demo.Map.DTL", "tok-2", 1},
		{"unknown page", "/csp/user/Other.zen", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := q.Query(context.Background(), testutil.TokenQuery, tt.path)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(rows) != tt.rows {
				t.Fatalf("Query() returned %d rows, want %d", len(rows), tt.rows)
			}
			if tt.rows > 0 && rows[0].String("csptoken") != tt.want {
				t.Errorf("csptoken = %q, want %q", rows[0].String("csptoken"), tt.want)
			}
		})
	}
}

func TestSQLQuerier_ReissuedToken(t *testing.T) {
	db := testutil.CreateTestDB(t, map[string]string{"/csp/user/": "old"})
	testutil.InsertToken(t, db, "/csp/user/", "new")

	rows, err := NewSQLQuerier(db).Query(context.Background(), testutil.TokenQuery, "/csp/user/")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 1 || rows[0].String("csptoken") != "new" {
		t.Errorf("Query() = %v, want the reissued token", rows)
	}
}

func TestSQLQuerier_Echo(t *testing.T) {
	q := NewSQLQuerier(testutil.CreateInMemoryDB(t))

	rows, err := q.Query(context.Background(), testutil.EchoTokenQuery, "/csp/user/x")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 1 || rows[0].String("csptoken") != "tok:/csp/user/x" {
		t.Errorf("Query() = %v", rows)
	}
}

func TestSQLQuerier_BadQuery(t *testing.T) {
	q := NewSQLQuerier(testutil.CreateInMemoryDB(t))

	_, err := q.Query(context.Background(), "SELECT * FROM missing_table")
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("Query() error = %v, want QueryError", err)
	}
	if qErr.Query != "SELECT * FROM missing_table" {
		t.Errorf("QueryError.Query = %q", qErr.Query)
	}
}

func TestRowString(t *testing.T) {
	row := Row{
		"text":  "abc",
		"bytes": []byte("def"),
		"num":   int64(42),
		"null":  nil,
	}

	tests := map[string]string{
		"text":    "abc",
		"bytes":   "def",
		"num":     "42",
		"null":    "",
		"missing": "",
	}
	for column, want := range tests {
		if got := row.String(column); got != want {
			t.Errorf("Row.String(%q) = %q, want %q", column, got, want)
		}
	}
}
