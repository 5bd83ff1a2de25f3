package internal

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Row is one result row keyed by column name
type Row map[string]any

// String returns a column as a string, or "" when absent or NULL
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Querier runs a parameterized query against the remote system or a local
// mirror of it. Parameters bind to "?" placeholders in order.
type Querier interface {
	Query(ctx context.Context, query string, params ...any) ([]Row, error)
}

// OpenDatabase opens a SQLite database in read-only mode
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// SQLQuerier implements Querier over database/sql
type SQLQuerier struct {
	db *sql.DB
}

// NewSQLQuerier creates a querier bound to db
func NewSQLQuerier(db *sql.DB) *SQLQuerier {
	return &SQLQuerier{db: db}
}

// Query runs query with params and returns every row as a column map
func (q *SQLQuerier) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	rows, err := q.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &QueryError{Query: query, Err: fmt.Errorf("scan failed: %w", err)}
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Err: fmt.Errorf("rows iteration error: %w", err)}
	}

	return result, nil
}
