package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/dsxlate/internal/record"
)

// SQLiteProvider serves the rows of a SQLite table in rowid order. Columns
// become record fields in table order.
type SQLiteProvider struct {
	db    *sql.DB
	table string
}

// NewSQLiteProvider opens the database at path
func NewSQLiteProvider(path, table string) (*SQLiteProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite dataset requires a path")
	}
	if table == "" {
		return nil, fmt.Errorf("sqlite dataset requires a table")
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteProvider{db: db, table: table}, nil
}

// Close closes the database
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Len returns the number of rows in the table
func (p *SQLiteProvider) Len(ctx context.Context) (int, error) {
	var n int
	query := "SELECT COUNT(*) FROM " + quoteIdent(p.table)
	if err := p.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", p.table, err)
	}
	return n, nil
}

// Select returns the rows of [start, end)
func (p *SQLiteProvider) Select(ctx context.Context, start, end int) ([]*record.Record, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
	}
	if end == start {
		return nil, nil
	}

	query := "SELECT * FROM " + quoteIdent(p.table) + " ORDER BY rowid LIMIT ? OFFSET ?"
	rows, err := p.db.QueryContext(ctx, query, end-start, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", p.table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []*record.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := record.New()
		for i, col := range columns {
			if err := rec.Set(col, columnValue(values[i])); err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	if len(out) != end-start {
		return nil, fmt.Errorf("range [%d, %d) out of bounds: got %d rows", start, end, len(out))
	}
	return out, nil
}

// columnValue maps a scanned SQLite value onto a JSON value
func columnValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
