package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"datachat/internal/guard"
)

// TableNotFoundError is returned by TableData for names absent from the live
// table list.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' does not exist", e.Table)
}

// QueryErrorText renders a query failure the way API responses and tool
// payloads present it to clients.
func QueryErrorText(err error) string {
	if errors.Is(err, guard.ErrUnsafeQuery) {
		return "Only SELECT queries are allowed."
	}
	var notFound *TableNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Table '%s' does not exist.", notFound.Table)
	}
	return err.Error()
}

// RunReadOnly executes a SELECT and returns its rows as column→value maps.
// The query is guard-checked before it touches the database; anything
// carrying a write keyword is refused outright.
func (db *DB) RunReadOnly(ctx context.Context, query string) ([]map[string]any, error) {
	if err := guard.Check(query); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// TableData returns every row of one table. Identifiers cannot be bound as
// parameters, so the name is checked against the live table list before it
// is interpolated.
func (db *DB) TableData(ctx context.Context, tableName string) ([]map[string]any, error) {
	exists, err := db.tableExists(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to check table: %w", err)
	}
	if !exists {
		return nil, &TableNotFoundError{Table: tableName}
	}

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (db *DB) tableExists(ctx context.Context, tableName string) (bool, error) {
	var query string
	switch db.driverName {
	case "pgx":
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanRows materializes a result set. Byte slices are normalized to strings
// so rows JSON-encode as text rather than base64.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[column] = value
		}
		results = append(results, row)
	}

	return results, rows.Err()
}
