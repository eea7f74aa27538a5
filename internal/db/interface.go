package db

import (
	"context"
	"database/sql"
)

// Database is the storage surface the rest of the application depends on.
type Database interface {
	Conn() *sql.DB
	DriverName() string
	RunReadOnly(ctx context.Context, query string) ([]map[string]any, error)
	TableData(ctx context.Context, tableName string) ([]map[string]any, error)
	Close() error
	Migrate() error
}

var (
	_ Database = (*DB)(nil)
	_ Database = (*TestDB)(nil)
)
