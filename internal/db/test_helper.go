package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// TestDB is a migrated throwaway SQLite database backed by a temp directory.
type TestDB struct {
	db *DB
}

// NewTest creates a fresh database for a test, seeded with the demo dataset.
func NewTest(tb testing.TB) (*TestDB, error) {
	dbPath := filepath.Join(tb.TempDir(), "test.db")

	database, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}

	return &TestDB{db: database}, nil
}

func (tdb *TestDB) Conn() *sql.DB {
	return tdb.db.conn
}

func (tdb *TestDB) DriverName() string {
	return tdb.db.driverName
}

func (tdb *TestDB) RunReadOnly(ctx context.Context, query string) ([]map[string]any, error) {
	return tdb.db.RunReadOnly(ctx, query)
}

func (tdb *TestDB) TableData(ctx context.Context, tableName string) ([]map[string]any, error) {
	return tdb.db.TableData(ctx, tableName)
}

func (tdb *TestDB) Close() error {
	return tdb.db.Close()
}

func (tdb *TestDB) Migrate() error {
	return tdb.db.Migrate()
}
