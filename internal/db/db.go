package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DB wraps the application's database/sql connection. The driver is chosen
// from the URL: postgres:// and postgresql:// URLs open through pgx, anything
// else is treated as a SQLite path.
type DB struct {
	conn       *sql.DB
	driverName string
}

func New(databaseURL string) (*DB, error) {
	driverName := "sqlite"
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		driverName = "pgx"
	}

	conn, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{conn: conn, driverName: driverName}, nil
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// DriverName reports which driver the URL selected ("sqlite" or "pgx").
func (db *DB) DriverName() string {
	return db.driverName
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate applies the embedded demo migrations.
func (db *DB) Migrate() error {
	return RunMigrations(db.conn, db.driverName)
}
