package schema

import (
	"context"
	"database/sql"
)

// Schema is a point-in-time description of every user table in the connected
// database plus the foreign-key edges between them. Values are immutable once
// built; Store swaps whole snapshots rather than mutating in place.
type Schema struct {
	Dialect       string         `json:"dialect"`
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

type Table struct {
	Name    string   `json:"table_name"`
	Columns []Column `json:"columns"`
}

type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// Relationship is one foreign-key edge. A composite key fans out into one
// edge per constrained column.
type Relationship struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Inspector reads the structure of a live database. A database with zero
// tables inspects successfully to an empty Schema.
type Inspector interface {
	Inspect(ctx context.Context, conn *sql.DB) (*Schema, error)
}

// ForDriver returns the inspector matching a database/sql driver name.
func ForDriver(driverName string) Inspector {
	if driverName == "pgx" {
		return PostgresInspector{}
	}
	return SQLiteInspector{}
}

// Table returns the named table, or nil when the schema does not contain it.
func (s *Schema) Table(name string) *Table {
	if s == nil {
		return nil
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
