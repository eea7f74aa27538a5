package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteInspector reads table structure through PRAGMA statements.
type SQLiteInspector struct{}

func (SQLiteInspector) Inspect(ctx context.Context, conn *sql.DB) (*Schema, error) {
	s := &Schema{Dialect: "sqlite"}

	tableNames, err := sqliteTableNames(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, tableName := range tableNames {
		columns, err := sqliteColumns(ctx, conn, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, Table{Name: tableName, Columns: columns})

		relationships, err := sqliteForeignKeys(ctx, conn, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", tableName, err)
		}
		s.Relationships = append(s.Relationships, relationships...)
	}

	return s, nil
}

// sqliteTableNames lists user tables in name order, skipping SQLite internals
// and migration bookkeeping.
func sqliteTableNames(ctx context.Context, conn *sql.DB) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
			AND name NOT LIKE 'sqlite_%'
			AND name <> 'goose_db_version'
		ORDER BY name
	`

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func sqliteColumns(ctx context.Context, conn *sql.DB, tableName string) ([]Column, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid          int
			name         string
			colType      string
			notNull      int
			defaultValue sql.NullString
			pk           int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	return columns, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, conn *sql.DB, tableName string) ([]Relationship, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relationships []Relationship
	for rows.Next() {
		var (
			id, seq                     int
			targetTable, fromCol        string
			toCol                       sql.NullString
			onUpdate, onDelete, matchBy string
		)
		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &matchBy); err != nil {
			return nil, err
		}

		// toCol is NULL when the constraint references the target's
		// implicit primary key.
		toColumn := "id"
		if toCol.Valid && toCol.String != "" {
			toColumn = toCol.String
		}

		relationships = append(relationships, Relationship{
			FromTable:  tableName,
			FromColumn: fromCol,
			ToTable:    targetTable,
			ToColumn:   toColumn,
		})
	}
	return relationships, rows.Err()
}
