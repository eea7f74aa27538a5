package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresInspector reads table structure from information_schema. Only the
// public schema is inspected.
type PostgresInspector struct{}

const postgresSchemaName = "public"

func (PostgresInspector) Inspect(ctx context.Context, conn *sql.DB) (*Schema, error) {
	s := &Schema{Dialect: "postgresql"}

	tableNames, err := postgresTableNames(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, tableName := range tableNames {
		columns, err := postgresColumns(ctx, conn, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, Table{Name: tableName, Columns: columns})

		relationships, err := postgresForeignKeys(ctx, conn, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", tableName, err)
		}
		s.Relationships = append(s.Relationships, relationships...)
	}

	return s, nil
}

func postgresTableNames(ctx context.Context, conn *sql.DB) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := conn.QueryContext(ctx, query, postgresSchemaName)
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

func postgresColumns(ctx context.Context, conn *sql.DB, tableName string) ([]Column, error) {
	primaryKey, err := postgresPrimaryKey(ctx, conn, tableName)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := conn.QueryContext(ctx, query, postgresSchemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:       name,
			Type:       dataType,
			Nullable:   nullable == "YES",
			PrimaryKey: primaryKey[name],
		})
	}
	return columns, rows.Err()
}

func postgresPrimaryKey(ctx context.Context, conn *sql.DB, tableName string) (map[string]bool, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := conn.QueryContext(ctx, query, postgresSchemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	primaryKey := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		primaryKey[name] = true
	}
	return primaryKey, rows.Err()
}

func postgresForeignKeys(ctx context.Context, conn *sql.DB, tableName string) ([]Relationship, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := conn.QueryContext(ctx, query, postgresSchemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relationships []Relationship
	for rows.Next() {
		var fromColumn, toTable, toColumn string
		if err := rows.Scan(&fromColumn, &toTable, &toColumn); err != nil {
			return nil, err
		}
		relationships = append(relationships, Relationship{
			FromTable:  tableName,
			FromColumn: fromColumn,
			ToTable:    toTable,
			ToColumn:   toColumn,
		})
	}
	return relationships, rows.Err()
}
