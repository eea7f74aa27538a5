package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"datachat/internal/guard"
	"datachat/internal/logging"
)

// Completer is the narrow generation surface the translator needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// FallbackQuery is returned whenever generation fails or produces something
// the guard refuses. It passes the guard and yields zero rows on any schema.
const FallbackQuery = "SELECT 1 WHERE 1 = 0;"

const rulesBlock = `RULES:
1. Only generate SELECT queries. Do not generate INSERT, UPDATE, DELETE, DROP, or any other write statement.
2. Return only the raw SQL query. Do not wrap it in markdown block quotes (e.g. ` + "```sql ... ```" + `).
3. Use JOINs when the question requires data from more than one table, following the foreign keys listed under RELATIONSHIPS.
4. Use appropriate JOIN types (INNER JOIN, LEFT JOIN, etc.) based on the question.
5. Use short table aliases for readability in JOIN queries.
6. For simple questions about one table, query only that table.
7. If the user asks for something outside the scope of the data, interpret it as best as possible or return a generic but safe SELECT.`

// Translator turns natural-language questions into guard-safe SELECT
// statements for the connected database.
type Translator struct {
	completer Completer
	dialect   string
}

func New(completer Completer, dialect string) *Translator {
	if dialect == "" {
		dialect = "SQLite"
	}
	return &Translator{completer: completer, dialect: dialect}
}

// DialectForDriver maps a database/sql driver name to the display name used
// in model instructions.
func DialectForDriver(driverName string) string {
	if driverName == "pgx" {
		return "PostgreSQL"
	}
	return "SQLite"
}

// Translate never fails: a backend error, an empty completion, or generated
// SQL that trips the guard all degrade to FallbackQuery, so the result
// always passes the read-only guard.
func (t *Translator) Translate(ctx context.Context, question, schemaPrompt string) string {
	system := t.systemInstruction(schemaPrompt)
	prompt := fmt.Sprintf("User question: %s\n\nGenerate a %s SELECT query only.", question, t.dialect)

	raw, err := t.completer.Complete(ctx, system, prompt)
	if err != nil {
		logging.Error("SQL generation failed: %v", err)
		return FallbackQuery
	}

	query := StripFences(raw)
	if query == "" {
		logging.Error("SQL generation returned an empty completion")
		return FallbackQuery
	}
	if !guard.IsReadOnly(query) {
		logging.Error("Generated SQL rejected by read-only guard: %q", query)
		return FallbackQuery
	}
	return query
}

func (t *Translator) systemInstruction(schemaPrompt string) string {
	return fmt.Sprintf(
		"You are an assistant that generates read-only SQL queries for a %s database.\n\n%s\n\n%s",
		t.dialect, schemaPrompt, rulesBlock,
	)
}

// StripFences removes a surrounding markdown code block if the model added
// one despite the instructions.
func StripFences(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasPrefix(sql, "```sql") {
		sql = sql[len("```sql"):]
	} else if strings.HasPrefix(sql, "```") {
		sql = sql[len("```"):]
	}
	if strings.HasSuffix(sql, "```") {
		sql = sql[:len(sql)-len("```")]
	}
	return strings.TrimSpace(sql)
}
