package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datachat/internal/guard"
)

type stubCompleter struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fences", in: "SELECT * FROM employees", want: "SELECT * FROM employees"},
		{name: "sql fence", in: "```sql\nSELECT * FROM employees\n```", want: "SELECT * FROM employees"},
		{name: "bare fence", in: "```\nSELECT 1\n```", want: "SELECT 1"},
		{name: "trailing fence only", in: "SELECT 1\n```", want: "SELECT 1"},
		{name: "surrounding whitespace", in: "  \n SELECT 1 \n ", want: "SELECT 1"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()

	t.Run("passes through clean sql", func(t *testing.T) {
		translator := New(&stubCompleter{response: "SELECT name FROM employees"}, "SQLite")
		got := translator.Translate(ctx, "list employee names", "schema text")
		assert.Equal(t, "SELECT name FROM employees", got)
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		translator := New(&stubCompleter{response: "```sql\nSELECT budget FROM departments WHERE name='Engineering'\n```"}, "SQLite")
		got := translator.Translate(ctx, "engineering budget", "schema text")
		assert.Equal(t, "SELECT budget FROM departments WHERE name='Engineering'", got)
	})

	t.Run("backend failure degrades to fallback", func(t *testing.T) {
		translator := New(&stubCompleter{err: errors.New("rate limited")}, "SQLite")
		got := translator.Translate(ctx, "anything", "schema text")
		assert.Equal(t, FallbackQuery, got)
	})

	t.Run("empty completion degrades to fallback", func(t *testing.T) {
		translator := New(&stubCompleter{response: "   \n"}, "SQLite")
		got := translator.Translate(ctx, "anything", "schema text")
		assert.Equal(t, FallbackQuery, got)
	})

	t.Run("write statement degrades to fallback", func(t *testing.T) {
		translator := New(&stubCompleter{response: "DROP TABLE employees"}, "SQLite")
		got := translator.Translate(ctx, "remove the table", "schema text")
		assert.Equal(t, FallbackQuery, got)
	})

	t.Run("fenced write statement degrades to fallback", func(t *testing.T) {
		translator := New(&stubCompleter{response: "```sql\nDELETE FROM employees\n```"}, "SQLite")
		got := translator.Translate(ctx, "clear employees", "schema text")
		assert.Equal(t, FallbackQuery, got)
	})

	t.Run("prompts carry question, schema, and dialect", func(t *testing.T) {
		completer := &stubCompleter{response: "SELECT 1"}
		translator := New(completer, "PostgreSQL")
		translator.Translate(ctx, "who manages Engineering?", "CREATE TABLE departments (...)")

		assert.Contains(t, completer.lastSystem, "PostgreSQL database")
		assert.Contains(t, completer.lastSystem, "CREATE TABLE departments (...)")
		assert.Contains(t, completer.lastSystem, "RULES:")
		assert.Contains(t, completer.lastPrompt, "User question: who manages Engineering?")
		assert.Contains(t, completer.lastPrompt, "Generate a PostgreSQL SELECT query only.")
	})
}

// Whatever the backend does, the translator's output must satisfy the
// read-only guard.
func TestTranslateOutputAlwaysPassesGuard(t *testing.T) {
	ctx := context.Background()
	outputs := []struct {
		response string
		err      error
	}{
		{response: "SELECT * FROM employees"},
		{response: "```sql\nSELECT salary FROM employees WHERE name='Alice'\n```"},
		{response: "DROP TABLE employees; --"},
		{response: "INSERT INTO employees VALUES (99, 'Mallory')"},
		{response: "```\nTRUNCATE departments\n```"},
		{response: ""},
		{err: errors.New("backend exploded")},
	}

	for _, out := range outputs {
		translator := New(&stubCompleter{response: out.response, err: out.err}, "SQLite")
		got := translator.Translate(ctx, "question", "schema")
		require.True(t, guard.IsReadOnly(got), "translator emitted guard-failing SQL %q for backend output %q", got, out.response)
	}
}

func TestDialectForDriver(t *testing.T) {
	assert.Equal(t, "PostgreSQL", DialectForDriver("pgx"))
	assert.Equal(t, "SQLite", DialectForDriver("sqlite"))
	assert.Equal(t, "SQLite", DialectForDriver(""))
}

func TestFallbackQueryShape(t *testing.T) {
	assert.True(t, guard.IsReadOnly(FallbackQuery))
	assert.True(t, strings.HasPrefix(FallbackQuery, "SELECT"))
}
