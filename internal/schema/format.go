package schema

import (
	"fmt"
	"strings"
)

// EmptySchemaPrompt is the fixed text used when no tables exist.
const EmptySchemaPrompt = "No database schema available."

// FormatForLLM renders a schema as CREATE TABLE blocks plus a relationship
// list for inclusion in a model system instruction. Output is deterministic
// for a given schema value.
func FormatForLLM(s *Schema) string {
	if s == nil || len(s.Tables) == 0 {
		return EmptySchemaPrompt
	}

	var out []string

	out = append(out, fmt.Sprintf("The database is %s.", strings.ToUpper(s.Dialect)))

	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = "`" + t.Name + "`"
	}
	out = append(out, fmt.Sprintf("The database contains %d table(s): %s.", len(s.Tables), strings.Join(names, ", ")))
	out = append(out, "", "SCHEMAS:", "")

	for _, t := range s.Tables {
		out = append(out, fmt.Sprintf("CREATE TABLE %s (", t.Name))

		columnLines := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			line := fmt.Sprintf("  %s %s", c.Name, c.Type)
			if c.PrimaryKey {
				line += " PRIMARY KEY"
			}
			if !c.Nullable {
				line += " NOT NULL"
			}
			columnLines = append(columnLines, line)
		}

		out = append(out, strings.Join(columnLines, ",\n"), ");", "")
	}

	if len(s.Relationships) > 0 {
		out = append(out, "RELATIONSHIPS:")
		for _, r := range s.Relationships {
			out = append(out, fmt.Sprintf("- %s.%s → %s.%s", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn))
		}
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}
