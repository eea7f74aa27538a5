package guard

import (
	"errors"
	"strings"
)

// ErrUnsafeQuery is returned by Check for any statement that fails IsReadOnly.
var ErrUnsafeQuery = errors.New("only SELECT queries are allowed")

// writeKeywords rejects a query when any of them appears anywhere in the
// uppercased text, string literals and identifiers included. A SELECT that
// merely mentions "created_at" is refused; a write statement never gets
// through.
var writeKeywords = []string{
	"INSERT",
	"UPDATE",
	"DELETE",
	"DROP",
	"ALTER",
	"TRUNCATE",
	"REPLACE",
	"CREATE",
}

// IsReadOnly reports whether the query contains no write keyword.
func IsReadOnly(query string) bool {
	upper := strings.ToUpper(query)
	for _, keyword := range writeKeywords {
		if strings.Contains(upper, keyword) {
			return false
		}
	}
	return true
}

// Check wraps IsReadOnly for callers that want an error value.
func Check(query string) error {
	if !IsReadOnly(query) {
		return ErrUnsafeQuery
	}
	return nil
}
