// Package sqltext quotes and escapes text for embedding in SQL.
package sqltext

import (
	"strconv"
	"strings"
)

// Escape backslash-escapes every special character in s, so that a pattern
// such as `-\d` survives being written inside an interpreted string literal.
// The result has no surrounding quotes.
func Escape(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// Unescape reverses Escape.
func Unescape(s string) (string, error) {
	return strconv.Unquote(`"` + s + `"`)
}

// QuoteIdent quotes an identifier such as a table or column name.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdents quotes each name and joins them with commas.
func QuoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
