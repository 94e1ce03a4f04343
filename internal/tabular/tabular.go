// Package tabular moves whole result sets between Go values and tables.
package tabular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/internal/sqltext"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// Tabular errors.
var (
	ErrNoColumns = errors.New("table has no columns")
	ErrRowWidth  = errors.New("row width does not match column count")
)

// Table is a materialized result set.
type Table struct {
	Columns []string
	Rows    []types.Row
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the values of the named column, or nil when there is no
// such column.
func (t *Table) Column(name string) []types.Value {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]types.Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Records returns each row as a map from column name to Go value.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			rec[c] = r[j].Any()
		}
		out[i] = rec
	}
	return out
}

// Query runs sql with args and collects at most limit rows. A limit of zero
// or less collects every row.
func Query(c *sqlite.Conn, sql string, limit int, args ...any) (*Table, error) {
	rows, err := c.Query(sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := &Table{Columns: rows.Columns()}
	for rows.Next() {
		t.Rows = append(t.Rows, rows.Row())
		if limit > 0 && len(t.Rows) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Name is the target table. A unique name is generated when empty.
	Name        string
	Temp        bool
	IfNotExists bool
}

// Load creates a table shaped like t and inserts its rows in one transaction.
// It returns the name of the table written.
func Load(c *sqlite.Conn, t *Table, opts LoadOptions) (string, error) {
	if len(t.Columns) == 0 {
		return "", ErrNoColumns
	}
	name := opts.Name
	if name == "" {
		name = GenerateName()
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return "", fmt.Errorf("load %s: row %d has %d values for %d columns: %w",
				name, i, len(r), len(t.Columns), ErrRowWidth)
		}
	}

	err := c.Transaction(func() error {
		if err := c.Exec(createSQL(name, t, opts)); err != nil {
			return err
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		s, err := c.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			sqltext.QuoteIdent(name), sqltext.QuoteIdents(t.Columns), placeholders))
		if err != nil {
			return err
		}
		defer s.Finalize()

		args := make([]any, len(t.Columns))
		for i, r := range t.Rows {
			if err := s.Reset(); err != nil {
				return err
			}
			for j, v := range r {
				args[j] = v
			}
			if err := s.BindValues(args...); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := s.Exec(); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	return name, nil
}

// GenerateName returns a fresh table name that is a valid bare identifier.
func GenerateName() string {
	return "embedsql_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
}

func createSQL(name string, t *Table, opts LoadOptions) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if opts.Temp {
		b.WriteString("TEMP ")
	}
	b.WriteString("TABLE ")
	if opts.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(sqltext.QuoteIdent(name))
	b.WriteString(" (")
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqltext.QuoteIdent(col))
		if typ := columnType(t, i); typ != "" {
			b.WriteString(" ")
			b.WriteString(typ)
		}
	}
	b.WriteString(")")
	return b.String()
}

// columnType names the storage class of the first non-null value in column
// i, or returns "" when every value is null.
func columnType(t *Table, i int) string {
	for _, r := range t.Rows {
		if !r[i].IsNull() {
			return r[i].Kind().String()
		}
	}
	return ""
}
