// Package catalog lists and maintains schema objects: tables, columns, and
// indices.
package catalog

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/internal/sqltext"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// DB is the part of *sqlite.Conn the catalog needs.
type DB interface {
	Exec(sql string) error
	Query(sql string, args ...any) (*sqlite.Rows, error)
	Transaction(fn func() error) error
	Changes() int
}

// Catalog errors.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrNoColumns     = errors.New("at least one column is required")
)

// Column describes one column of a table.
type Column struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	Default    types.Value
	PrimaryKey int // position in the primary key, 0 when not part of it
}

// Index describes one index.
type Index struct {
	Name  string
	Table string
	SQL   string // empty for automatic indices
}

// Tables lists the tables in the main and temp schemas, internal tables
// excluded, sorted by name.
func Tables(db DB) ([]string, error) {
	rows, err := query(db, `SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		UNION ALL
		SELECT name FROM sqlite_temp_schema WHERE type = 'table'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r[0].Text()
	}
	return names, nil
}

// Columns lists the columns of table in declaration order.
func Columns(db DB, table string) ([]Column, error) {
	rows, err := query(db, "PRAGMA table_info("+sqltext.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("columns of %s: %w", table, ErrTableNotFound)
	}
	cols := make([]Column, len(rows))
	for i, r := range rows {
		cols[i] = Column{
			CID:        int(r[0].Int()),
			Name:       r[1].Text(),
			Type:       r[2].Text(),
			NotNull:    r[3].Int() != 0,
			Default:    r[4],
			PrimaryKey: int(r[5].Int()),
		}
	}
	return cols, nil
}

// Indices lists every index in the main schema, sorted by name.
func Indices(db DB) ([]Index, error) {
	rows, err := query(db, "SELECT name, tbl_name, sql FROM sqlite_schema WHERE type = 'index' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	out := make([]Index, len(rows))
	for i, r := range rows {
		out[i] = Index{Name: r[0].Text(), Table: r[1].Text(), SQL: r[2].Text()}
	}
	return out, nil
}

func query(db DB, sql string, args ...any) ([]types.Row, error) {
	rows, err := db.Query(sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Collect()
}
