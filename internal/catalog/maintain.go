package catalog

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/embedsql/internal/sqltext"
)

// DropTable drops table and vacuums the database to reclaim its pages.
func DropTable(db DB, table string, ifExists bool) error {
	return drop(db, "TABLE", table, ifExists)
}

// DropIndex drops index and vacuums the database.
func DropIndex(db DB, index string, ifExists bool) error {
	return drop(db, "INDEX", index, ifExists)
}

func drop(db DB, kind, name string, ifExists bool) error {
	var b strings.Builder
	b.WriteString("DROP ")
	b.WriteString(kind)
	if ifExists {
		b.WriteString(" IF EXISTS")
	}
	b.WriteString(" ")
	b.WriteString(sqltext.QuoteIdent(name))
	if err := db.Exec(b.String()); err != nil {
		return fmt.Errorf("drop %s %s: %w", strings.ToLower(kind), name, err)
	}
	if err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum after dropping %s: %w", name, err)
	}
	return nil
}

// IndexOptions controls CreateIndex.
type IndexOptions struct {
	Unique      bool
	IfNotExists bool
}

// CreateIndex creates index on table over cols.
func CreateIndex(db DB, table, index string, cols []string, opts IndexOptions) error {
	if len(cols) == 0 {
		return fmt.Errorf("create index %s: %w", index, ErrNoColumns)
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if opts.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if opts.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&b, "%s ON %s (%s)", sqltext.QuoteIdent(index), sqltext.QuoteIdent(table), sqltext.QuoteIdents(cols))
	if err := db.Exec(b.String()); err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	return nil
}

// RemoveDuplicates deletes rows of table that repeat an earlier row's values
// in cols, keeping the row with the lowest rowid. It returns the number of
// rows removed.
func RemoveDuplicates(db DB, table string, cols []string) (int, error) {
	if len(cols) == 0 {
		return 0, fmt.Errorf("remove duplicates from %s: %w", table, ErrNoColumns)
	}
	t := sqltext.QuoteIdent(table)
	sql := fmt.Sprintf("DELETE FROM %s WHERE rowid NOT IN (SELECT min(rowid) FROM %s GROUP BY %s)",
		t, t, sqltext.QuoteIdents(cols))

	var removed int
	err := db.Transaction(func() error {
		if err := db.Exec(sql); err != nil {
			return err
		}
		removed = db.Changes()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove duplicates from %s: %w", table, err)
	}
	return removed, nil
}
