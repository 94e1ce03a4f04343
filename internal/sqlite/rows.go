package sqlite

import (
	"iter"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// Rows is a single-pass cursor over a statement's results. Each call to Next
// steps the statement once; rows are never buffered ahead.
//
//	rows, err := conn.Query("SELECT id, name FROM t WHERE id > ?", 10)
//	if err != nil {
//		return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//		row := rows.Row()
//		...
//	}
//	return rows.Err()
type Rows struct {
	stmt  *Stmt
	owned bool
	row   types.Row
	err   error
	done  bool
}

// Next advances to the next row. It returns false at the end of the results
// or on error; check Err afterwards.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	more, err := r.stmt.Step()
	if err != nil || !more {
		r.err = err
		r.done = true
		r.row = nil
		return false
	}
	r.row = r.stmt.Row()
	return true
}

// Row returns the current row.
func (r *Rows) Row() types.Row { return r.row }

// Err returns the error that ended iteration, if any.
func (r *Rows) Err() error { return r.err }

// Columns returns the result column names.
func (r *Rows) Columns() []string { return r.stmt.ColumnNames() }

// Close ends iteration. A cursor returned by Conn.Query finalizes its
// statement; a cursor from Stmt.Rows resets it for reuse.
func (r *Rows) Close() error {
	r.done = true
	r.row = nil
	if r.owned {
		return r.stmt.Finalize()
	}
	if r.stmt.State() == Finalized {
		return nil
	}
	return r.stmt.Reset()
}

// All returns an iterator over the remaining rows. A failure is yielded once
// as the final element.
func (r *Rows) All() iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		for r.Next() {
			if !yield(r.row, nil) {
				return
			}
		}
		if r.err != nil {
			yield(nil, r.err)
		}
	}
}

// Collect drains the cursor into a slice.
func (r *Rows) Collect() ([]types.Row, error) {
	var out []types.Row
	for r.Next() {
		out = append(out, r.row)
	}
	return out, r.err
}
