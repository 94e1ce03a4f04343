package sqlite

import (
	"fmt"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// State is the lifecycle position of a Stmt.
type State int

// Statement states. Reset returns HasRow, Done, and Failed to Bound;
// Finalized is terminal.
const (
	Unbound State = iota
	Bound
	Executing
	HasRow
	Done
	Failed
	Finalized
)

var stateNames = [...]string{
	Unbound:   "unbound",
	Bound:     "bound",
	Executing: "executing",
	HasRow:    "has-row",
	Done:      "done",
	Failed:    "failed",
	Finalized: "finalized",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Stmt is a compiled statement. It belongs to the Conn that prepared it and
// is finalized by that Conn's Close if the caller has not finalized it.
type Stmt struct {
	conn   *Conn
	handle uintptr
	sql    string
	tail   string
	state  State

	params []types.Parameter
	byName map[string][]int

	columns   []string
	declTypes []string
	row       types.Row
}

func newStmt(c *Conn, handle uintptr, sql, tail string) *Stmt {
	s := &Stmt{conn: c, handle: handle, sql: sql, tail: tail, byName: make(map[string][]int)}

	n := int(sqlite3.Xsqlite3_bind_parameter_count(c.tls, handle))
	s.params = make([]types.Parameter, n)
	for i := range s.params {
		name := libc.GoString(sqlite3.Xsqlite3_bind_parameter_name(c.tls, handle, int32(i+1)))
		s.params[i] = types.Parameter{Index: i + 1, Name: name}
		if name != "" {
			key := stripSigil(name)
			s.byName[key] = append(s.byName[key], i+1)
		}
	}

	cols := int(sqlite3.Xsqlite3_column_count(c.tls, handle))
	s.columns = make([]string, cols)
	s.declTypes = make([]string, cols)
	for i := range cols {
		s.columns[i] = libc.GoString(sqlite3.Xsqlite3_column_name(c.tls, handle, int32(i)))
		s.declTypes[i] = libc.GoString(sqlite3.Xsqlite3_column_decltype(c.tls, handle, int32(i)))
	}

	c.stmts[s] = struct{}{}
	return s
}

// SQL returns the text of the compiled statement.
func (s *Stmt) SQL() string { return s.sql }

// Tail returns the SQL that followed the compiled statement.
func (s *Stmt) Tail() string { return s.tail }

// State returns the current lifecycle state.
func (s *Stmt) State() State { return s.state }

// ColumnNames returns the result column names; empty for statements that
// return no rows.
func (s *Stmt) ColumnNames() []string { return s.columns }

// DeclTypes returns the declared type of each result column, or "" for
// expressions.
func (s *Stmt) DeclTypes() []string { return s.declTypes }

// ParamCount returns the number of placeholders the statement declares.
func (s *Stmt) ParamCount() int { return len(s.params) }

// Params returns a copy of the placeholders and their bound values.
func (s *Stmt) Params() []types.Parameter {
	out := make([]types.Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Step advances the statement. It returns true when a row is available from
// Row and false when the statement is done. Stepping a done statement
// returns false again without re-executing it; a failed statement must be
// reset first.
func (s *Stmt) Step() (bool, error) {
	switch s.state {
	case Finalized:
		return false, types.ErrFinalized
	case Failed:
		return false, &types.StepError{SQL: s.sql, Err: types.ErrResetRequired}
	case Done:
		return false, nil
	}

	c := s.conn
	s.state = Executing
	s.row = nil
	c.callbackErr = nil

	switch rc := sqlite3.Xsqlite3_step(c.tls, s.handle); rc {
	case sqlite3.SQLITE_ROW:
		s.row = s.readRow()
		s.state = HasRow
		return true, nil
	case sqlite3.SQLITE_DONE:
		s.state = Done
		return false, nil
	default:
		s.state = Failed
		return false, c.stepError(s.sql, rc)
	}
}

func (s *Stmt) readRow() types.Row {
	row := make(types.Row, len(s.columns))
	for i := range row {
		row[i] = columnValue(s.conn.tls, s.handle, int32(i))
	}
	return row
}

// Row returns the current row, or nil unless the last Step returned true.
func (s *Stmt) Row() types.Row {
	if s.state != HasRow {
		return nil
	}
	return s.row
}

// Exec steps the statement until it is done, discarding rows.
func (s *Stmt) Exec() error {
	for {
		more, err := s.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Reset rewinds the statement so it can run again. Bindings are kept.
func (s *Stmt) Reset() error {
	if s.state == Finalized {
		return types.ErrFinalized
	}
	// The return code repeats the last step failure, which the caller has
	// already seen.
	sqlite3.Xsqlite3_reset(s.conn.tls, s.handle)
	s.state = Bound
	s.row = nil
	return nil
}

// Rows returns a cursor over the statement's remaining rows.
func (s *Stmt) Rows() *Rows {
	return &Rows{stmt: s}
}

// Finalize releases the compiled statement. It is safe to call more than
// once.
func (s *Stmt) Finalize() error {
	s.finalize()
	return nil
}

func (s *Stmt) finalize() {
	if s.state == Finalized {
		return
	}
	// finalize reports the last step failure again; it cannot fail itself.
	sqlite3.Xsqlite3_finalize(s.conn.tls, s.handle)
	delete(s.conn.stmts, s)
	s.handle = 0
	s.state = Finalized
	s.row = nil
}
