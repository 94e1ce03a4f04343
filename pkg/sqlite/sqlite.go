// Package sqlite is the public entry point to the embedded engine. It
// exposes the connection, statement, and cursor types while keeping the
// native bridge internal.
//
// Example:
//
//	conn, err := sqlite.Open(types.Memory)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	rows, err := conn.Query("SELECT name FROM artist WHERE name REGEXP ?", "^A")
package sqlite

import (
	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

type (
	// Conn is an open database connection.
	Conn = sqlite.Conn
	// Stmt is a compiled statement.
	Stmt = sqlite.Stmt
	// Rows is a forward-only cursor over a statement's results.
	Rows = sqlite.Rows
	// State is a statement's lifecycle state.
	State = sqlite.State
	// ScalarFunc implements a scalar SQL function.
	ScalarFunc = sqlite.ScalarFunc
	// Aggregate implements an aggregate SQL function.
	Aggregate = sqlite.Aggregate
)

// Statement states.
const (
	Unbound   = sqlite.Unbound
	Bound     = sqlite.Bound
	Executing = sqlite.Executing
	HasRow    = sqlite.HasRow
	Done      = sqlite.Done
	Failed    = sqlite.Failed
	Finalized = sqlite.Finalized
)

// Open opens the database at location. types.Memory or "" opens a private
// in-memory database.
func Open(location string) (*Conn, error) {
	return sqlite.Open(location)
}

// OpenConfig opens a database described by cfg.
func OpenConfig(cfg types.Config) (*Conn, error) {
	return sqlite.OpenConfig(cfg)
}
