package sqlite

import (
	"fmt"
	"slices"
	"strconv"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/embedsql/internal/marshal"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// stripSigil removes one leading ':', '@' or '$' from a parameter name.
func stripSigil(name string) string {
	if name != "" && (name[0] == ':' || name[0] == '@' || name[0] == '$') {
		return name[1:]
	}
	return name
}

// BindIndex binds v to the 1-based parameter i. Binding the same parameter
// again before stepping replaces the earlier value.
func (s *Stmt) BindIndex(i int, v any) error {
	key := strconv.Itoa(i)
	if err := s.bindable(); err != nil {
		return &types.BindError{Key: key, Err: err}
	}
	if i < 1 || i > len(s.params) {
		return &types.BindError{Key: key, Err: &types.UnknownParameterError{Index: i, Count: len(s.params)}}
	}
	val, err := marshal.ToValue(v)
	if err != nil {
		return &types.BindError{Key: key, Err: err}
	}
	return s.bind(key, i, val)
}

// BindName binds v to every parameter declared with name. The key may be
// given with or without its ':', '@' or '$' prefix.
func (s *Stmt) BindName(name string, v any) error {
	if err := s.bindable(); err != nil {
		return &types.BindError{Key: name, Err: err}
	}
	indices, ok := s.byName[stripSigil(name)]
	if !ok {
		return &types.BindError{Key: name, Err: &types.UnknownParameterError{Name: name}}
	}
	val, err := marshal.ToValue(v)
	if err != nil {
		return &types.BindError{Key: name, Err: err}
	}
	for _, i := range indices {
		if err := s.bind(name, i, val); err != nil {
			return err
		}
	}
	return nil
}

// BindValues binds args to parameters 1..len(args).
func (s *Stmt) BindValues(args ...any) error {
	if len(args) > len(s.params) {
		n := len(args)
		return &types.BindError{Key: strconv.Itoa(n), Err: &types.UnknownParameterError{Index: n, Count: len(s.params)}}
	}
	for i, v := range args {
		if err := s.BindIndex(i+1, v); err != nil {
			return err
		}
	}
	return nil
}

// BindMap binds each entry of args by name. Keys are bound in sorted order so
// the first reported failure is stable.
func (s *Stmt) BindMap(args map[string]any) error {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.BindName(k, args[k]); err != nil {
			return err
		}
	}
	return nil
}

// ClearBindings resets every parameter to Null.
func (s *Stmt) ClearBindings() error {
	if err := s.bindable(); err != nil {
		return err
	}
	sqlite3.Xsqlite3_clear_bindings(s.conn.tls, s.handle)
	for i := range s.params {
		s.params[i].Value = types.NullValue()
	}
	s.state = Unbound
	return nil
}

func (s *Stmt) bindArgs(args []any) error {
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			return s.BindMap(m)
		}
	}
	return s.BindValues(args...)
}

// bindable reports whether parameters may change in the current state.
func (s *Stmt) bindable() error {
	switch s.state {
	case Unbound, Bound:
		return nil
	case Finalized:
		return types.ErrFinalized
	}
	return types.ErrResetRequired
}

func (s *Stmt) bind(key string, i int, v types.Value) error {
	rc, err := bindValue(s.conn.tls, s.handle, int32(i), v)
	if err != nil {
		return &types.BindError{Key: key, Err: err}
	}
	if rc != sqlite3.SQLITE_OK {
		return &types.BindError{Key: key, Err: fmt.Errorf("%s (%d)", errmsg(s.conn.tls, s.conn.db, rc), rc)}
	}
	s.params[i-1].Value = v
	s.state = Bound
	return nil
}
