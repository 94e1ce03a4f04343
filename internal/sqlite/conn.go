// Package sqlite binds the embedded SQLite engine directly: connections,
// prepared statements, parameter binding, row cursors, and host-defined
// scalar and aggregate functions.
//
// A Conn owns its native handle and every Stmt compiled from it. Closing a
// Conn finalizes the statements it spawned before releasing the handle.
// A Conn is meant to be used from one goroutine at a time; only Interrupt
// may be called concurrently.
package sqlite

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unsafe"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// Conn is an open database connection.
type Conn struct {
	// mu guards db and tls against Interrupt racing Close.
	mu  sync.Mutex
	tls *libc.TLS
	db  uintptr

	location string
	log      *slog.Logger

	// regexpTimeout bounds each match of the built-in regexp.
	regexpTimeout time.Duration

	stmts map[*Stmt]struct{}
	funcs map[funcKey]*function

	// callbackErr holds the first function failure of the current step.
	callbackErr error
}

// Open opens the database at location. An empty location or ":memory:"
// opens a private in-memory database.
func Open(location string) (*Conn, error) {
	return OpenConfig(types.Config{Location: location})
}

// OpenConfig opens a database as described by cfg. The returned connection
// has the regexp function registered.
func OpenConfig(cfg types.Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &types.OpenError{Location: cfg.Location, Err: err}
	}
	location := cfg.Location
	if cfg.IsMemory() {
		location = types.Memory
	}

	c := &Conn{
		tls:      libc.NewTLS(),
		location:      location,
		log:           cfg.Log(),
		regexpTimeout: cfg.MatchTimeout(),
		stmts:         make(map[*Stmt]struct{}),
		funcs:         make(map[funcKey]*function),
	}

	flags := int32(sqlite3.SQLITE_OPEN_URI | sqlite3.SQLITE_OPEN_FULLMUTEX)
	if cfg.ReadOnly {
		flags |= sqlite3.SQLITE_OPEN_READONLY
	} else {
		flags |= sqlite3.SQLITE_OPEN_READWRITE | sqlite3.SQLITE_OPEN_CREATE
	}

	if err := c.openV2(flags); err != nil {
		c.release()
		return nil, err
	}

	sqlite3.Xsqlite3_extended_result_codes(c.tls, c.db, 1)
	if cfg.BusyTimeout > 0 {
		sqlite3.Xsqlite3_busy_timeout(c.tls, c.db, int32(cfg.BusyTimeout.Milliseconds()))
	}

	// Reading the schema makes a file that is not a database fail here
	// rather than on first use.
	if err := c.Exec("PRAGMA schema_version"); err != nil {
		c.closeWithError("read schema", err)
		return nil, &types.OpenError{Location: location, Code: errorCode(err), Err: err}
	}

	if err := registerBuiltins(c); err != nil {
		c.closeWithError("register builtins", err)
		return nil, &types.OpenError{Location: location, Err: err}
	}

	c.log.Debug("opened database", "location", location, "read_only", cfg.ReadOnly)
	return c, nil
}

func (c *Conn) openV2(flags int32) error {
	var p, name uintptr
	defer func() {
		free(c.tls, p)
		free(c.tls, name)
	}()

	p, err := malloc(c.tls, int(ptrSize))
	if err != nil {
		return &types.OpenError{Location: c.location, Code: sqlite3.SQLITE_NOMEM, Err: err}
	}
	*(*uintptr)(unsafe.Pointer(p)) = 0

	if name, err = libc.CString(c.location); err != nil {
		return &types.OpenError{Location: c.location, Code: sqlite3.SQLITE_NOMEM, Err: err}
	}

	rc := sqlite3.Xsqlite3_open_v2(c.tls, name, p, flags, 0)
	c.db = *(*uintptr)(unsafe.Pointer(p))
	if rc != sqlite3.SQLITE_OK {
		oe := &types.OpenError{Location: c.location, Code: int(rc), Msg: errmsg(c.tls, c.db, rc)}
		if c.db != 0 {
			sqlite3.Xsqlite3_close(c.tls, c.db)
			c.db = 0
		}
		return oe
	}
	return nil
}

// Location returns the path or URI the connection was opened with.
func (c *Conn) Location() string {
	return c.location
}

// Close finalizes every statement still open on the connection and releases
// the native handle. Closing a closed connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == 0 {
		return nil
	}

	if n := len(c.stmts); n > 0 {
		c.log.Warn("finalizing statements left open at close", "location", c.location, "count", n)
		for s := range c.stmts {
			s.finalize()
		}
	}
	for p := sqlite3.Xsqlite3_next_stmt(c.tls, c.db, 0); p != 0; p = sqlite3.Xsqlite3_next_stmt(c.tls, c.db, 0) {
		sqlite3.Xsqlite3_finalize(c.tls, p)
	}

	// A failed close leaves the handle open, so functions stay registered.
	if rc := sqlite3.Xsqlite3_close(c.tls, c.db); rc != sqlite3.SQLITE_OK {
		return fmt.Errorf("close %s: %s", c.location, errmsg(c.tls, c.db, rc))
	}
	c.db = 0
	c.unregisterAll()
	c.release()
	c.log.Debug("closed database", "location", c.location)
	return nil
}

// closeWithError closes a connection that failed during open. The close
// failure is logged and the handle is left to the engine; the caller
// reports the original error.
func (c *Conn) closeWithError(op string, cause error) {
	if err := c.Close(); err != nil {
		c.log.Warn("close after failed open", "op", op, "cause", cause, "err", err)
	}
}

// release frees the thread state. It does nothing while the handle is open.
func (c *Conn) release() {
	if c.db == 0 && c.tls != nil {
		c.tls.Close()
		c.tls = nil
	}
}

// Interrupt aborts the statement currently executing on the connection. The
// interrupted Step fails with a StepError of kind StepInterrupted. It is
// safe to call from another goroutine.
func (c *Conn) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != 0 {
		sqlite3.Xsqlite3_interrupt(c.tls, c.db)
	}
}

// Prepare compiles the first statement in sql. The uncompiled remainder is
// available from Stmt.Tail.
func (c *Conn) Prepare(sql string) (*Stmt, error) {
	if c.db == 0 {
		return nil, types.ErrClosed
	}
	s, _, err := c.prepare(sql)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("prepare %q: %w", sql, types.ErrEmptyStatement)
	}
	return s, nil
}

// prepare compiles the first statement of sql. It returns a nil Stmt when
// sql holds only whitespace, comments, or empty statements before tail.
func (c *Conn) prepare(sql string) (*Stmt, string, error) {
	zSQL, err := cBytes(c.tls, append([]byte(sql), 0))
	if err != nil {
		return nil, "", err
	}
	defer free(c.tls, zSQL)

	slots, err := malloc(c.tls, int(2*ptrSize))
	if err != nil {
		return nil, "", err
	}
	defer free(c.tls, slots)
	ppstmt, pptail := slots, slots+ptrSize
	*(*uintptr)(unsafe.Pointer(ppstmt)) = 0
	*(*uintptr)(unsafe.Pointer(pptail)) = 0

	rc := sqlite3.Xsqlite3_prepare_v2(c.tls, c.db, zSQL, int32(len(sql)), ppstmt, pptail)
	pstmt := *(*uintptr)(unsafe.Pointer(ppstmt))
	if rc != sqlite3.SQLITE_OK {
		if pstmt != 0 {
			sqlite3.Xsqlite3_finalize(c.tls, pstmt)
		}
		return nil, "", &types.PrepareError{SQL: sql, Code: int(rc), Msg: errmsg(c.tls, c.db, rc)}
	}

	tail := ""
	if t := *(*uintptr)(unsafe.Pointer(pptail)); t != 0 {
		if off := int(t - zSQL); off >= 0 && off <= len(sql) {
			tail = sql[off:]
		}
	}
	if pstmt == 0 {
		return nil, tail, nil
	}
	head := strings.TrimSpace(strings.TrimSuffix(sql, tail))
	return newStmt(c, pstmt, head, tail), tail, nil
}

// Exec runs every statement in sql, discarding any rows they produce.
func (c *Conn) Exec(sql string) error {
	if c.db == 0 {
		return types.ErrClosed
	}
	rest := sql
	for strings.TrimSpace(rest) != "" {
		s, tail, err := c.prepare(rest)
		if err != nil {
			return err
		}
		if s != nil {
			err = s.Exec()
			s.finalize()
			if err != nil {
				return err
			}
		}
		if len(tail) >= len(rest) {
			break
		}
		rest = tail
	}
	return nil
}

// Query compiles sql, binds args, and returns a cursor over its rows. A
// single map[string]any argument binds by name; otherwise args bind by
// position. Closing the cursor finalizes the statement.
func (c *Conn) Query(sql string, args ...any) (*Rows, error) {
	s, err := c.Prepare(sql)
	if err != nil {
		return nil, err
	}
	if err := s.bindArgs(args); err != nil {
		s.finalize()
		return nil, err
	}
	rows := s.Rows()
	rows.owned = true
	return rows, nil
}

// Transaction runs fn inside BEGIN and COMMIT. The transaction is rolled back
// when fn or the commit fails; a rollback failure is logged and the original
// error returned.
func (c *Conn) Transaction(fn func() error) (err error) {
	if err := c.Exec("BEGIN"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := c.Exec("ROLLBACK"); rbErr != nil {
			c.log.Warn("rollback failed", "location", c.location, "err", rbErr)
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	if err := c.Exec("COMMIT"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Changes returns the number of rows changed by the most recent INSERT,
// UPDATE, or DELETE.
func (c *Conn) Changes() int {
	if c.db == 0 {
		return 0
	}
	return int(sqlite3.Xsqlite3_changes(c.tls, c.db))
}

// LastInsertRowID returns the rowid of the most recent successful INSERT.
func (c *Conn) LastInsertRowID() int64 {
	if c.db == 0 {
		return 0
	}
	return sqlite3.Xsqlite3_last_insert_rowid(c.tls, c.db)
}

// stepError classifies a failed step.
func (c *Conn) stepError(sql string, rc int32) *types.StepError {
	e := &types.StepError{SQL: sql, Code: int(rc), Msg: errmsg(c.tls, c.db, rc)}
	switch primary(rc) {
	case sqlite3.SQLITE_CONSTRAINT:
		e.Kind = types.StepConstraint
	case sqlite3.SQLITE_MISMATCH:
		e.Kind = types.StepMismatch
	case sqlite3.SQLITE_INTERRUPT:
		e.Kind = types.StepInterrupted
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		e.Kind = types.StepBusy
	}
	if c.callbackErr != nil {
		e.Kind = types.StepFunction
		e.Err = c.callbackErr
		c.callbackErr = nil
	}
	return e
}

// errorCode extracts the native result code carried by err, or 0.
func errorCode(err error) int {
	var pe *types.PrepareError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var se *types.StepError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
