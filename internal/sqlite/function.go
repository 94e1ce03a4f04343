package sqlite

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
	"unsafe"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/embedsql/internal/marshal"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// ScalarFunc computes one result from one row's arguments. The result is
// stored through the same mapping as bound parameters.
type ScalarFunc func(args []types.Value) (any, error)

// Aggregate folds the rows of a group into one result.
//
// Each group starts from Init() when Init is set, otherwise from Initial.
// Initial is shared by every group, so mutable accumulators need Init.
// Step returns the next accumulator; Final maps the last accumulator to the
// result and defaults to returning it unchanged. An empty group produces
// Final applied to the starting value.
type Aggregate struct {
	Initial any
	Init    func() any
	Step    func(acc any, args []types.Value) (any, error)
	Final   func(acc any) (any, error)
}

// Registration errors.
var (
	ErrNilFunction  = errors.New("function is nil")
	ErrInvalidArity = errors.New("arity must be between -1 and 127")
)

type funcKey struct {
	name  string
	arity int
}

type function struct {
	id     uintptr
	conn   *Conn
	reg    types.FunctionRegistration
	scalar ScalarFunc
	agg    Aggregate

	// textArgs delivers Integer and Float arguments as the engine's own
	// TEXT rendering of them.
	textArgs bool
}

type accumulator struct {
	fn    *function
	value any
}

// bridge maps the ids handed to the engine as user data back to Go values.
// Function ids live as long as their registration; accumulator ids live for
// one group of one execution.
var bridge = struct {
	sync.RWMutex
	funcs   map[uintptr]*function
	accs    map[uintptr]*accumulator
	nextFn  uintptr
	nextAcc uintptr
}{
	funcs: make(map[uintptr]*function),
	accs:  make(map[uintptr]*accumulator),
}

func addFunction(f *function) uintptr {
	bridge.Lock()
	defer bridge.Unlock()
	bridge.nextFn++
	f.id = bridge.nextFn
	bridge.funcs[f.id] = f
	return f.id
}

func lookupFunction(id uintptr) *function {
	bridge.RLock()
	defer bridge.RUnlock()
	return bridge.funcs[id]
}

func addAccumulator(a *accumulator) uintptr {
	bridge.Lock()
	defer bridge.Unlock()
	bridge.nextAcc++
	bridge.accs[bridge.nextAcc] = a
	return bridge.nextAcc
}

func lookupAccumulator(id uintptr) *accumulator {
	bridge.RLock()
	defer bridge.RUnlock()
	return bridge.accs[id]
}

func takeAccumulator(id uintptr) *accumulator {
	bridge.Lock()
	defer bridge.Unlock()
	a := bridge.accs[id]
	delete(bridge.accs, id)
	return a
}

// unregisterAll drops the connection's functions and any accumulators
// they still own.
func (c *Conn) unregisterAll() {
	bridge.Lock()
	defer bridge.Unlock()
	for _, f := range c.funcs {
		delete(bridge.funcs, f.id)
	}
	for id, a := range bridge.accs {
		if a.fn.conn == c {
			delete(bridge.accs, id)
		}
	}
	clear(c.funcs)
}

// RegisterScalar makes fn callable from SQL as name with the given arity
// (types.Variadic for any). An empty name uses fn's Go identifier.
// Registering the same name and arity again replaces the earlier function.
func (c *Conn) RegisterScalar(name string, arity int, deterministic bool, fn ScalarFunc) error {
	if fn == nil {
		return fmt.Errorf("register %s: %w", name, ErrNilFunction)
	}
	if name == "" {
		name = funcName(fn)
	}
	return c.register(&function{
		reg:    types.FunctionRegistration{Name: name, Arity: arity, Deterministic: deterministic, Kind: types.Scalar},
		scalar: fn,
	})
}

// RegisterAggregate makes agg callable from SQL as name. An empty name uses
// the Go identifier of agg.Step.
func (c *Conn) RegisterAggregate(name string, arity int, deterministic bool, agg Aggregate) error {
	if agg.Step == nil {
		return fmt.Errorf("register %s: %w", name, ErrNilFunction)
	}
	if name == "" {
		name = funcName(agg.Step)
	}
	return c.register(&function{
		reg: types.FunctionRegistration{Name: name, Arity: arity, Deterministic: deterministic, Kind: types.Aggregate},
		agg: agg,
	})
}

// Functions lists the registrations on the connection, sorted by name and
// arity.
func (c *Conn) Functions() []types.FunctionRegistration {
	out := make([]types.FunctionRegistration, 0, len(c.funcs))
	for _, f := range c.funcs {
		out = append(out, f.reg)
	}
	slices.SortFunc(out, func(a, b types.FunctionRegistration) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return a.Arity - b.Arity
	})
	return out
}

func (c *Conn) register(f *function) error {
	if c.db == 0 {
		return types.ErrClosed
	}
	if f.reg.Arity < types.Variadic || f.reg.Arity > 127 {
		return fmt.Errorf("register %s: %w", f.reg, ErrInvalidArity)
	}

	zName, err := libc.CString(f.reg.Name)
	if err != nil {
		return fmt.Errorf("register %s: %w", f.reg, err)
	}
	defer free(c.tls, zName)

	enc := int32(sqlite3.SQLITE_UTF8)
	if f.reg.Deterministic {
		enc |= sqlite3.SQLITE_DETERMINISTIC
	}

	var xFunc, xStep, xFinal uintptr
	if f.reg.Kind == types.Aggregate {
		xStep = cFuncPointer(stepTrampoline)
		xFinal = cFuncPointer(finalTrampoline)
	} else {
		xFunc = cFuncPointer(scalarTrampoline)
	}

	f.conn = c
	id := addFunction(f)
	rc := sqlite3.Xsqlite3_create_function_v2(c.tls, c.db, zName, int32(f.reg.Arity), enc, id, xFunc, xStep, xFinal, 0)
	if rc != sqlite3.SQLITE_OK {
		bridge.Lock()
		delete(bridge.funcs, id)
		bridge.Unlock()
		return fmt.Errorf("register %s: %s (%d)", f.reg, errmsg(c.tls, c.db, rc), rc)
	}

	key := funcKey{name: strings.ToLower(f.reg.Name), arity: f.reg.Arity}
	if old, ok := c.funcs[key]; ok {
		bridge.Lock()
		delete(bridge.funcs, old.id)
		bridge.Unlock()
	}
	c.funcs[key] = f
	return nil
}

// funcName returns the unqualified Go identifier of fn.
func funcName(fn any) string {
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return ""
	}
	name := strings.TrimSuffix(rf.Name(), "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// invoke runs call, converting a panic into an error.
func (f *function) invoke(call func() (any, error)) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return call()
}

// fail reports err to the engine and records it for the failing Step.
func (f *function) fail(tls *libc.TLS, ctx uintptr, err error) {
	fe := &types.FunctionInvocationError{Name: f.reg.Name, Err: err}
	if f.conn.callbackErr == nil {
		f.conn.callbackErr = fe
	}
	setError(tls, ctx, fe.Error())
}

// result hands res back to the engine.
func (f *function) result(tls *libc.TLS, ctx uintptr, res any) {
	v, err := marshal.ToValue(res)
	if err != nil {
		f.fail(tls, ctx, err)
		return
	}
	if err := setResult(tls, ctx, v); err != nil {
		f.fail(tls, ctx, err)
	}
}

func (f *function) initial() any {
	if f.agg.Init != nil {
		return f.agg.Init()
	}
	return f.agg.Initial
}

// accumulator returns the group's accumulator, creating it on the group's
// first row. The engine zeroes the aggregate context on allocation, so a
// zero slot means no accumulator yet.
func (f *function) accumulator(tls *libc.TLS, ctx uintptr) (*accumulator, error) {
	slot := sqlite3.Xsqlite3_aggregate_context(tls, ctx, int32(ptrSize))
	if slot == 0 {
		return nil, errors.New("out of memory for aggregate context")
	}
	p := (*uintptr)(unsafe.Pointer(slot))
	if *p != 0 {
		if a := lookupAccumulator(*p); a != nil {
			return a, nil
		}
	}
	a := &accumulator{fn: f}
	start, err := f.invoke(func() (any, error) { return f.initial(), nil })
	if err != nil {
		return nil, err
	}
	a.value = start
	*p = addAccumulator(a)
	return a, nil
}

func scalarTrampoline(tls *libc.TLS, ctx uintptr, argc int32, argv uintptr) {
	f := lookupFunction(sqlite3.Xsqlite3_user_data(tls, ctx))
	if f == nil {
		setError(tls, ctx, "function is no longer registered")
		return
	}
	args := argValues(tls, argc, argv, f.textArgs)
	res, err := f.invoke(func() (any, error) { return f.scalar(args) })
	if err != nil {
		f.fail(tls, ctx, err)
		return
	}
	f.result(tls, ctx, res)
}

func stepTrampoline(tls *libc.TLS, ctx uintptr, argc int32, argv uintptr) {
	f := lookupFunction(sqlite3.Xsqlite3_user_data(tls, ctx))
	if f == nil {
		setError(tls, ctx, "function is no longer registered")
		return
	}
	a, err := f.accumulator(tls, ctx)
	if err != nil {
		f.fail(tls, ctx, err)
		return
	}
	args := argValues(tls, argc, argv, f.textArgs)
	next, err := f.invoke(func() (any, error) { return f.agg.Step(a.value, args) })
	if err != nil {
		f.fail(tls, ctx, err)
		return
	}
	a.value = next
}

func finalTrampoline(tls *libc.TLS, ctx uintptr) {
	f := lookupFunction(sqlite3.Xsqlite3_user_data(tls, ctx))
	if f == nil {
		setError(tls, ctx, "function is no longer registered")
		return
	}

	// A zero-sized request returns the existing context without allocating,
	// or 0 when no row reached the group.
	var acc any
	var started bool
	if slot := sqlite3.Xsqlite3_aggregate_context(tls, ctx, 0); slot != 0 {
		if id := *(*uintptr)(unsafe.Pointer(slot)); id != 0 {
			if a := takeAccumulator(id); a != nil {
				acc, started = a.value, true
			}
		}
	}
	res, err := f.invoke(func() (any, error) {
		if !started {
			acc = f.initial()
		}
		if f.agg.Final == nil {
			return acc, nil
		}
		return f.agg.Final(acc)
	})
	if err != nil {
		f.fail(tls, ctx, err)
		return
	}
	f.result(tls, ctx, res)
}
