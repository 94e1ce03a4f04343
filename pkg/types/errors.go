package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Lifecycle errors.
var (
	ErrClosed         = errors.New("connection is closed")
	ErrFinalized      = errors.New("statement is finalized")
	ErrResetRequired  = errors.New("statement must be reset before reuse")
	ErrInterrupted    = errors.New("execution interrupted")
	ErrEmptyStatement = errors.New("sql contains no statement")
	ErrNoRow          = errors.New("statement has no current row")
)

// OpenError reports a failure to open or validate a database.
type OpenError struct {
	Location string
	Code     int
	Msg      string
	Err      error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("open %q: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("open %q: %s (%d)", e.Location, e.Msg, e.Code)
}

func (e *OpenError) Unwrap() error { return e.Err }

// PrepareError reports SQL that failed to compile.
type PrepareError struct {
	SQL  string
	Code int
	Msg  string
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare %q: %s (%d)", e.SQL, e.Msg, e.Code)
}

// UnknownParameterError reports a bind key the statement does not declare.
// Exactly one of Name and Index is set.
type UnknownParameterError struct {
	Name  string
	Index int
	Count int
}

func (e *UnknownParameterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown parameter %q", e.Name)
	}
	return fmt.Sprintf("parameter index %d out of range [1, %d]", e.Index, e.Count)
}

// BindError reports a failed bind. Err is an *UnknownParameterError, a
// *SerializationError, a lifecycle sentinel, or a native failure.
type BindError struct {
	Key string
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Key, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// StepKind classifies a StepError.
type StepKind int

// Step failure classes.
const (
	StepOther StepKind = iota
	StepConstraint
	StepMismatch
	StepInterrupted
	StepFunction
	StepBusy
)

var stepKindNames = [...]string{
	StepOther:       "other",
	StepConstraint:  "constraint",
	StepMismatch:    "mismatch",
	StepInterrupted: "interrupted",
	StepFunction:    "function",
	StepBusy:        "busy",
}

func (k StepKind) String() string {
	if k < 0 || int(k) >= len(stepKindNames) {
		return "StepKind(" + strconv.Itoa(int(k)) + ")"
	}
	return stepKindNames[k]
}

// StepError reports a failure while executing a statement. After a
// StepError the statement must be reset before it can run again.
type StepError struct {
	SQL  string
	Kind StepKind
	Code int
	Msg  string
	Err  error
}

func (e *StepError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return fmt.Sprintf("step %q: %v", e.SQL, e.Err)
	}
	return fmt.Sprintf("step %q: %s: %s (%d)", e.SQL, e.Kind, e.Msg, e.Code)
}

// Unwrap exposes the cause. Interrupted steps without a more specific cause
// unwrap to ErrInterrupted.
func (e *StepError) Unwrap() error {
	if e.Err == nil && e.Kind == StepInterrupted {
		return ErrInterrupted
	}
	return e.Err
}

// FunctionInvocationError reports a registered function that returned an
// error or panicked while the engine was calling it.
type FunctionInvocationError struct {
	Name string
	Err  error
}

func (e *FunctionInvocationError) Error() string {
	return fmt.Sprintf("function %s: %v", e.Name, e.Err)
}

func (e *FunctionInvocationError) Unwrap() error { return e.Err }

// SerializationError reports a host value with no storage-class mapping.
type SerializationError struct {
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot store %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("cannot store %s: no storage class mapping", e.Type)
}

func (e *SerializationError) Unwrap() error { return e.Err }
