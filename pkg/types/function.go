package types

import "fmt"

// FunctionKind distinguishes scalar from aggregate functions.
type FunctionKind int

// Function kinds.
const (
	Scalar FunctionKind = iota
	Aggregate
)

func (k FunctionKind) String() string {
	if k == Aggregate {
		return "aggregate"
	}
	return "scalar"
}

// Variadic is the arity of a function that accepts any number of arguments.
const Variadic = -1

// FunctionRegistration describes a function registered on a connection.
// A connection holds at most one registration per (Name, Arity).
type FunctionRegistration struct {
	Name          string
	Arity         int
	Deterministic bool
	Kind          FunctionKind
}

func (r FunctionRegistration) String() string {
	arity := fmt.Sprint(r.Arity)
	if r.Arity == Variadic {
		arity = "*"
	}
	return fmt.Sprintf("%s/%s (%s)", r.Name, arity, r.Kind)
}
