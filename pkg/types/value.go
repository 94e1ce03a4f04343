package types

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
)

// Kind is the storage class of a Value.
type Kind int

// Storage classes, in the engine's own order.
const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

var kindNames = [...]string{
	KindNull:    "NULL",
	KindInteger: "INTEGER",
	KindFloat:   "REAL",
	KindText:    "TEXT",
	KindBlob:    "BLOB",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is one cell exchanged with the engine. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Row is one result row; its length equals the statement's column count.
type Row []Value

// NullValue returns the Null value.
func NullValue() Value { return Value{} }

// IntegerValue returns an Integer value.
func IntegerValue(v int64) Value { return Value{kind: KindInteger, i: v} }

// FloatValue returns a Float value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// TextValue returns a Text value.
func TextValue(v string) Value { return Value{kind: KindText, s: v} }

// BlobValue returns a Blob value. A nil slice is still a Blob of length zero.
func BlobValue(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{kind: KindBlob, b: v}
}

// Kind returns the storage class.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer payload. Float values are truncated; other kinds
// return 0.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return int64(v.f)
	}
	return 0
}

// Float returns the float payload. Integer values are converted; other kinds
// return 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInteger:
		return float64(v.i)
	}
	return 0
}

// Text returns the text payload, or "" for other kinds.
func (v Value) Text() string {
	if v.kind == KindText {
		return v.s
	}
	return ""
}

// Blob returns the blob payload, or nil for other kinds.
func (v Value) Blob() []byte {
	if v.kind == KindBlob {
		return v.b
	}
	return nil
}

// Any returns the payload as nil, int64, float64, string, or []byte.
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	}
	return nil
}

// Equal reports whether two values have the same kind and payload. Two NaN
// floats are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	}
	return true
}

// String renders the value for display. Blobs render as x'..' literals.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return "x'" + hex.EncodeToString(v.b) + "'"
	}
	return "NULL"
}

// Values returns the payloads of every cell, in column order.
func (r Row) Values() []any {
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = v.Any()
	}
	return out
}

// Parameter is one placeholder of a compiled statement.
type Parameter struct {
	Index int    // 1-based
	Name  string // declared form such as ":id"; empty for ? placeholders
	Value Value
}
