// Package marshal converts between host Go values and the engine's five
// storage classes.
//
// Direct mappings cover nil, every sized integer (unsigned values must fit
// in int64), float32 and float64, bool (stored as 0 or 1), string, []byte,
// and named types whose underlying kind is one of these. A value that has no
// direct mapping may opt into blob storage by implementing BlobMarshaler, in
// which case it is written inside a small versioned envelope. Reading such a
// blob back yields the envelope bytes; nothing decodes automatically.
package marshal

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// Valuer is implemented by host values that choose their own storage class,
// for example a big integer stored as TEXT.
type Valuer interface {
	SQLValue() (types.Value, error)
}

// BlobMarshaler is implemented by host values that opt into blob storage.
// The returned payload must be deterministic for equal values.
type BlobMarshaler interface {
	MarshalSQLBlob() ([]byte, error)
}

// codecer lets a BlobMarshaler name the codec recorded in its envelope.
type codecer interface {
	blobCodec() Codec
}

// ToValue maps v onto a storage class.
func ToValue(v any) (types.Value, error) {
	switch x := v.(type) {
	case nil:
		return types.NullValue(), nil
	case types.Value:
		return x, nil
	case Valuer:
		out, err := x.SQLValue()
		if err != nil {
			return types.Value{}, &types.SerializationError{Type: typeName(v), Err: err}
		}
		return out, nil
	case int64:
		return types.IntegerValue(x), nil
	case int:
		return types.IntegerValue(int64(x)), nil
	case float64:
		return types.FloatValue(x), nil
	case string:
		return types.TextValue(x), nil
	case []byte:
		if x == nil {
			return types.NullValue(), nil
		}
		return types.BlobValue(x), nil
	case bool:
		if x {
			return types.IntegerValue(1), nil
		}
		return types.IntegerValue(0), nil
	case BlobMarshaler:
		return marshalBlob(x)
	}
	return reflectValue(reflect.ValueOf(v))
}

// FromValue returns the host form of a stored value: nil, int64, float64,
// string, or []byte.
func FromValue(v types.Value) any {
	return v.Any()
}

func reflectValue(rv reflect.Value) (types.Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return types.IntegerValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return types.Value{}, &types.SerializationError{
				Type: typeName(rv.Interface()),
				Err:  fmt.Errorf("%d overflows int64", u),
			}
		}
		return types.IntegerValue(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return types.FloatValue(rv.Float()), nil
	case reflect.String:
		return types.TextValue(rv.String()), nil
	case reflect.Bool:
		if rv.Bool() {
			return types.IntegerValue(1), nil
		}
		return types.IntegerValue(0), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.IsNil() {
				return types.NullValue(), nil
			}
			return types.BlobValue(rv.Bytes()), nil
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return types.NullValue(), nil
		}
		return ToValue(rv.Elem().Interface())
	}
	return types.Value{}, &types.SerializationError{Type: typeName(rv.Interface())}
}

func marshalBlob(m BlobMarshaler) (types.Value, error) {
	payload, err := m.MarshalSQLBlob()
	if err != nil {
		return types.Value{}, &types.SerializationError{Type: typeName(m), Err: err}
	}
	codec := CodecCustom
	if c, ok := m.(codecer); ok {
		codec = c.blobCodec()
	}
	return types.BlobValue(Encode(codec, payload)), nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
