package sqlite

import (
	"unsafe"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// columnValue reads column i of the current row.
func columnValue(tls *libc.TLS, pstmt uintptr, i int32) types.Value {
	switch sqlite3.Xsqlite3_column_type(tls, pstmt, i) {
	case sqlite3.SQLITE_INTEGER:
		return types.IntegerValue(sqlite3.Xsqlite3_column_int64(tls, pstmt, i))
	case sqlite3.SQLITE_FLOAT:
		return types.FloatValue(sqlite3.Xsqlite3_column_double(tls, pstmt, i))
	case sqlite3.SQLITE_TEXT:
		p := sqlite3.Xsqlite3_column_text(tls, pstmt, i)
		return types.TextValue(string(copyBytes(p, sqlite3.Xsqlite3_column_bytes(tls, pstmt, i))))
	case sqlite3.SQLITE_BLOB:
		p := sqlite3.Xsqlite3_column_blob(tls, pstmt, i)
		return types.BlobValue(copyBytes(p, sqlite3.Xsqlite3_column_bytes(tls, pstmt, i)))
	}
	return types.NullValue()
}

// argValues reads the arguments of a function invocation. With asText,
// numeric arguments are converted by the engine and arrive as Text.
func argValues(tls *libc.TLS, argc int32, argv uintptr, asText bool) []types.Value {
	args := make([]types.Value, argc)
	for i := range args {
		pval := *(*uintptr)(unsafe.Pointer(argv + uintptr(i)*valuePtrSize))
		if asText && isNumeric(tls, pval) {
			p := sqlite3.Xsqlite3_value_text(tls, pval)
			args[i] = types.TextValue(string(copyBytes(p, sqlite3.Xsqlite3_value_bytes(tls, pval))))
			continue
		}
		args[i] = argValue(tls, pval)
	}
	return args
}

func isNumeric(tls *libc.TLS, pval uintptr) bool {
	switch sqlite3.Xsqlite3_value_type(tls, pval) {
	case sqlite3.SQLITE_INTEGER, sqlite3.SQLITE_FLOAT:
		return true
	}
	return false
}

func argValue(tls *libc.TLS, pval uintptr) types.Value {
	switch sqlite3.Xsqlite3_value_type(tls, pval) {
	case sqlite3.SQLITE_INTEGER:
		return types.IntegerValue(sqlite3.Xsqlite3_value_int64(tls, pval))
	case sqlite3.SQLITE_FLOAT:
		return types.FloatValue(sqlite3.Xsqlite3_value_double(tls, pval))
	case sqlite3.SQLITE_TEXT:
		p := sqlite3.Xsqlite3_value_text(tls, pval)
		return types.TextValue(string(copyBytes(p, sqlite3.Xsqlite3_value_bytes(tls, pval))))
	case sqlite3.SQLITE_BLOB:
		p := sqlite3.Xsqlite3_value_blob(tls, pval)
		return types.BlobValue(copyBytes(p, sqlite3.Xsqlite3_value_bytes(tls, pval)))
	}
	return types.NullValue()
}

// bindValue binds v to the 1-based parameter i. Text and blob payloads are
// copied by the engine, so the temporary buffers are released immediately.
func bindValue(tls *libc.TLS, pstmt uintptr, i int32, v types.Value) (int32, error) {
	switch v.Kind() {
	case types.KindInteger:
		return sqlite3.Xsqlite3_bind_int64(tls, pstmt, i, v.Int()), nil
	case types.KindFloat:
		return sqlite3.Xsqlite3_bind_double(tls, pstmt, i, v.Float()), nil
	case types.KindText:
		s := v.Text()
		p, err := libc.CString(s)
		if err != nil {
			return 0, err
		}
		defer free(tls, p)
		return sqlite3.Xsqlite3_bind_text(tls, pstmt, i, p, int32(len(s)), sqlite3.SQLITE_TRANSIENT), nil
	case types.KindBlob:
		b := v.Blob()
		if len(b) == 0 {
			return sqlite3.Xsqlite3_bind_zeroblob(tls, pstmt, i, 0), nil
		}
		p, err := cBytes(tls, b)
		if err != nil {
			return 0, err
		}
		defer free(tls, p)
		return sqlite3.Xsqlite3_bind_blob(tls, pstmt, i, p, int32(len(b)), sqlite3.SQLITE_TRANSIENT), nil
	}
	return sqlite3.Xsqlite3_bind_null(tls, pstmt, i), nil
}

// setResult hands v back to the engine as a function result.
func setResult(tls *libc.TLS, ctx uintptr, v types.Value) error {
	switch v.Kind() {
	case types.KindInteger:
		sqlite3.Xsqlite3_result_int64(tls, ctx, v.Int())
	case types.KindFloat:
		sqlite3.Xsqlite3_result_double(tls, ctx, v.Float())
	case types.KindText:
		s := v.Text()
		p, err := libc.CString(s)
		if err != nil {
			return err
		}
		defer free(tls, p)
		sqlite3.Xsqlite3_result_text(tls, ctx, p, int32(len(s)), sqlite3.SQLITE_TRANSIENT)
	case types.KindBlob:
		b := v.Blob()
		if len(b) == 0 {
			sqlite3.Xsqlite3_result_zeroblob(tls, ctx, 0)
			return nil
		}
		p, err := cBytes(tls, b)
		if err != nil {
			return err
		}
		defer free(tls, p)
		sqlite3.Xsqlite3_result_blob(tls, ctx, p, int32(len(b)), sqlite3.SQLITE_TRANSIENT)
	default:
		sqlite3.Xsqlite3_result_null(tls, ctx)
	}
	return nil
}

// setError reports msg as the function's failure.
func setError(tls *libc.TLS, ctx uintptr, msg string) {
	p, err := libc.CString(msg)
	if err != nil {
		sqlite3.Xsqlite3_result_error_nomem(tls, ctx)
		return
	}
	defer free(tls, p)
	sqlite3.Xsqlite3_result_error(tls, ctx, p, int32(len(msg)))
}
