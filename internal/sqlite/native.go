package sqlite

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	ctypes "modernc.org/libc/sys/types"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	ptrSize      = unsafe.Sizeof(uintptr(0))
	valuePtrSize = unsafe.Sizeof(&sqlite3.Sqlite3_value{})
)

// cFuncPointer converts a top-level function to the pointer form the engine
// stores in its function tables. It must not be used with closures.
func cFuncPointer[T any](f T) uintptr {
	return *(*uintptr)(unsafe.Pointer(&struct{ f T }{f}))
}

func malloc(tls *libc.TLS, n int) (uintptr, error) {
	if p := libc.Xmalloc(tls, ctypes.Size_t(n)); p != 0 || n == 0 {
		return p, nil
	}
	return 0, fmt.Errorf("cannot allocate %d bytes", n)
}

func free(tls *libc.TLS, p uintptr) {
	if p != 0 {
		libc.Xfree(tls, p)
	}
}

// copyBytes copies n bytes of engine memory into a fresh Go slice.
func copyBytes(p uintptr, n int32) []byte {
	if p == 0 || n <= 0 {
		return []byte{}
	}
	b := make([]byte, n)
	copy(b, (*libc.RawMem)(unsafe.Pointer(p))[:n:n])
	return b
}

// cBytes copies b into engine memory. The caller frees the result.
func cBytes(tls *libc.TLS, b []byte) (uintptr, error) {
	p, err := malloc(tls, len(b))
	if err != nil {
		return 0, err
	}
	if len(b) != 0 {
		copy((*libc.RawMem)(unsafe.Pointer(p))[:len(b):len(b)], b)
	}
	return p, nil
}

// primary strips the extended part of a result code.
func primary(rc int32) int32 {
	return rc & 0xff
}

// errmsg describes rc, preferring the connection's own message when it has
// one.
func errmsg(tls *libc.TLS, db uintptr, rc int32) string {
	str := libc.GoString(sqlite3.Xsqlite3_errstr(tls, rc))
	if db == 0 {
		return str
	}
	msg := libc.GoString(sqlite3.Xsqlite3_errmsg(tls, db))
	if msg == "" || msg == "not an error" {
		return str
	}
	return msg
}
