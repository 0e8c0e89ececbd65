package transcoder

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Decode reads one engine value cell into a native Go value
func Decode(tls *libc.TLS, valPtr uintptr) any {
	switch valType := lib.Xsqlite3_value_type(tls, valPtr); valType {
	case lib.SQLITE_NULL:
		return nil
	case lib.SQLITE_INTEGER:
		return lib.Xsqlite3_value_int64(tls, valPtr)
	case lib.SQLITE_FLOAT:
		return lib.Xsqlite3_value_double(tls, valPtr)
	case lib.SQLITE_TEXT:
		n := lib.Xsqlite3_value_bytes(tls, valPtr)
		return engine.GoStringN(lib.Xsqlite3_value_text(tls, valPtr), int(n))
	case lib.SQLITE_BLOB:
		n := lib.Xsqlite3_value_bytes(tls, valPtr)
		b := engine.GoBytes(lib.Xsqlite3_value_blob(tls, valPtr), int(n))
		if b == nil {
			b = []byte{}
		}
		return b
	default:
		panic(fmt.Sprintf("unexpected value type %d passed by engine", valType))
	}
}

// DecodeArgs reads an engine argument vector into native Go values
func DecodeArgs(tls *libc.TLS, argc int32, argv uintptr) []any {
	args := make([]any, argc)
	for i := int32(0); i < argc; i++ {
		valPtr := *(*uintptr)(unsafe.Pointer(argv + uintptr(i)*ptrSize))
		args[i] = Decode(tls, valPtr)
	}
	return args
}

// DecodeNumeric reads an engine value cell as a number, applying the SQL
// CAST rules to text and blob cells instead of asking the engine to
// convert the cell in place. isFloat reports whether f carries the value;
// otherwise i does. NULL decodes as integer zero.
func DecodeNumeric(tls *libc.TLS, valPtr uintptr) (i int64, f float64, isFloat bool) {
	switch lib.Xsqlite3_value_type(tls, valPtr) {
	case lib.SQLITE_INTEGER:
		return lib.Xsqlite3_value_int64(tls, valPtr), 0, false
	case lib.SQLITE_FLOAT:
		return 0, lib.Xsqlite3_value_double(tls, valPtr), true
	case lib.SQLITE_TEXT, lib.SQLITE_BLOB:
		n := lib.Xsqlite3_value_bytes(tls, valPtr)
		s := engine.GoStringN(lib.Xsqlite3_value_text(tls, valPtr), int(n))
		f := CastTextToReal(s)
		// Numeric affinity: text converts to integer when lossless.
		if i := int64(f); float64(i) == f {
			return i, 0, false
		}
		return 0, f, true
	default:
		return 0, 0, false
	}
}
