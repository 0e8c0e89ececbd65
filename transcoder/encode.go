package transcoder

import (
	"fmt"
	"time"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	lib "modernc.org/sqlite/lib"
)

// Result materializes a native Go value as the result of the function
// call identified by ctx. Unsupported types report an error without
// touching the result slot.
func Result(tls *libc.TLS, ctx uintptr, res any) error {
	switch resTyped := res.(type) {
	case nil:
		lib.Xsqlite3_result_null(tls, ctx)
	case int:
		lib.Xsqlite3_result_int64(tls, ctx, int64(resTyped))
	case int32:
		lib.Xsqlite3_result_int64(tls, ctx, int64(resTyped))
	case int64:
		lib.Xsqlite3_result_int64(tls, ctx, resTyped)
	case float64:
		lib.Xsqlite3_result_double(tls, ctx, resTyped)
	case bool:
		lib.Xsqlite3_result_int(tls, ctx, libc.Bool32(resTyped))
	case time.Time:
		lib.Xsqlite3_result_int64(tls, ctx, resTyped.Unix())
	case string:
		size := int32(len(resTyped))
		cstr, err := libc.CString(resTyped)
		if err != nil {
			return fmt.Errorf("alloc text result: %w", err)
		}
		defer libc.Xfree(tls, cstr)
		lib.Xsqlite3_result_text(tls, ctx, cstr, size, lib.SQLITE_TRANSIENT)
	case []byte:
		size := int32(len(resTyped))
		if size == 0 {
			lib.Xsqlite3_result_zeroblob(tls, ctx, 0)
			return nil
		}
		p := libc.Xmalloc(tls, types.Size_t(size))
		if p == 0 {
			return fmt.Errorf("alloc blob result: %d bytes", size)
		}
		defer libc.Xfree(tls, p)
		copy((*libc.RawMem)(unsafe.Pointer(p))[:size:size], resTyped)
		lib.Xsqlite3_result_blob(tls, ctx, p, size, lib.SQLITE_TRANSIENT)
	default:
		return fmt.Errorf("not a valid result type: %T", resTyped)
	}

	return nil
}

// ResultError reports msg as the error result of the function call
// identified by ctx, with the given result code. Falls back to the
// engine's out-of-memory result when the message cannot be allocated.
func ResultError(tls *libc.TLS, ctx uintptr, msg string, code int32) {
	cmsg, err := libc.CString(msg)
	if err != nil {
		lib.Xsqlite3_result_error_nomem(tls, ctx)
		return
	}
	defer libc.Xfree(tls, cmsg)
	lib.Xsqlite3_result_error(tls, ctx, cmsg, int32(len(msg)))
	lib.Xsqlite3_result_error_code(tls, ctx, code)
}
