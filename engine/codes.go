package engine

import (
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/errors"
)

// IsSuccess reports whether rc is one of the non-error result codes
func IsSuccess(rc int32) bool {
	return rc == lib.SQLITE_OK || rc == lib.SQLITE_ROW || rc == lib.SQLITE_DONE
}

// RCError translates a bare result code into an error using the engine's
// generic message for that code. Success codes translate to nil.
func RCError(tls *libc.TLS, rc int32, phase errors.Phase) error {
	if IsSuccess(rc) {
		return nil
	}
	return errors.Engine(phase, rc, GoString(lib.Xsqlite3_errstr(tls, rc)))
}

// ConnError reads the current error state of a connection. Returns nil
// when the connection reports no error.
func ConnError(tls *libc.TLS, db uintptr, phase errors.Phase) error {
	if db == 0 {
		return errors.Misuse(phase, "nil connection handle")
	}
	rc := lib.Xsqlite3_errcode(tls, db)
	if IsSuccess(rc) {
		return nil
	}
	return errors.Engine(phase, rc, GoString(lib.Xsqlite3_errmsg(tls, db)))
}

// CheckRC translates rc into an error, preferring the connection's own
// error message when a connection handle is available.
func CheckRC(tls *libc.TLS, db uintptr, rc int32, phase errors.Phase) error {
	if IsSuccess(rc) {
		return nil
	}
	if db == 0 {
		return RCError(tls, rc, phase)
	}
	return errors.Engine(phase, rc, GoString(lib.Xsqlite3_errmsg(tls, db)))
}
