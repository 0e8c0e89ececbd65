package engine

import (
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/errors"
)

// NewTLS creates a fresh C thread context. The context must be closed
// when its goroutine is done with the engine and must never be shared
// between goroutines.
func NewTLS() *libc.TLS {
	return libc.NewTLS()
}

// Threadsafe reports whether the engine library was compiled with
// mutexes enabled. The bridge refuses to run without them.
func Threadsafe(tls *libc.TLS) bool {
	return lib.Xsqlite3_threadsafe(tls) != 0
}

// Initialize starts the engine library. Safe to call more than once;
// the engine makes repeat calls no-ops internally.
func Initialize(tls *libc.TLS) error {
	if rc := lib.Xsqlite3_initialize(tls); rc != lib.SQLITE_OK {
		return RCError(tls, rc, errors.PhaseInit)
	}
	return nil
}

// Shutdown releases all engine library resources. Every connection must
// be closed first.
func Shutdown(tls *libc.TLS) error {
	if rc := lib.Xsqlite3_shutdown(tls); rc != lib.SQLITE_OK {
		return RCError(tls, rc, errors.PhaseShutdown)
	}
	return nil
}

// Version returns the engine library version string
func Version(tls *libc.TLS) string {
	return GoString(lib.Xsqlite3_libversion(tls))
}

// VersionNumber returns the engine library version as a single integer
func VersionNumber(tls *libc.TLS) int32 {
	return lib.Xsqlite3_libversion_number(tls)
}
