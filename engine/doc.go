// Package engine provides the low-level access layer to the database
// engine.
//
// The engine is the C SQLite library compiled to Go by ccgo and published
// as modernc.org/sqlite/lib. Every call into it takes a *libc.TLS thread
// context and works in terms of C pointers (uintptr). This package wraps
// the mechanical parts of that boundary so the runtime package can focus
// on bridge semantics:
//
//	Initialize/Shutdown  - library lifecycle, threadsafe verification
//	FuncPointer          - Go func to C function pointer conversion
//	CString/GoString     - string marshaling across the boundary
//	CheckRC/ConnError    - result code to error translation
//
// # Thread contexts
//
// The transpiled engine requires a *libc.TLS on every call. A TLS is a
// per-thread C execution context (stack allocator, errno, thread locals).
// It is cheap to create but must never be used from two goroutines at
// once. The runtime package caches one per goroutine; code calling this
// package directly creates its own:
//
//	tls := libc.NewTLS()
//	defer tls.Close()
//
// # Function pointers
//
// Callbacks registered with the engine must be C function pointers.
// FuncPointer converts a top-level Go function with a ccgo-compatible
// signature (tls first, uintptr for pointers, int32 for C int):
//
//	lib.Xsqlite3_progress_handler(tls, db, 100, engine.FuncPointer(progressTrampoline), pArg)
//
// The conversion is only valid for function declarations, never closures.
//
// # Memory
//
// Strings crossing into C are heap-allocated with the C allocator and
// must be freed by the caller unless ownership is documented to transfer:
//
//	cs, err := engine.CString(name)
//	if err != nil { ... }
//	defer engine.FreeCString(tls, cs)
package engine
