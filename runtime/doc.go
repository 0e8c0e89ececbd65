// Package runtime implements the bridge between managed Go callbacks
// and the database engine: connection lifecycle, hook registration and
// dispatch, SQL function registration, collations, and auto extensions.
//
// # Runtime
//
// A process hosts at most one Runtime at a time, because the engine's
// callback entry points are process-wide state. New initializes the
// engine library and claims the active slot; Shutdown releases it:
//
//	rt, err := runtime.New(&runtime.Config{Logger: logger})
//	if err != nil { ... }
//	defer rt.Shutdown()
//
//	db, err := rt.Open("app.db")
//	if err != nil { ... }
//	defer db.Close()
//
// # Thread contexts
//
// Every engine call needs a per-thread C execution context. The runtime
// caches one per goroutine, keyed by goroutine id, with released rows
// parked on a free list for reuse. Goroutines that touch the runtime
// and then exit should call ReleaseThread.
//
// # Callbacks
//
// Callbacks are plain Go interfaces: BusyHandler, CommitHook,
// Authorizer, Collation, ScalarFunction and so on. The engine never
// sees a Go pointer; registrations pin their state in a token table and
// hand the engine the token. Trampolines resolve tokens back on every
// dispatch, so a stale token from a closed connection degrades to a
// no-op instead of a dangling dereference.
//
// Dispatch failures follow the native contract of each callback kind.
// Hooks with a reply code (busy, commit, progress, authorizer) attach
// the error to their connection, retrievable with DB.LastError, and
// steer the engine away from the half-done operation. Hooks without
// one (rollback, trace, collation needed) log and swallow. A scalar
// SQL function's error becomes the statement's error, message and all.
//
// # SQL functions
//
// CreateFunction classifies the registered value by the interfaces its
// concrete type implements: ScalarFunction, AggregateFunction, or
// WindowFunction. Classification is memoized per concrete type, so the
// reflection cost is paid once no matter how many registrations or
// connections reuse the type.
package runtime
