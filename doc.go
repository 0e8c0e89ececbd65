// Package sqlitebridge connects Go callback objects to the C SQLite
// engine compiled to Go (modernc.org/sqlite/lib).
//
// The engine knows nothing about Go values. Every extension point it
// offers (SQL functions, collations, hooks, auto extensions) takes a C
// function pointer plus an opaque user datum. This module supplies the
// plumbing that lets plain Go interfaces stand on the other side of that
// contract: pinning Go values so they stay reachable from C, caching
// per-goroutine C thread contexts, tracking per-connection registrations,
// and translating Go errors and panics into engine error results.
//
// # Architecture
//
//	sqlitebridge/
//	├── runtime/     Bridge core: Runtime lifecycle, connection registry,
//	│                hook dispatch, SQL function classification, auto
//	│                extensions, statement surface.
//	├── engine/      Low-level access layer: thread contexts, C string
//	│                marshaling, function pointers, result code errors.
//	├── transcoder/  Value conversion between engine cells and Go values.
//	├── resource/    Pin table and record arena.
//	└── errors/      Structured error taxonomy (phase, kind, engine code).
//
// # Quick start
//
//	rt, err := runtime.New(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	db, err := rt.Open("app.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.CreateFunction("rot13", 1, sqlitebridge.UTF8, rot13{})
//
// A registered callback is any Go value implementing the matching
// interface from the runtime package. Implementing Destroyer as well
// gets a notification when the registration is released.
//
// # Thread safety
//
// The Runtime is safe for concurrent use. Each goroutine is lazily given
// its own C thread context; records and registrations are guarded by the
// runtime's internal mutexes. A single connection follows the engine's
// own threading rules: the engine serializes access per connection, but
// callback objects registered on it may be invoked from whichever
// goroutine is driving that connection at the time.
package sqlitebridge
