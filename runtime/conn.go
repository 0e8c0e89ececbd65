package runtime

import (
	"sync"

	"github.com/wippyai/sqlite-bridge/resource"
)

// hookSet holds one connection's callback registrations. Slots are
// mutated under the record mutex and read by trampolines the same way.
type hookSet struct {
	busy      BusyHandler
	commit    CommitHook
	rollback  RollbackHook
	update    UpdateHook
	preUpdate PreUpdateHook
	progress  ProgressHandler
	auth      Authorizer

	trace     Tracer
	traceMask uint32

	// collation is a single slot shared by every named collation on the
	// connection: the engine tracks registrations per name, but the
	// bridge dispatches whichever callback was registered last.
	collation       Collation
	collationNeeded CollationNeeded
}

// connRecord is the bridge's per-connection state. Records live in the
// registry arena; their addresses are stable for the life of the
// runtime and are recycled across connections.
type connRecord struct {
	// mu guards hooks and lastErr. It is never held across a call into
	// the engine; trampolines snapshot the slot they need and dispatch
	// outside the lock.
	mu sync.Mutex

	// regMu serializes registration sequences on this connection. It IS
	// held across the engine call so the slot and the engine agree on
	// which callback is installed. No trampoline acquires it.
	regMu sync.Mutex

	handle  uintptr
	wrapper *DB
	token   resource.Pin
	slot    int

	// mainDBName owns the C string handed to the engine by a main
	// schema rename. The engine keeps the pointer, so it is freed only
	// when the record is set aside.
	mainDBName uintptr

	hooks   hookSet
	lastErr error
}

// bind attaches an engine handle to the record and its wrapper.
// Happens at most once per open, either in the open protocol's
// post-phase or early in the auto-extension runner.
func (rec *connRecord) bind(handle uintptr) {
	rec.handle = handle
	if rec.wrapper != nil {
		rec.wrapper.ptr = handle
	}
}

func (rec *connRecord) setLastError(err error) {
	rec.mu.Lock()
	rec.lastErr = err
	rec.mu.Unlock()
}

// teardownHooks empties every hook slot and returns the callbacks that
// are owed a destruction notification, in notification order. The
// caller delivers the notifications with no locks held.
func (rec *connRecord) teardownHooks() []any {
	rec.mu.Lock()
	h := rec.hooks
	rec.hooks = hookSet{}
	rec.mu.Unlock()

	// trace, progress, commit, rollback, update, auth and preUpdate are
	// dropped without notice. Collation, collation-needed and busy
	// carry a destructor contract.
	var destroys []any
	for _, cb := range []any{h.collation, h.collationNeeded, h.busy} {
		if cb != nil {
			destroys = append(destroys, cb)
		}
	}
	return destroys
}

// LastError returns the most recent callback failure recorded against
// the connection, or nil. Reading does not clear it.
func (db *DB) LastError() error {
	if db == nil || db.rec == nil {
		return nil
	}
	db.rec.mu.Lock()
	defer db.rec.mu.Unlock()
	return db.rec.lastErr
}

// ClearLastError discards the recorded callback failure
func (db *DB) ClearLastError() {
	if db == nil || db.rec == nil {
		return
	}
	db.rec.setLastError(nil)
}
