package runtime

import (
	"modernc.org/libc"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/resource"
)

// allocateRecord creates or recycles a connection record for an open in
// progress, pins it for use as C user data, and pairs it with a fresh
// unbound wrapper.
func (rt *Runtime) allocateRecord() *connRecord {
	wrapper := rt.newDB()

	rt.registryMu.Lock()
	rec, slot := rt.conns.Alloc()
	rec.slot = slot
	rt.registryMu.Unlock()

	rec.wrapper = wrapper
	rec.token = rt.pins.Pin(rec)
	wrapper.rec = rec
	return rec
}

// findRecord resolves the live record bound to an engine handle.
// At most one record is ever bound to a handle.
func (rt *Runtime) findRecord(handle uintptr) *connRecord {
	if handle == 0 {
		return nil
	}

	rt.registryMu.Lock()
	var found *connRecord
	rt.conns.Each(func(_ int, rec *connRecord) bool {
		if rec.handle == handle {
			found = rec
			return false
		}
		return true
	})
	rt.registryMu.Unlock()
	return found
}

// openCount returns the number of live connection records
func (rt *Runtime) openCount() int {
	rt.registryMu.Lock()
	defer rt.registryMu.Unlock()
	return rt.conns.Len()
}

// setAside retires a record whose connection is gone: callbacks owed a
// destructor are notified, the owned main-db-name string is freed, the
// pin is dropped, and the slot returns to the arena for recycling.
func (rt *Runtime) setAside(tls *libc.TLS, rec *connRecord) {
	for _, cb := range rec.teardownHooks() {
		notifyDestroy(cb)
	}

	if rec.mainDBName != 0 {
		engine.FreeCString(tls, rec.mainDBName)
		rec.mainDBName = 0
	}

	rt.pins.Unpin(rec.token)

	if rec.wrapper != nil {
		rec.wrapper.rec = nil
	}

	rt.registryMu.Lock()
	rt.conns.Release(rec.slot)
	rt.registryMu.Unlock()
}

// recordFromToken resolves a C user-data token back to its record.
// Trampolines use this on every dispatch; a stale token yields nil.
func (rt *Runtime) recordFromToken(pArg uintptr) *connRecord {
	v, ok := rt.pins.Get(resource.Pin(pArg))
	if !ok {
		return nil
	}
	rec, _ := v.(*connRecord)
	return rec
}
