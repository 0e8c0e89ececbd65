package runtime

import (
	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	sqlitebridge "github.com/wippyai/sqlite-bridge"
	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

var (
	collationCompareTrampolinePtr = engine.FuncPointer(collationCompareTrampoline)
	collationDestroyTrampolinePtr = engine.FuncPointer(collationDestroyTrampoline)
	collationNeededTrampolinePtr  = engine.FuncPointer(collationNeededTrampoline)
)

// Collation orders text values. Compare reports negative, zero or
// positive in the manner of bytes.Compare and must be consistent across
// calls for the engine's indexes to stay coherent.
type Collation interface {
	Compare(left, right []byte) (int32, error)
}

// CollationNeeded is consulted when a statement references an unknown
// collation, giving the callback a chance to register it on the spot.
type CollationNeeded interface {
	OnCollationNeeded(db *DB, textRep int32, name string) error
}

// CreateCollation registers a collation under the given name, or drops
// the name when c is nil. The connection tracks one collation callback:
// a new registration displaces the previous one even under a different
// name, with the displaced callback receiving its destruction
// notification from the engine.
func (db *DB) CreateCollation(name string, enc sqlitebridge.TextEncoding, c Collation) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "collation name is empty")
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	cname, err := engine.CString(name)
	if err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindAllocation, err, "collation name")
	}
	defer engine.FreeCString(tls, cname)

	if c == nil {
		rc := lib.Xsqlite3_create_collation_v2(tls, db.ptr, cname, int32(enc), 0, 0, 0)
		if rc != lib.SQLITE_OK {
			return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
		}
		return nil
	}

	// The engine call comes first: replacing a name fires the displaced
	// registration's destructor, whose trampoline empties the slot and
	// delivers the notification before the new callback is stored.
	rc := lib.Xsqlite3_create_collation_v2(tls, db.ptr, cname, int32(enc),
		uintptr(rec.token), collationCompareTrampolinePtr, collationDestroyTrampolinePtr)
	if rc != lib.SQLITE_OK {
		// create_collation_v2 does not run the destructor on failure.
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	rec.mu.Lock()
	old := rec.hooks.collation
	rec.hooks.collation = c
	rec.mu.Unlock()
	// A registration under a fresh name displaces the slot without the
	// engine firing the old destructor; the displaced callback is still
	// owed its notification.
	if old != nil && !sameCallback(old, c) {
		notifyDestroy(old)
	}
	return nil
}

// SetCollationNeeded installs or clears (h == nil) the unknown-collation
// callback.
func (db *DB) SetCollationNeeded(h CollationNeeded) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.collationNeeded
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return nil
	}

	var rc int32
	if h == nil {
		rc = lib.Xsqlite3_collation_needed(tls, db.ptr, 0, 0)
	} else {
		rc = lib.Xsqlite3_collation_needed(tls, db.ptr, uintptr(rec.token), collationNeededTrampolinePtr)
	}
	if rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	rec.mu.Lock()
	rec.hooks.collationNeeded = h
	rec.mu.Unlock()
	if prev != nil {
		notifyDestroy(prev)
	}
	return nil
}

func collationCompareTrampoline(tls *libc.TLS, pArg uintptr, n1 int32, p1 uintptr, n2 int32, p2 uintptr) int32 {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return 0
	}
	rec.mu.Lock()
	c := rec.hooks.collation
	rec.mu.Unlock()
	if c == nil {
		return 0
	}

	rc, err := trapRC(func() (int32, error) {
		return c.Compare(engine.GoBytes(p1, int(n1)), engine.GoBytes(p2, int(n2)))
	})
	if err != nil {
		// The comparator contract has no error channel; a failing
		// collation sorts as equal.
		swallowHookErr("collation", err)
		return 0
	}
	return rc
}

func collationDestroyTrampoline(tls *libc.TLS, pApp uintptr) {
	_, rec := hookRecord(pApp)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	old := rec.hooks.collation
	rec.hooks.collation = nil
	rec.mu.Unlock()
	if old != nil {
		notifyDestroy(old)
	}
}

func collationNeededTrampoline(tls *libc.TLS, pArg uintptr, dbHandle uintptr, eTextRep int32, zName uintptr) {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	h := rec.hooks.collationNeeded
	rec.mu.Unlock()
	if h == nil {
		return
	}

	err := trap(func() error {
		return h.OnCollationNeeded(rec.wrapper, eTextRep, engine.GoString(zName))
	})
	if err != nil {
		engine.Logger().Warn("collation-needed callback failed",
			zap.String("collation", engine.GoString(zName)),
			zap.Error(err))
	}
}
