package runtime

import (
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

// Authorizer reply codes
const (
	AuthOK     int32 = lib.SQLITE_OK
	AuthDeny   int32 = lib.SQLITE_DENY
	AuthIgnore int32 = lib.SQLITE_IGNORE
)

// Trace event mask bits accepted by SetTrace
const (
	TraceStmt    uint32 = lib.SQLITE_TRACE_STMT
	TraceProfile uint32 = lib.SQLITE_TRACE_PROFILE
	TraceRow     uint32 = lib.SQLITE_TRACE_ROW
	TraceClose   uint32 = lib.SQLITE_TRACE_CLOSE
)

// Instruction interval used when BindHook installs a progress handler.
const defaultProgressOps = 1000

// BusyHandler resolves lock contention. count is the number of times the
// handler already ran for the same contention; a nonzero return retries,
// zero gives up with a busy error.
type BusyHandler interface {
	OnBusy(count int32) (int32, error)
}

// CommitHook runs before a transaction commits. A nonzero return turns
// the commit into a rollback.
type CommitHook interface {
	OnCommit() (int32, error)
}

// RollbackHook runs after a transaction rolls back. Its error is
// logged and otherwise ignored.
type RollbackHook interface {
	OnRollback() error
}

// UpdateHook observes row changes. op is one of the engine's insert,
// delete or update opcodes. A returned error is recorded on the
// connection; the hook stays installed.
type UpdateHook interface {
	OnUpdate(op int32, db, table string, rowid int64) error
}

// PreUpdateHook observes row changes before they land. For updates the
// two rowids may differ; for inserts oldRowid duplicates newRowid and
// vice versa for deletes.
type PreUpdateHook interface {
	OnPreUpdate(db *DB, op int32, dbName, table string, oldRowid, newRowid int64) error
}

// ProgressHandler runs periodically during long statements. A nonzero
// return interrupts the statement.
type ProgressHandler interface {
	OnProgress() (int32, error)
}

// Authorizer vets each action during statement preparation. Return
// AuthOK to allow, AuthDeny to reject the statement, AuthIgnore to
// null out the action.
type Authorizer interface {
	Authorize(action int32, arg1, arg2, dbName, trigger string) (int32, error)
}

// Tracer receives engine trace events. obj and extra depend on the
// event: a *Stmt and its unexpanded SQL text for TraceStmt, a *Stmt and
// elapsed nanoseconds for TraceProfile, a *Stmt for TraceRow, and the
// closing *DB for TraceClose.
type Tracer interface {
	OnTrace(event uint32, obj any, extra any) (int32, error)
}

// SetBusyHandler installs or clears (h == nil) the busy handler.
// Displaces any busy timeout.
func (db *DB) SetBusyHandler(h BusyHandler) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.busy
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return nil
	}

	var rc int32
	if h == nil {
		rc = lib.Xsqlite3_busy_handler(tls, db.ptr, 0, 0)
	} else {
		rc = lib.Xsqlite3_busy_handler(tls, db.ptr, busyTrampolinePtr, uintptr(rec.token))
	}
	if rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	rec.mu.Lock()
	rec.hooks.busy = h
	rec.mu.Unlock()
	if prev != nil {
		notifyDestroy(prev)
	}
	return nil
}

// SetBusyTimeout installs the engine's built-in busy timeout, displacing
// any busy handler. A non-positive duration disables busy waiting.
func (db *DB) SetBusyTimeout(ms int32) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.busy
	rec.hooks.busy = nil
	rec.mu.Unlock()
	if prev != nil {
		notifyDestroy(prev)
	}

	if rc := lib.Xsqlite3_busy_timeout(tls, db.ptr, ms); rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}
	return nil
}

// SetCommitHook installs or clears (h == nil) the commit hook and
// returns the hook it displaced.
func (db *DB) SetCommitHook(h CommitHook) (CommitHook, error) {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return nil, err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.commit
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return prev, nil
	}

	if h == nil {
		lib.Xsqlite3_commit_hook(tls, db.ptr, 0, 0)
	} else {
		lib.Xsqlite3_commit_hook(tls, db.ptr, commitTrampolinePtr, uintptr(rec.token))
	}

	rec.mu.Lock()
	rec.hooks.commit = h
	rec.mu.Unlock()
	return prev, nil
}

// SetRollbackHook installs or clears (h == nil) the rollback hook and
// returns the hook it displaced.
func (db *DB) SetRollbackHook(h RollbackHook) (RollbackHook, error) {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return nil, err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.rollback
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return prev, nil
	}

	if h == nil {
		lib.Xsqlite3_rollback_hook(tls, db.ptr, 0, 0)
	} else {
		lib.Xsqlite3_rollback_hook(tls, db.ptr, rollbackTrampolinePtr, uintptr(rec.token))
	}

	rec.mu.Lock()
	rec.hooks.rollback = h
	rec.mu.Unlock()
	return prev, nil
}

// SetUpdateHook installs or clears (h == nil) the update hook and
// returns the hook it displaced.
func (db *DB) SetUpdateHook(h UpdateHook) (UpdateHook, error) {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return nil, err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.update
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return prev, nil
	}

	if h == nil {
		lib.Xsqlite3_update_hook(tls, db.ptr, 0, 0)
	} else {
		lib.Xsqlite3_update_hook(tls, db.ptr, updateTrampolinePtr, uintptr(rec.token))
	}

	rec.mu.Lock()
	rec.hooks.update = h
	rec.mu.Unlock()
	return prev, nil
}

// SetPreUpdateHook installs or clears (h == nil) the pre-update hook and
// returns the hook it displaced.
func (db *DB) SetPreUpdateHook(h PreUpdateHook) (PreUpdateHook, error) {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return nil, err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.preUpdate
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return prev, nil
	}

	if h == nil {
		lib.Xsqlite3_preupdate_hook(tls, db.ptr, 0, 0)
	} else {
		lib.Xsqlite3_preupdate_hook(tls, db.ptr, preupdateTrampolinePtr, uintptr(rec.token))
	}

	rec.mu.Lock()
	rec.hooks.preUpdate = h
	rec.mu.Unlock()
	return prev, nil
}

// SetProgressHandler installs or clears the progress handler. nOps is
// the approximate number of virtual machine instructions between
// invocations; zero or a nil handler clears the slot.
func (db *DB) SetProgressHandler(nOps int32, h ProgressHandler) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	if h == nil || nOps <= 0 {
		lib.Xsqlite3_progress_handler(tls, db.ptr, 0, 0, 0)
		rec.mu.Lock()
		rec.hooks.progress = nil
		rec.mu.Unlock()
		return nil
	}

	lib.Xsqlite3_progress_handler(tls, db.ptr, nOps, progressTrampolinePtr, uintptr(rec.token))

	rec.mu.Lock()
	rec.hooks.progress = h
	rec.mu.Unlock()
	return nil
}

// SetAuthorizer installs or clears (h == nil) the compile-time
// authorizer.
func (db *DB) SetAuthorizer(h Authorizer) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	rec.mu.Lock()
	prev := rec.hooks.auth
	rec.mu.Unlock()
	if sameCallback(prev, h) {
		return nil
	}

	var rc int32
	if h == nil {
		rc = lib.Xsqlite3_set_authorizer(tls, db.ptr, 0, 0)
	} else {
		rc = lib.Xsqlite3_set_authorizer(tls, db.ptr, authTrampolinePtr, uintptr(rec.token))
	}
	if rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	rec.mu.Lock()
	rec.hooks.auth = h
	rec.mu.Unlock()
	return nil
}

// SetTrace installs or clears the tracer. mask selects which Trace*
// events fire; a zero mask or nil tracer clears the slot.
func (db *DB) SetTrace(mask uint32, t Tracer) error {
	rec, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	rec.regMu.Lock()
	defer rec.regMu.Unlock()

	if t == nil || mask == 0 {
		if rc := lib.Xsqlite3_trace_v2(tls, db.ptr, 0, 0, 0); rc != lib.SQLITE_OK {
			return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
		}
		rec.mu.Lock()
		rec.hooks.trace = nil
		rec.hooks.traceMask = 0
		rec.mu.Unlock()
		return nil
	}

	if rc := lib.Xsqlite3_trace_v2(tls, db.ptr, mask, traceTrampolinePtr, uintptr(rec.token)); rc != lib.SQLITE_OK {
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	rec.mu.Lock()
	rec.hooks.trace = t
	rec.hooks.traceMask = mask
	rec.mu.Unlock()
	return nil
}

// BindHook routes h into the hook slot named by slot: "busy", "commit",
// "rollback", "update", "preupdate", "progress", "authorizer", "trace"
// or "collation-needed". A nil h clears the slot. An h that does not
// implement the slot's interface is a misuse error and leaves the slot
// untouched. Progress handlers bound here fire every defaultProgressOps
// instructions and tracers receive every event kind; use the typed
// setters to pick other intervals or masks.
func (db *DB) BindHook(slot string, h any) error {
	switch slot {
	case "busy":
		b, err := bindAs[BusyHandler](slot, h)
		if err != nil {
			return err
		}
		return db.SetBusyHandler(b)
	case "commit":
		c, err := bindAs[CommitHook](slot, h)
		if err != nil {
			return err
		}
		_, err = db.SetCommitHook(c)
		return err
	case "rollback":
		r, err := bindAs[RollbackHook](slot, h)
		if err != nil {
			return err
		}
		_, err = db.SetRollbackHook(r)
		return err
	case "update":
		u, err := bindAs[UpdateHook](slot, h)
		if err != nil {
			return err
		}
		_, err = db.SetUpdateHook(u)
		return err
	case "preupdate":
		p, err := bindAs[PreUpdateHook](slot, h)
		if err != nil {
			return err
		}
		_, err = db.SetPreUpdateHook(p)
		return err
	case "progress":
		p, err := bindAs[ProgressHandler](slot, h)
		if err != nil {
			return err
		}
		if p == nil {
			return db.SetProgressHandler(0, nil)
		}
		return db.SetProgressHandler(defaultProgressOps, p)
	case "authorizer":
		a, err := bindAs[Authorizer](slot, h)
		if err != nil {
			return err
		}
		return db.SetAuthorizer(a)
	case "trace":
		tr, err := bindAs[Tracer](slot, h)
		if err != nil {
			return err
		}
		if tr == nil {
			return db.SetTrace(0, nil)
		}
		return db.SetTrace(TraceStmt|TraceProfile|TraceRow|TraceClose, tr)
	case "collation-needed":
		cn, err := bindAs[CollationNeeded](slot, h)
		if err != nil {
			return err
		}
		return db.SetCollationNeeded(cn)
	default:
		return errors.New(errors.PhaseRegister, errors.KindMisuse).
			Detail("unknown hook slot %q", slot).
			Build()
	}
}

// bindAs narrows h to the slot's interface. nil passes through so the
// typed setters see a clear request.
func bindAs[T any](slot string, h any) (T, error) {
	var zero T
	if h == nil {
		return zero, nil
	}
	t, ok := h.(T)
	if !ok {
		return zero, errors.New(errors.PhaseRegister, errors.KindMisuse).
			Detail("object %T does not implement the %s hook interface", h, slot).
			Build()
	}
	return t, nil
}
