package runtime

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"
	"modernc.org/libc"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

// Trampolines are the C-shaped entry points the engine calls back into.
// Each one resolves its connection record from the token it was
// registered with, snapshots the hook slot, and dispatches with panic
// containment. Failure handling splits by the native contract: hooks
// with a reply code attach the error to the connection and steer the
// engine away from the half-done operation, hooks without one log and
// swallow. A slot only ever empties through registration or teardown,
// never because a callback failed.

var (
	busyTrampolinePtr      = engine.FuncPointer(busyTrampoline)
	commitTrampolinePtr    = engine.FuncPointer(commitTrampoline)
	rollbackTrampolinePtr  = engine.FuncPointer(rollbackTrampoline)
	updateTrampolinePtr    = engine.FuncPointer(updateTrampoline)
	preupdateTrampolinePtr = engine.FuncPointer(preupdateTrampoline)
	progressTrampolinePtr  = engine.FuncPointer(progressTrampoline)
	authTrampolinePtr      = engine.FuncPointer(authTrampoline)
	traceTrampolinePtr     = engine.FuncPointer(traceTrampoline)
)

// hookRecord resolves the live record behind a registration token.
// Returns a nil record when no runtime is active or the token has been
// recycled; trampolines then fall through to a benign default.
func hookRecord(pArg uintptr) (*Runtime, *connRecord) {
	rt := active.Load()
	if rt == nil {
		return nil, nil
	}
	return rt, rt.recordFromToken(pArg)
}

// trap runs a hook body, converting a panic into an error
func trap(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()
	return fn()
}

// trapRC is trap for hooks that also produce a reply code
func trapRC(fn func() (int32, error)) (rc int32, err error) {
	defer func() {
		if r := recover(); r != nil {
			rc = 0
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()
	return fn()
}

// attachHookErr records a dispatch failure on the owning connection
func attachHookErr(rec *connRecord, kind string, err error) {
	rec.setLastError(errors.CallbackFailed(errors.PhaseDispatch, err, kind))
}

// swallowHookErr logs a dispatch failure for hooks whose native
// contract has no failure path
func swallowHookErr(kind string, err error) {
	engine.Logger().Warn("hook callback failed",
		zap.String("hook", kind),
		zap.Error(err))
}

func busyTrampoline(tls *libc.TLS, pArg uintptr, count int32) int32 {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return 0
	}
	rec.mu.Lock()
	h := rec.hooks.busy
	rec.mu.Unlock()
	if h == nil {
		return 0
	}

	rc, err := trapRC(func() (int32, error) { return h.OnBusy(count) })
	if err == nil {
		return rc
	}
	attachHookErr(rec, "busy handler", err)
	// Zero stops the retry loop and surfaces the busy error.
	return 0
}

func commitTrampoline(tls *libc.TLS, pArg uintptr) int32 {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return 0
	}
	rec.mu.Lock()
	h := rec.hooks.commit
	rec.mu.Unlock()
	if h == nil {
		return 0
	}

	rc, err := trapRC(func() (int32, error) { return h.OnCommit() })
	if err == nil {
		return rc
	}
	attachHookErr(rec, "commit hook", err)
	// A failed commit hook must not let the transaction land.
	return 1
}

func rollbackTrampoline(tls *libc.TLS, pArg uintptr) {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	h := rec.hooks.rollback
	rec.mu.Unlock()
	if h == nil {
		return
	}

	if err := trap(func() error { return h.OnRollback() }); err != nil {
		swallowHookErr("rollback hook", err)
	}
}

func updateTrampoline(tls *libc.TLS, pArg uintptr, op int32, zDb uintptr, zTable uintptr, rowid int64) {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	h := rec.hooks.update
	rec.mu.Unlock()
	if h == nil {
		return
	}

	err := trap(func() error {
		return h.OnUpdate(op, engine.GoString(zDb), engine.GoString(zTable), rowid)
	})
	if err != nil {
		attachHookErr(rec, "update hook", err)
	}
}

func preupdateTrampoline(tls *libc.TLS, pArg uintptr, dbHandle uintptr, op int32, zDb uintptr, zName uintptr, iKey1 int64, iKey2 int64) {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	h := rec.hooks.preUpdate
	rec.mu.Unlock()
	if h == nil {
		return
	}

	err := trap(func() error {
		return h.OnPreUpdate(rec.wrapper, op, engine.GoString(zDb), engine.GoString(zName), iKey1, iKey2)
	})
	if err != nil {
		attachHookErr(rec, "pre-update hook", err)
	}
}

func progressTrampoline(tls *libc.TLS, pArg uintptr) int32 {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return 0
	}
	rec.mu.Lock()
	h := rec.hooks.progress
	rec.mu.Unlock()
	if h == nil {
		return 0
	}

	rc, err := trapRC(func() (int32, error) { return h.OnProgress() })
	if err == nil {
		return rc
	}
	attachHookErr(rec, "progress handler", err)
	// Interrupt the statement that ran the failing handler.
	return 1
}

func authTrampoline(tls *libc.TLS, pArg uintptr, action int32, z0 uintptr, z1 uintptr, z2 uintptr, z3 uintptr) int32 {
	_, rec := hookRecord(pArg)
	if rec == nil {
		return AuthOK
	}
	rec.mu.Lock()
	h := rec.hooks.auth
	rec.mu.Unlock()
	if h == nil {
		return AuthOK
	}

	rc, err := trapRC(func() (int32, error) {
		return h.Authorize(action, engine.GoString(z0), engine.GoString(z1), engine.GoString(z2), engine.GoString(z3))
	})
	if err == nil {
		return rc
	}
	attachHookErr(rec, "authorizer", err)
	return AuthDeny
}

func traceTrampoline(tls *libc.TLS, traceType uint32, pArg uintptr, pX uintptr, pY uintptr) int32 {
	rt, rec := hookRecord(pArg)
	if rec == nil {
		return 0
	}
	rec.mu.Lock()
	t := rec.hooks.trace
	mask := rec.hooks.traceMask
	rec.mu.Unlock()
	if t == nil || mask&traceType == 0 {
		return 0
	}

	var obj, extra any
	switch traceType {
	case TraceStmt:
		obj = rt.wrapStmt(rec.wrapper, pX)
		extra = engine.GoString(pY)
	case TraceProfile:
		obj = rt.wrapStmt(rec.wrapper, pX)
		extra = *(*int64)(unsafe.Pointer(pY))
	case TraceRow:
		obj = rt.wrapStmt(rec.wrapper, pX)
	case TraceClose:
		obj = rec.wrapper
	default:
		return 0
	}

	rc, err := trapRC(func() (int32, error) { return t.OnTrace(traceType, obj, extra) })
	if err != nil {
		swallowHookErr("trace callback", err)
		return 0
	}
	return rc
}
