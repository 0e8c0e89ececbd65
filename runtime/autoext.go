package runtime

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
)

var autoExtRunnerPtr = engine.FuncPointer(autoExtRunner)

// AutoExtension runs against every connection as it opens, before Open
// returns it to the caller. An error aborts the open.
type AutoExtension interface {
	OnOpen(db *DB) error
}

// RegisterAutoExtension adds x to the auto-extension list. Registering
// a value already on the list is a no-op. The first registration arms a
// single engine-level runner; individual extensions are dispatched from
// the bridge's own list, so the engine is touched once no matter how
// many extensions come and go.
func (rt *Runtime) RegisterAutoExtension(x AutoExtension) error {
	if x == nil {
		return errors.InvalidInput(errors.PhaseExtension, "auto extension is nil")
	}
	tls := rt.env().tls

	rt.autoExtMu.Lock()
	armed := rt.runnerArmed
	rt.autoExtMu.Unlock()

	if !armed {
		// Engine call outside the list mutex. The engine deduplicates
		// entry points, so two goroutines racing to arm is harmless.
		if rc := lib.Xsqlite3_auto_extension(tls, autoExtRunnerPtr); rc != lib.SQLITE_OK {
			return errors.Engine(errors.PhaseExtension, rc, "arming auto-extension runner")
		}
	}

	rt.autoExtMu.Lock()
	defer rt.autoExtMu.Unlock()
	rt.runnerArmed = true

	for _, have := range rt.autoExts {
		if sameCallback(have, x) {
			return nil
		}
	}

	next := make([]AutoExtension, len(rt.autoExts)+1)
	copy(next, rt.autoExts)
	next[len(next)-1] = x
	rt.autoExts = next
	return nil
}

// CancelAutoExtension removes the latest registration of x, reporting
// whether one was found. The engine-level runner stays armed.
func (rt *Runtime) CancelAutoExtension(x AutoExtension) bool {
	if x == nil {
		return false
	}

	rt.autoExtMu.Lock()
	defer rt.autoExtMu.Unlock()

	for i := len(rt.autoExts) - 1; i >= 0; i-- {
		if !sameCallback(rt.autoExts[i], x) {
			continue
		}
		last := len(rt.autoExts) - 1
		rt.autoExts[i] = rt.autoExts[last]
		rt.autoExts[last] = nil
		rt.autoExts = rt.autoExts[:last]
		return true
	}
	return false
}

// ResetAutoExtensions empties the auto-extension list
func (rt *Runtime) ResetAutoExtensions() {
	rt.autoExtMu.Lock()
	rt.autoExts = nil
	rt.autoExtMu.Unlock()
}

// resetAutoExtensions additionally disarms the engine-level runner.
// Shutdown path only.
func (rt *Runtime) resetAutoExtensions() {
	rt.autoExtMu.Lock()
	rt.autoExts = nil
	disarm := rt.runnerArmed
	rt.runnerArmed = false
	rt.autoExtMu.Unlock()

	if disarm {
		lib.Xsqlite3_reset_auto_extension(rt.lifeTLS)
	}
}

// autoExtRunner is the one extension the engine knows about. It fires
// inside open, finds the record the opening goroutine parked on its
// thread context, binds the fresh handle so extension callbacks get a
// live wrapper, and walks the list. The list is re-checked under the
// mutex each step; dispatch happens outside it.
func autoExtRunner(tls *libc.TLS, dbHandle uintptr, pzErrMsg uintptr, pApi uintptr) int32 {
	rt := active.Load()
	if rt == nil {
		return lib.SQLITE_OK
	}

	rec := rt.env().pendingOpen
	if rec == nil {
		return autoExtFail(tls, pzErrMsg, "connection was not opened through the bridge")
	}
	if rec.handle == 0 {
		rec.bind(dbHandle)
	}

	for i := 0; ; i++ {
		rt.autoExtMu.Lock()
		if i >= len(rt.autoExts) {
			rt.autoExtMu.Unlock()
			return lib.SQLITE_OK
		}
		x := rt.autoExts[i]
		rt.autoExtMu.Unlock()

		if err := trap(func() error { return x.OnOpen(rec.wrapper) }); err != nil {
			return autoExtFail(tls, pzErrMsg, fmt.Sprintf("auto-extension threw: %s", err))
		}
	}
}

// autoExtFail hands msg back through the open call's out-parameter.
// The engine frees the message, so it goes through the engine's own
// formatter and allocator.
func autoExtFail(tls *libc.TLS, pzErrMsg uintptr, msg string) int32 {
	if pzErrMsg == 0 {
		return lib.SQLITE_ERROR
	}

	cmsg, err := engine.CString(msg)
	if err != nil {
		return lib.SQLITE_ERROR
	}
	defer engine.FreeCString(tls, cmsg)

	format, err := engine.CString("%s")
	if err != nil {
		return lib.SQLITE_ERROR
	}
	defer engine.FreeCString(tls, format)

	va := libc.NewVaList(cmsg)
	*(*uintptr)(unsafe.Pointer(pzErrMsg)) = lib.Xsqlite3_mprintf(tls, format, va)
	libc.Xfree(tls, va)
	return lib.SQLITE_ERROR
}
