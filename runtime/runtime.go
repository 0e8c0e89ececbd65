package runtime

import (
	"sync/atomic"

	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
	"github.com/wippyai/sqlite-bridge/resource"
)

// active is the runtime the engine's C callbacks resolve against.
// Auto-extension entry points and function pointers are process-wide
// state on the engine side, so at most one runtime is live at a time.
var active atomic.Pointer[Runtime]

// Config holds configuration for runtime creation
type Config struct {
	// Logger receives the bridge's structured log output.
	// Defaults to a no-op logger.
	Logger *zap.Logger
}

// Runtime owns the bridge state: the per-goroutine thread context
// cache, the connection registry, the auto-extension list, the pin
// table, and the callback descriptor cache.
//
// Create one with New, release it with Shutdown.
type Runtime struct {
	envMu   ownedMutex
	envs    map[int64]*env
	envFree []*env

	registryMu ownedMutex
	conns      resource.Arena[connRecord]

	autoExtMu   ownedMutex
	autoExts    []AutoExtension
	runnerArmed bool

	pins        *resource.PinTable
	descriptors descriptorCache
	counters    counters

	// lifeTLS serves lifecycle calls not tied to a caller goroutine
	lifeTLS *libc.TLS
}

// New creates the process's bridge runtime and initializes the engine
// library. Returns a misuse error while another runtime is active.
//
// Panics if the engine library was compiled without mutex support;
// the bridge cannot run on a single-threaded engine build.
func New(cfg *Config) (*Runtime, error) {
	rt := &Runtime{
		envs: make(map[int64]*env),
		pins: resource.NewPinTable(),
	}
	if !active.CompareAndSwap(nil, rt) {
		return nil, errors.Misuse(errors.PhaseInit, "another runtime is already active")
	}

	if cfg != nil && cfg.Logger != nil {
		engine.SetLogger(cfg.Logger)
	}

	rt.lifeTLS = engine.NewTLS()
	if !engine.Threadsafe(rt.lifeTLS) {
		rt.lifeTLS.Close()
		active.Store(nil)
		panic("engine library compiled without mutex support")
	}

	if err := engine.Initialize(rt.lifeTLS); err != nil {
		rt.lifeTLS.Close()
		active.Store(nil)
		return nil, err
	}

	engine.Logger().Info("bridge runtime initialized",
		zap.String("engine_version", engine.Version(rt.lifeTLS)))
	return rt, nil
}

// Shutdown tears the runtime down: the auto-extension list is cleared,
// cached thread contexts are released, and the engine library is shut
// down. Every connection must be closed first. After a successful
// Shutdown a new runtime may be created.
func (rt *Runtime) Shutdown() error {
	if active.Load() != rt {
		return errors.Misuse(errors.PhaseShutdown, "runtime is not active")
	}
	if n := rt.openCount(); n > 0 {
		return errors.New(errors.PhaseShutdown, errors.KindMisuse).
			Code(errors.CodeMisuse).
			Detail("%d connection(s) still open", n).
			Build()
	}

	rt.resetAutoExtensions()
	rt.releaseAllEnvs()

	err := engine.Shutdown(rt.lifeTLS)
	rt.lifeTLS.Close()
	active.Store(nil)

	engine.Logger().Info("bridge runtime shut down")
	return err
}

// Version returns the engine library version string
func (rt *Runtime) Version() string {
	return engine.Version(rt.env().tls)
}

// VersionNumber returns the engine library version as a single integer
func (rt *Runtime) VersionNumber() int32 {
	return engine.VersionNumber(rt.env().tls)
}

// SourceID identifies the engine build: check-in date and hash
func (rt *Runtime) SourceID() string {
	return engine.GoString(lib.Xsqlite3_sourceid(rt.env().tls))
}

// MemoryUsed returns the engine's current outstanding allocation size
func (rt *Runtime) MemoryUsed() int64 {
	return lib.Xsqlite3_memory_used(rt.env().tls)
}

// MemoryHighwater returns the engine's peak allocation size, optionally
// resetting the peak to the current value.
func (rt *Runtime) MemoryHighwater(reset bool) int64 {
	return lib.Xsqlite3_memory_highwater(rt.env().tls, libc.Bool32(reset))
}
