package runtime

import (
	"github.com/petermattis/goid"
	"modernc.org/libc"

	"github.com/wippyai/sqlite-bridge/engine"
)

// env is one goroutine's cached engine thread context. Rows move
// between the in-use map and a free list; their TLS allocation lives
// until runtime shutdown.
type env struct {
	tls *libc.TLS
	gid int64

	// pendingOpen is the connection record this goroutine is currently
	// opening. The auto-extension runner fires inside the engine's open
	// call on the same goroutine and picks the record up from here.
	pendingOpen *connRecord
}

// env returns the calling goroutine's thread context row. On a miss a
// row is popped from the free list, or freshly allocated when the free
// list is empty.
func (rt *Runtime) env() *env {
	gid := goid.Get()

	rt.envMu.Lock()
	e := rt.envs[gid]
	if e != nil {
		rt.envMu.Unlock()
		rt.counters.add(func(m *Metrics) { m.EnvHits++ })
		return e
	}

	if n := len(rt.envFree); n > 0 {
		e = rt.envFree[n-1]
		rt.envFree[n-1] = nil
		rt.envFree = rt.envFree[:n-1]
	}
	fresh := e == nil
	if fresh {
		e = &env{tls: engine.NewTLS()}
	}
	e.gid = gid
	e.pendingOpen = nil
	rt.envs[gid] = e
	rt.envMu.Unlock()

	rt.counters.add(func(m *Metrics) {
		m.EnvMisses++
		if fresh {
			m.EnvAllocs++
		}
	})
	return e
}

// ReleaseThread moves the calling goroutine's thread context row onto
// the free list, reporting whether one was cached. Goroutines that
// touch the runtime and then exit should release their row; anything
// still cached at shutdown is released then.
func (rt *Runtime) ReleaseThread() bool {
	gid := goid.Get()

	rt.envMu.Lock()
	e := rt.envs[gid]
	if e != nil {
		delete(rt.envs, gid)
		e.gid = 0
		e.pendingOpen = nil
		rt.envFree = append(rt.envFree, e)
	}
	rt.envMu.Unlock()
	return e != nil
}

// releaseAllEnvs closes every thread context, cached or free-listed.
// Only called during shutdown, when no goroutine may be inside the
// engine anymore.
func (rt *Runtime) releaseAllEnvs() {
	rt.envMu.Lock()
	envs := rt.envs
	free := rt.envFree
	rt.envs = make(map[int64]*env)
	rt.envFree = nil
	rt.envMu.Unlock()

	for _, e := range envs {
		e.tls.Close()
	}
	for _, e := range free {
		e.tls.Close()
	}
}
