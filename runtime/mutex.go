package runtime

import (
	"sync"

	"github.com/petermattis/goid"
)

// ownedMutex is a mutex that records which goroutine holds it and how
// often it has been entered. Relocking from the owning goroutine is a
// bridge bug and panics instead of deadlocking silently.
//
// None of these mutexes may be held across a call into the engine: the
// engine can call back into the bridge on the same goroutine, and the
// callback may need the same mutex.
type ownedMutex struct {
	mu      sync.Mutex
	owner   int64
	entries uint64
}

func (m *ownedMutex) Lock() {
	gid := goid.Get()
	if m.ownerID() == gid {
		panic("bridge mutex relocked by owning goroutine")
	}
	m.mu.Lock()
	m.owner = gid
	m.entries++
}

func (m *ownedMutex) Unlock() {
	if m.ownerID() != goid.Get() {
		panic("bridge mutex released by non-owning goroutine")
	}
	m.owner = 0
	m.mu.Unlock()
}

// Entries returns how often the mutex has been acquired.
// Only meaningful while the mutex is held or the runtime is quiescent.
func (m *ownedMutex) Entries() uint64 {
	return m.entries
}

// ownerID reads the owner field without holding the mutex. The read is
// racy by nature; it only needs to be exact for the self-deadlock case,
// where the reading goroutine is the one that wrote the field.
func (m *ownedMutex) ownerID() int64 {
	return m.owner
}
