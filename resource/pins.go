package resource

import "sync"

// Pin is a stable opaque token standing in for a Go value on the C side.
// Tokens fit in a C pointer and are never Go pointers themselves, so they
// can be stored as engine user data without interacting with the garbage
// collector. The zero Pin is invalid.
type Pin uintptr

// pinEntry is a single slot in the pin table
type pinEntry struct {
	value any
	valid bool
}

// PinTable holds strong references to Go values handed out to C callbacks.
// A pinned value stays reachable until it is unpinned. Slots are recycled
// through a free list, so a token is only as stable as its pin: resolving
// a stale token after the slot was reused yields the new occupant.
type PinTable struct {
	mu      sync.RWMutex
	entries []pinEntry
	free    []uint32
}

// NewPinTable creates an empty pin table
func NewPinTable() *PinTable {
	return &PinTable{}
}

// Pin stores value and returns its token. Pinning nil is allowed and
// yields a token that resolves to nil.
func (t *PinTable) Pin(value any) Pin {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.entries))
		t.entries = append(t.entries, pinEntry{})
	}

	t.entries[idx] = pinEntry{value: value, valid: true}

	// Token is index+1 so the zero Pin stays invalid.
	return Pin(idx + 1)
}

// Get resolves a token to its pinned value
func (t *PinTable) Get(p Pin) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index(p)
	if !ok {
		return nil, false
	}
	return t.entries[idx].value, true
}

// Unpin releases a token and returns the value it held. The slot becomes
// available for reuse immediately.
func (t *PinTable) Unpin(p Pin) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.index(p)
	if !ok {
		return nil, false
	}

	value := t.entries[idx].value
	t.entries[idx] = pinEntry{}
	t.free = append(t.free, idx)
	return value, true
}

// Len returns the number of live pins
func (t *PinTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.free)
}

// index validates a token and converts it to a slot index.
// Caller holds at least a read lock.
func (t *PinTable) index(p Pin) (uint32, bool) {
	if p == 0 {
		return 0, false
	}
	idx := uint32(p - 1)
	if idx >= uint32(len(t.entries)) || !t.entries[idx].valid {
		return 0, false
	}
	return idx, true
}
