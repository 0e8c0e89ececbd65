// Package resource provides the ownership primitives the bridge uses to
// hand Go values across the C boundary and to pool per-connection state.
//
// # Pin table
//
// PinTable keeps strong references to Go values referenced from C. The
// engine stores callback state as an opaque pointer-sized user datum; the
// bridge pins the Go value and stores the resulting token instead, then
// resolves the token back inside the callback:
//
//	pin := table.Pin(myHook)
//	// ... token travels through the engine as user data ...
//	v, ok := table.Get(pin)
//
// Tokens are never Go pointers, so they are safe to store in C memory.
// Unpinning releases the reference and recycles the slot.
//
// # Arena
//
// Arena pools records behind stable pointers with a free index stack.
// Released slots are zeroed and reused by later allocations, keeping
// steady-state allocation churn near zero for open/close heavy
// workloads. The arena itself is unsynchronized; the owning registry
// serializes access.
package resource
