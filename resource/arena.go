package resource

// Arena is a growable pool of records with slot recycling. Each slot holds
// a pointer to a separately allocated record, so record addresses stay
// stable while the slot index array grows. Released slots are zeroed and
// pushed onto a free stack for reuse.
//
// Arena performs no locking. Callers that share an arena across
// goroutines must synchronize around it.
type Arena[T any] struct {
	slots []*T
	live  []bool
	free  []int

	allocs   uint64
	recycles uint64
}

// Alloc returns a record and its slot index, recycling a released slot
// when one is available. Recycled records are zero-valued.
func (a *Arena[T]) Alloc() (*T, int) {
	a.allocs++

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.live[idx] = true
		a.recycles++
		return a.slots[idx], idx
	}

	rec := new(T)
	a.slots = append(a.slots, rec)
	a.live = append(a.live, true)
	return rec, len(a.slots) - 1
}

// Release zeroes the record in the given slot and makes the slot
// available for reuse. Releasing a dead or out-of-range slot is a no-op.
func (a *Arena[T]) Release(idx int) {
	if idx < 0 || idx >= len(a.slots) || !a.live[idx] {
		return
	}
	var zero T
	*a.slots[idx] = zero
	a.live[idx] = false
	a.free = append(a.free, idx)
}

// Get returns the record in the given slot, or nil if the slot is dead
func (a *Arena[T]) Get(idx int) *T {
	if idx < 0 || idx >= len(a.slots) || !a.live[idx] {
		return nil
	}
	return a.slots[idx]
}

// Each calls fn for every live record in slot order, stopping early if
// fn returns false.
func (a *Arena[T]) Each(fn func(idx int, rec *T) bool) {
	for i, rec := range a.slots {
		if !a.live[i] {
			continue
		}
		if !fn(i, rec) {
			return
		}
	}
}

// Len returns the number of live records
func (a *Arena[T]) Len() int {
	return len(a.slots) - len(a.free)
}

// Stats returns the total allocation count and how many of those
// allocations reused a released slot.
func (a *Arena[T]) Stats() (allocs, recycles uint64) {
	return a.allocs, a.recycles
}
