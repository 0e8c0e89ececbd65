package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 256 // max vector elements
	poolInitCap = 8
)

// VectorPool recycles argument vectors across callback dispatches.
// The zero value is ready to use.
type VectorPool[T any] struct {
	pool sync.Pool
}

// Get returns a vector of length n. Contents are zero values.
func (p *VectorPool[T]) Get(n int) []T {
	v, _ := p.pool.Get().(*[]T)
	if v == nil || cap(*v) < n {
		c := n
		if c < poolInitCap {
			c = poolInitCap
		}
		return make([]T, n, c)
	}
	s := (*v)[:n]
	var zero T
	for i := range s {
		s[i] = zero
	}
	return s
}

// Put returns a vector to the pool for reuse
func (p *VectorPool[T]) Put(v []T) {
	if v == nil || cap(v) > poolMaxCap {
		return // reject oversized
	}
	v = v[:0]
	p.pool.Put(&v)
}
