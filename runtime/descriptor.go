package runtime

import (
	"reflect"
	"sync"

	sqlitebridge "github.com/wippyai/sqlite-bridge"
)

// funcKind classifies a SQL function callback by its method set
type funcKind uint8

const (
	kindUnsupported funcKind = iota
	kindScalar
	kindAggregate
	kindWindow
)

func (k funcKind) String() string {
	switch k {
	case kindScalar:
		return "scalar"
	case kindAggregate:
		return "aggregate"
	case kindWindow:
		return "window"
	default:
		return "unsupported"
	}
}

var (
	scalarType    = reflect.TypeOf((*ScalarFunction)(nil)).Elem()
	aggregateType = reflect.TypeOf((*AggregateFunction)(nil)).Elem()
	windowType    = reflect.TypeOf((*WindowFunction)(nil)).Elem()
	destroyerType = reflect.TypeOf((*sqlitebridge.Destroyer)(nil)).Elem()
)

// descriptor records what the bridge needs to know about a concrete
// callback type: its SQL function classification and whether it wants
// a destruction notification. Descriptors are immutable once built.
type descriptor struct {
	Type       reflect.Type
	Kind       funcKind
	HasDestroy bool
}

// descriptorCache memoizes one descriptor per concrete callback type
type descriptorCache struct {
	mu sync.RWMutex
	m  map[reflect.Type]*descriptor
}

// descriptorFor resolves the descriptor for a callback value, building
// and caching it on first sight of the concrete type. Panics on a nil
// callback; callers screen nil before resolving.
func (rt *Runtime) descriptorFor(v any) *descriptor {
	t := reflect.TypeOf(v)
	if t == nil {
		panic("descriptor resolve on nil callback")
	}

	rt.descriptors.mu.RLock()
	d := rt.descriptors.m[t]
	rt.descriptors.mu.RUnlock()
	if d != nil {
		rt.counters.add(func(m *Metrics) { m.DescriptorHits++ })
		return d
	}

	d = &descriptor{
		Type:       t,
		Kind:       classify(t),
		HasDestroy: t.Implements(destroyerType),
	}

	rt.descriptors.mu.Lock()
	if existing := rt.descriptors.m[t]; existing != nil {
		d = existing
	} else {
		if rt.descriptors.m == nil {
			rt.descriptors.m = make(map[reflect.Type]*descriptor)
		}
		rt.descriptors.m[t] = d
	}
	rt.descriptors.mu.Unlock()

	rt.counters.add(func(m *Metrics) { m.DescriptorMisses++ })
	return d
}

// classify maps a callback type onto its SQL function kind. A scalar
// method set wins over aggregate methods; a full window method set wins
// over a plain aggregate one.
func classify(t reflect.Type) funcKind {
	switch {
	case t.Implements(scalarType):
		return kindScalar
	case t.Implements(windowType):
		return kindWindow
	case t.Implements(aggregateType):
		return kindAggregate
	default:
		return kindUnsupported
	}
}

// notifyDestroy delivers the destruction notification if the callback
// asked for one
func notifyDestroy(v any) {
	if d, ok := v.(sqlitebridge.Destroyer); ok {
		d.Destroy()
	}
}

// sameCallback reports whether two callback values are the same object.
// Pointer and func callbacks compare by identity; comparable values
// compare by equality; everything else is never the same object.
func sameCallback(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Map, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}
