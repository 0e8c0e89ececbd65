package runtime

import (
	"fmt"
	"strings"
	"sync"
)

// Metrics is a snapshot of the runtime's internal counters
type Metrics struct {
	// Thread context cache
	EnvHits   uint64
	EnvMisses uint64
	EnvAllocs uint64

	// Connection registry
	RecordsAllocated uint64
	RecordsRecycled  uint64
	OpenConnections  int

	// Wrapper descriptor cache
	DescriptorHits   uint64
	DescriptorMisses uint64

	// Wrapper construction, by kind
	WrapDB      uint64
	WrapStmt    uint64
	WrapValue   uint64
	WrapContext uint64

	// SQL function dispatch
	FuncCalls    uint64
	StepCalls    uint64
	FinalCalls   uint64
	ValueCalls   uint64
	InverseCalls uint64
	Destroys     uint64

	// Mutex acquisitions
	EnvMutexEntries      uint64
	RegistryMutexEntries uint64
	AutoExtMutexEntries  uint64
}

// String renders the snapshot as a developer-facing report
func (m Metrics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "thread context cache: %d allocs, %d misses, %d hits\n",
		m.EnvAllocs, m.EnvMisses, m.EnvHits)
	fmt.Fprintf(&b, "mutex entry:\n")
	fmt.Fprintf(&b, "\tenv      %d\n", m.EnvMutexEntries)
	fmt.Fprintf(&b, "\tregistry %d\n", m.RegistryMutexEntries)
	fmt.Fprintf(&b, "\tautoExt  %d\n", m.AutoExtMutexEntries)
	fmt.Fprintf(&b, "connection records: %d allocated, %d recycled, %d open\n",
		m.RecordsAllocated, m.RecordsRecycled, m.OpenConnections)
	fmt.Fprintf(&b, "descriptor cache: %d hits, %d misses\n",
		m.DescriptorHits, m.DescriptorMisses)
	fmt.Fprintf(&b, "wrappers built: %d db, %d stmt, %d value, %d context\n",
		m.WrapDB, m.WrapStmt, m.WrapValue, m.WrapContext)
	fmt.Fprintf(&b, "SQL function calls:\n")
	fmt.Fprintf(&b, "\t%-8s = %d\n", "apply", m.FuncCalls)
	fmt.Fprintf(&b, "\t%-8s = %d\n", "step", m.StepCalls)
	fmt.Fprintf(&b, "\t%-8s = %d\n", "final", m.FinalCalls)
	fmt.Fprintf(&b, "\t%-8s = %d\n", "value", m.ValueCalls)
	fmt.Fprintf(&b, "\t%-8s = %d\n", "inverse", m.InverseCalls)
	fmt.Fprintf(&b, "destroy notifications across all callback types: %d\n", m.Destroys)
	return b.String()
}

// counters is the live, mutex-guarded backing store for Metrics
type counters struct {
	mu sync.Mutex
	m  Metrics
}

func (c *counters) add(f func(*Metrics)) {
	c.mu.Lock()
	f(&c.m)
	c.mu.Unlock()
}

// Metrics returns a copy of the runtime's counters. Mutex entry counts
// and registry gauges are filled in from their owning structures.
func (rt *Runtime) Metrics() Metrics {
	rt.counters.mu.Lock()
	m := rt.counters.m
	rt.counters.mu.Unlock()

	m.EnvMutexEntries = rt.envMu.Entries()
	m.RegistryMutexEntries = rt.registryMu.Entries()
	m.AutoExtMutexEntries = rt.autoExtMu.Entries()

	rt.registryMu.Lock()
	m.RecordsAllocated, m.RecordsRecycled = rt.conns.Stats()
	m.OpenConnections = rt.conns.Len()
	rt.registryMu.Unlock()

	return m
}
