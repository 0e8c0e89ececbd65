package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// The bridge logs through a single swappable logger so that native
// callback trampolines, which cannot return errors to a caller, still
// have somewhere to report failures.
var logger atomic.Pointer[zap.Logger]

// Logger returns the active logger. Before SetLogger is called it
// returns a no-op logger, so callers never need a nil check.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	nop := zap.NewNop()
	if logger.CompareAndSwap(nil, nop) {
		return nop
	}
	return logger.Load()
}

// SetLogger installs l as the bridge-wide logger. Safe to call while
// callbacks are running; in-flight log calls keep the logger they
// already resolved.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
