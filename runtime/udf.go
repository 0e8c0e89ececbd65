package runtime

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	sqlitebridge "github.com/wippyai/sqlite-bridge"
	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
	"github.com/wippyai/sqlite-bridge/resource"
	"github.com/wippyai/sqlite-bridge/transcoder"
)

var (
	udfFuncTrampolinePtr    = engine.FuncPointer(udfFuncTrampoline)
	udfStepTrampolinePtr    = engine.FuncPointer(udfStepTrampoline)
	udfFinalTrampolinePtr   = engine.FuncPointer(udfFinalTrampoline)
	udfValueTrampolinePtr   = engine.FuncPointer(udfValueTrampoline)
	udfInverseTrampolinePtr = engine.FuncPointer(udfInverseTrampoline)
	udfDestroyTrampolinePtr = engine.FuncPointer(udfDestroyTrampoline)
)

// argPool recycles the per-call argument vectors built for scalar,
// step and inverse dispatch.
var argPool transcoder.VectorPool[*Value]

// ScalarFunction computes a plain SQL function. Apply delivers its
// result through ctx; returning an error fails the calling statement
// with a message naming the function.
type ScalarFunction interface {
	Apply(ctx *Context, args []*Value) error
}

// AggregateFunction accumulates rows into one result per group. The
// same registered value serves every group; implementations key any
// per-group state on ctx.AggregateContext.
type AggregateFunction interface {
	Step(ctx *Context, args []*Value) error
	Final(ctx *Context) error
}

// WindowFunction extends an aggregate with the pieces window frames
// need: Value reports the current accumulation without finalizing it,
// Inverse retracts a row that slid out of the frame.
type WindowFunction interface {
	AggregateFunction
	Value(ctx *Context) error
	Inverse(ctx *Context, args []*Value) error
}

// sqlFunc is the pinned per-registration state handed to the engine as
// user data
type sqlFunc struct {
	name string
	impl any
	kind funcKind
}

// CreateFunction registers f as a SQL function. The concrete type of f
// decides the kind: ScalarFunction, AggregateFunction or
// WindowFunction, with scalar taking precedence for types implementing
// several. nArg fixes the argument count, -1 accepts any. A nil f
// removes the named function. If f also implements Destroyer it is
// notified when the registration is dropped.
func (db *DB) CreateFunction(name string, nArg int32, enc sqlitebridge.TextEncoding, f any) error {
	_, tls, err := db.use(errors.PhaseRegister)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name is empty")
	}
	rt := db.rt
	if enc == 0 {
		enc = sqlitebridge.UTF8
	}
	switch enc &^ (sqlitebridge.Deterministic | sqlitebridge.DirectOnly | sqlitebridge.Innocuous) {
	case sqlitebridge.UTF8, sqlitebridge.UTF16LE, sqlitebridge.UTF16BE, sqlitebridge.UTF16:
	default:
		return errors.New(errors.PhaseRegister, errors.KindEncoding).
			Code(errors.CodeFormat).
			Detail("invalid function encoding option").
			Build()
	}

	cname, err := engine.CString(name)
	if err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindAllocation, err, "function name")
	}
	defer engine.FreeCString(tls, cname)

	if f == nil {
		rc := lib.Xsqlite3_create_function_v2(tls, db.ptr, cname, nArg, int32(enc), 0, 0, 0, 0, 0)
		if rc != lib.SQLITE_OK {
			return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
		}
		return nil
	}

	desc := rt.descriptorFor(f)
	if desc.Kind == kindUnsupported {
		return errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Code(errors.CodeMisuse).
			Detail("%T implements no SQL function interface", f).
			Build()
	}

	token := rt.pins.Pin(&sqlFunc{name: name, impl: f, kind: desc.Kind})

	var rc int32
	switch desc.Kind {
	case kindScalar:
		rc = lib.Xsqlite3_create_function_v2(tls, db.ptr, cname, nArg, int32(enc),
			uintptr(token), udfFuncTrampolinePtr, 0, 0, udfDestroyTrampolinePtr)
	case kindAggregate:
		rc = lib.Xsqlite3_create_function_v2(tls, db.ptr, cname, nArg, int32(enc),
			uintptr(token), 0, udfStepTrampolinePtr, udfFinalTrampolinePtr, udfDestroyTrampolinePtr)
	case kindWindow:
		rc = lib.Xsqlite3_create_window_function(tls, db.ptr, cname, nArg, int32(enc),
			uintptr(token), udfStepTrampolinePtr, udfFinalTrampolinePtr,
			udfValueTrampolinePtr, udfInverseTrampolinePtr, udfDestroyTrampolinePtr)
	}
	if rc != lib.SQLITE_OK {
		// On a failed registration the engine has already run the
		// destructor, which released the pin.
		return engine.CheckRC(tls, db.ptr, rc, errors.PhaseRegister)
	}

	engine.Logger().Debug("sql function registered",
		zap.String("name", name),
		zap.String("kind", desc.Kind.String()),
		zap.Int32("n_arg", nArg))
	return nil
}

// RemoveFunction drops a previously registered SQL function
func (db *DB) RemoveFunction(name string, nArg int32) error {
	return db.CreateFunction(name, nArg, sqlitebridge.UTF8, nil)
}

// resolveUDF maps a call context back to its registration state
func resolveUDF(tls *libc.TLS, ctx uintptr) (*Runtime, *sqlFunc) {
	rt := active.Load()
	if rt == nil {
		return nil, nil
	}
	v, ok := rt.pins.Get(resource.Pin(lib.Xsqlite3_user_data(tls, ctx)))
	if !ok {
		return rt, nil
	}
	st, _ := v.(*sqlFunc)
	return rt, st
}

// decodeArgVector wraps the engine's argument array in pooled value
// wrappers. Callers return the vector with releaseArgVector once the
// callback is done with it.
func (rt *Runtime) decodeArgVector(tls *libc.TLS, argc int32, argv uintptr) []*Value {
	args := argPool.Get(int(argc))
	for i := int32(0); i < argc; i++ {
		p := *(*uintptr)(unsafe.Pointer(argv + uintptr(i)*ptrSize))
		args[i] = rt.wrapValue(tls, p)
	}
	return args
}

func (rt *Runtime) releaseArgVector(args []*Value) {
	for i := range args {
		args[i] = nil
	}
	argPool.Put(args)
}

// udfResultError reports a scalar failure as the call's result, naming
// the function the way client code registered it
func udfResultError(tls *libc.TLS, ctx uintptr, name, method string, err error) {
	msg := fmt.Sprintf("Client-defined SQL function %s.%s() threw: %s", name, method, err)
	transcoder.ResultError(tls, ctx, msg, errors.Code(err))
}

// udfLogError records a failure from a callback with no per-call error
// channel
func udfLogError(name, method string, err error) {
	engine.Logger().Warn("sql function callback failed",
		zap.String("function", name),
		zap.String("method", method),
		zap.Error(err))
}

func udfFuncTrampoline(tls *libc.TLS, ctx uintptr, argc int32, argv uintptr) {
	rt, st := resolveUDF(tls, ctx)
	if st == nil {
		return
	}
	fn, ok := st.impl.(ScalarFunction)
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.FuncCalls++ })

	c := rt.wrapContext(tls, ctx, 0)
	args := rt.decodeArgVector(tls, argc, argv)
	err := trap(func() error { return fn.Apply(c, args) })
	rt.releaseArgVector(args)
	if err != nil {
		udfResultError(tls, ctx, st.name, "Apply", err)
	}
}

func udfStepTrampoline(tls *libc.TLS, ctx uintptr, argc int32, argv uintptr) {
	rt, st := resolveUDF(tls, ctx)
	if st == nil {
		return
	}
	fn, ok := st.impl.(AggregateFunction)
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.StepCalls++ })

	cell := lib.Xsqlite3_aggregate_context(tls, ctx, int32(ptrSize))
	if cell == 0 {
		lib.Xsqlite3_result_error_nomem(tls, ctx)
		return
	}

	c := rt.wrapContext(tls, ctx, cell)
	args := rt.decodeArgVector(tls, argc, argv)
	err := trap(func() error { return fn.Step(c, args) })
	rt.releaseArgVector(args)
	if err != nil {
		udfLogError(st.name, "Step", err)
	}
}

func udfFinalTrampoline(tls *libc.TLS, ctx uintptr) {
	rt, st := resolveUDF(tls, ctx)
	if st == nil {
		return
	}
	fn, ok := st.impl.(AggregateFunction)
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.FinalCalls++ })

	// Size zero: a never-stepped group must not allocate a cell here,
	// and its absence is not an error.
	cell := lib.Xsqlite3_aggregate_context(tls, ctx, 0)
	c := rt.wrapContext(tls, ctx, cell)
	if err := trap(func() error { return fn.Final(c) }); err != nil {
		udfLogError(st.name, "Final", err)
	}
}

func udfValueTrampoline(tls *libc.TLS, ctx uintptr) {
	rt, st := resolveUDF(tls, ctx)
	if st == nil {
		return
	}
	fn, ok := st.impl.(WindowFunction)
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.ValueCalls++ })

	cell := lib.Xsqlite3_aggregate_context(tls, ctx, int32(ptrSize))
	if cell == 0 {
		lib.Xsqlite3_result_error_nomem(tls, ctx)
		return
	}

	c := rt.wrapContext(tls, ctx, cell)
	if err := trap(func() error { return fn.Value(c) }); err != nil {
		udfLogError(st.name, "Value", err)
	}
}

func udfInverseTrampoline(tls *libc.TLS, ctx uintptr, argc int32, argv uintptr) {
	rt, st := resolveUDF(tls, ctx)
	if st == nil {
		return
	}
	fn, ok := st.impl.(WindowFunction)
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.InverseCalls++ })

	cell := lib.Xsqlite3_aggregate_context(tls, ctx, int32(ptrSize))
	if cell == 0 {
		lib.Xsqlite3_result_error_nomem(tls, ctx)
		return
	}

	c := rt.wrapContext(tls, ctx, cell)
	args := rt.decodeArgVector(tls, argc, argv)
	err := trap(func() error { return fn.Inverse(c, args) })
	rt.releaseArgVector(args)
	if err != nil {
		udfLogError(st.name, "Inverse", err)
	}
}

func udfDestroyTrampoline(tls *libc.TLS, pApp uintptr) {
	rt := active.Load()
	if rt == nil {
		return
	}
	v, ok := rt.pins.Unpin(resource.Pin(pApp))
	if !ok {
		return
	}
	rt.counters.add(func(m *Metrics) { m.Destroys++ })
	if st, ok := v.(*sqlFunc); ok {
		notifyDestroy(st.impl)
	}
}
