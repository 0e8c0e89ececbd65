package runtime

import (
	"modernc.org/libc"
	lib "modernc.org/sqlite/lib"

	"github.com/wippyai/sqlite-bridge/engine"
	"github.com/wippyai/sqlite-bridge/errors"
	"github.com/wippyai/sqlite-bridge/transcoder"
)

// DataType identifies the storage class of a value or column
type DataType int32

const (
	TypeInteger DataType = lib.SQLITE_INTEGER
	TypeFloat   DataType = lib.SQLITE_FLOAT
	TypeText    DataType = lib.SQLITE_TEXT
	TypeBlob    DataType = lib.SQLITE_BLOB
	TypeNull    DataType = lib.SQLITE_NULL
)

func (t DataType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// DB is the Go-side face of one open connection. It is created by
// Runtime.Open and becomes unusable after Close.
type DB struct {
	rt  *Runtime
	ptr uintptr
	rec *connRecord
}

// IsOpen reports whether the connection is still usable
func (db *DB) IsOpen() bool {
	return db != nil && db.ptr != 0
}

// newDB builds an unbound connection wrapper. The engine handle is
// filled in once the open protocol produces one.
func (rt *Runtime) newDB() *DB {
	rt.counters.add(func(m *Metrics) { m.WrapDB++ })
	return &DB{rt: rt}
}

// Value is a protected engine value cell passed to SQL function
// callbacks. It is only valid for the duration of the callback.
type Value struct {
	tls *libc.TLS
	ptr uintptr
}

func (rt *Runtime) wrapValue(tls *libc.TLS, ptr uintptr) *Value {
	rt.counters.add(func(m *Metrics) { m.WrapValue++ })
	return &Value{tls: tls, ptr: ptr}
}

// Type returns the storage class of the value
func (v *Value) Type() DataType {
	return DataType(lib.Xsqlite3_value_type(v.tls, v.ptr))
}

// IsNull reports whether the value is SQL NULL
func (v *Value) IsNull() bool {
	return v.Type() == TypeNull
}

// Int64 returns the value as a 64-bit integer, converting if needed
func (v *Value) Int64() int64 {
	return lib.Xsqlite3_value_int64(v.tls, v.ptr)
}

// Int returns the value as an int, converting if needed
func (v *Value) Int() int {
	return int(v.Int64())
}

// Double returns the value as a floating-point number, converting if needed
func (v *Value) Double() float64 {
	return float64(lib.Xsqlite3_value_double(v.tls, v.ptr))
}

// Text returns the value as a string, converting if needed
func (v *Value) Text() string {
	n := lib.Xsqlite3_value_bytes(v.tls, v.ptr)
	return engine.GoStringN(lib.Xsqlite3_value_text(v.tls, v.ptr), int(n))
}

// Blob returns a copy of the value as a byte slice
func (v *Value) Blob() []byte {
	n := lib.Xsqlite3_value_bytes(v.tls, v.ptr)
	return engine.GoBytes(lib.Xsqlite3_value_blob(v.tls, v.ptr), int(n))
}

// Len returns the size of the value in bytes
func (v *Value) Len() int {
	return int(lib.Xsqlite3_value_bytes(v.tls, v.ptr))
}

// Native decodes the value into the matching native Go type
func (v *Value) Native() any {
	return transcoder.Decode(v.tls, v.ptr)
}

// Numeric reads the value as a number using SQL cast rules for text.
// isFloat reports whether f carries the value; otherwise i does.
func (v *Value) Numeric() (i int64, f float64, isFloat bool) {
	return transcoder.DecodeNumeric(v.tls, v.ptr)
}

// Context is the result slot of one SQL function invocation. It is only
// valid for the duration of the callback it was passed to.
type Context struct {
	rt  *Runtime
	tls *libc.TLS
	ptr uintptr

	// agg is the address of this aggregate group's state cell, stable
	// across the invocations belonging to one group. Zero for scalar
	// calls and for a final call that never saw a step.
	agg uintptr
}

func (rt *Runtime) wrapContext(tls *libc.TLS, ptr, agg uintptr) *Context {
	rt.counters.add(func(m *Metrics) { m.WrapContext++ })
	return &Context{rt: rt, tls: tls, ptr: ptr, agg: agg}
}

// AggregateContext returns a key that is stable across all callback
// invocations belonging to one aggregate group, or zero outside
// aggregate dispatch. Aggregate implementations use it to key their
// per-group state.
func (c *Context) AggregateContext() uintptr {
	return c.agg
}

// DB returns the connection whose statement invoked the function, or
// nil if the connection is not managed by this runtime.
func (c *Context) DB() *DB {
	h := lib.Xsqlite3_context_db_handle(c.tls, c.ptr)
	if rec := c.rt.findRecord(h); rec != nil {
		return rec.wrapper
	}
	return nil
}

// Result materializes a native Go value as the function result
func (c *Context) Result(v any) error {
	if err := transcoder.Result(c.tls, c.ptr, v); err != nil {
		return errors.Wrap(errors.PhaseDispatch, errors.KindInvalidInput, err, "materialize function result")
	}
	return nil
}

// ResultNull sets the function result to SQL NULL
func (c *Context) ResultNull() {
	lib.Xsqlite3_result_null(c.tls, c.ptr)
}

// ResultInt64 sets the function result to an integer
func (c *Context) ResultInt64(v int64) {
	lib.Xsqlite3_result_int64(c.tls, c.ptr, v)
}

// ResultDouble sets the function result to a float
func (c *Context) ResultDouble(v float64) {
	lib.Xsqlite3_result_double(c.tls, c.ptr, v)
}

// ResultText sets the function result to a string
func (c *Context) ResultText(s string) error {
	return c.Result(s)
}

// ResultBlob sets the function result to a byte slice
func (c *Context) ResultBlob(b []byte) error {
	return c.Result(b)
}

// ResultZeroBlob sets the function result to a zero-filled blob of n bytes
func (c *Context) ResultZeroBlob(n int32) {
	lib.Xsqlite3_result_zeroblob(c.tls, c.ptr, n)
}

// ResultValue sets the function result to a copy of an argument value
func (c *Context) ResultValue(v *Value) error {
	if v == nil || v.ptr == 0 {
		return errors.Misuse(errors.PhaseDispatch, "nil value result")
	}
	lib.Xsqlite3_result_value(c.tls, c.ptr, v.ptr)
	return nil
}

// ResultError reports err as the function's error result
func (c *Context) ResultError(err error) {
	if err == nil {
		return
	}
	transcoder.ResultError(c.tls, c.ptr, err.Error(), errors.Code(err))
}
