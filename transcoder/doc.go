// Package transcoder converts values between engine cells and Go values.
//
// The engine represents SQL values as typed cells (integer, float, text,
// blob, null) reachable only through C pointers. This package handles the
// mechanical conversion in both directions:
//
//	Decode/DecodeArgs  - engine value cells to native Go values
//	DecodeNumeric      - engine value cells to numbers with SQL cast rules
//	Result             - native Go values to a function result cell
//	ResultError        - error text to a function error result
//
// # Type mapping
//
//	Engine cell    Go value
//	─────────────────────────
//	NULL           nil
//	INTEGER        int64
//	FLOAT          float64
//	TEXT           string
//	BLOB           []byte
//
// Result additionally accepts int, int32, bool, and time.Time on the way
// in, widening or encoding them the way the engine expects.
//
// # Casts
//
// CastTextToInteger and CastTextToReal implement the SQL CAST rules for
// text operands, so numeric reductions can accept mixed-type columns
// without asking the engine to convert cells in place.
package transcoder
