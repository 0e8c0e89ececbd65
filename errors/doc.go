// Package errors provides structured error types for the bridge.
//
// Every error carries a Phase (where in the bridge lifecycle it occurred)
// and a Kind (what category of failure it is), plus an optional engine
// result code, SQL function name, cause chain, and detail message.
//
// # Construction
//
// Use the convenience constructors for common cases:
//
//	err := errors.Misuse(errors.PhaseRegister, "connection is closed")
//	err := errors.Allocation(errors.PhaseOpen, "connection record")
//
// Or the builder for full control:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindCallback).
//		Func("my_func").
//		Cause(cause).
//		Detail("scalar function failed").
//		Build()
//
// # Matching
//
// Errors match with stdlib errors.Is on Phase and Kind:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseOpen, Kind: errors.KindEngine}) {
//		// engine rejected the open
//	}
//
// # Result codes
//
// Code maps any error to the engine result code the bridge reports to
// the C side: nil to CodeOK, misuse to CodeMisuse, allocation failures
// to CodeNomem, encoding errors to CodeFormat, everything else to
// CodeError unless an explicit code was attached.
package errors
