// Package errors provides structured error types for the preCICE bindings.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, offending Go type, expected
// shape, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseNormalize, errors.KindShape).
//		Path("values").
//		GoType("[][]float64").
//		Want("[n][3]").
//		Detail("row 2 has 2 entries").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseNormalize, path, "float64", "sequence")
//	err := errors.NotFound(errors.PhaseResolve, "mesh", "MeshOne")
//	err := errors.ProtocolState("advance", "finalized")
//
// Kinds map onto the failure classes callers care about:
//
//	type_mismatch, shape   caller buffer rank/length mismatch, raised before any engine call
//	not_found              mesh or data not declared in the configuration
//	protocol_state         lifecycle call out of order
//	engine                 failure reported by the engine, cause kept verbatim
//
// Kind-only sentinels (ErrShape, ErrNotFound, ...) match any phase:
//
//	if errors.Is(err, errors.ErrProtocolState) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
