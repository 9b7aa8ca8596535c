// Package normalize converts caller data into the dense buffers the coupling
// engine expects, and engine buffers back into caller shapes.
//
// # Accepted Inputs
//
// Flatten accepts any finite, indexable, nested numeric sequence:
//
//	[]float64, []int, [3]float32, ...        rank 1
//	[][]float64, [][3]float64, []any{...}    rank 2 (rows may mix slices, arrays and views)
//	View                                     strided window over a backing slice
//	Matrix (Dims/At), Vector (Len/AtVec)     e.g. gonum matrices and vectors
//	Array                                    a previous result, copied
//
// Bare numbers are rejected with a type_mismatch error: a scalar where a
// per-vertex sequence is expected is almost always a caller bug.
//
// # Copy Semantics
//
// The result never aliases caller memory. Non-contiguous inputs (strided
// views, nested slices) are compacted into a fresh row-major buffer and dense
// inputs are copied, so the engine always receives exactly n*W packed values.
//
// # Record Width
//
// Array.Expect(name, width) interprets the flattened data as records of a
// fixed width W (1 for scalars, dim for vectors, dim*W for gradients):
//
//	rank 1 input: flattened length must be a multiple of W
//	rank 2 input: column count must equal W
//
// FromFlat is the inverse direction: it wraps an engine buffer with a shape
// without copying.
package normalize
