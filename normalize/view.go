package normalize

import (
	"fmt"

	"github.com/wippyai/precice-go/errors"
)

// Matrix is satisfied by two-dimensional numeric containers such as gonum's
// mat.Dense.
type Matrix interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// Vector is satisfied by one-dimensional numeric containers such as gonum's
// mat.VecDense.
type Vector interface {
	Len() int
	AtVec(i int) float64
}

// View is a strided window over a backing slice. Strides are counted in
// elements. A column of a row-major matrix is a rank 1 view whose stride is
// the row length, which is not contiguous.
type View struct {
	Data    []float64
	Shape   []int
	Strides []int
	Offset  int
}

// NewView returns a dense row-major rows x cols view of data.
func NewView(data []float64, rows, cols int) View {
	return View{
		Data:    data,
		Shape:   []int{rows, cols},
		Strides: []int{cols, 1},
	}
}

// Col returns column j of a rank 2 view.
func (v View) Col(j int) View {
	return View{
		Data:    v.Data,
		Shape:   []int{v.Shape[0]},
		Strides: []int{v.Strides[0]},
		Offset:  v.Offset + j*v.Strides[1],
	}
}

// Row returns row i of a rank 2 view.
func (v View) Row(i int) View {
	return View{
		Data:    v.Data,
		Shape:   []int{v.Shape[1]},
		Strides: []int{v.Strides[1]},
		Offset:  v.Offset + i*v.Strides[0],
	}
}

// Cols returns columns [from, to) of a rank 2 view.
func (v View) Cols(from, to int) View {
	return View{
		Data:    v.Data,
		Shape:   []int{v.Shape[0], to - from},
		Strides: []int{v.Strides[0], v.Strides[1]},
		Offset:  v.Offset + from*v.Strides[1],
	}
}

// Contiguous reports whether the view covers a packed row-major range.
func (v View) Contiguous() bool {
	expected := 1
	for d := len(v.Shape) - 1; d >= 0; d-- {
		if v.Shape[d] > 1 && v.Strides[d] != expected {
			return false
		}
		expected *= v.Shape[d]
	}
	return true
}

// Size returns the number of elements addressed by the view.
func (v View) Size() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

func (v View) validate() error {
	if len(v.Shape) == 0 || len(v.Shape) > 2 {
		return errors.Shape(errors.PhaseNormalize, nil, fmt.Sprintf("view rank %d, want 1 or 2", len(v.Shape)))
	}
	if len(v.Strides) != len(v.Shape) {
		return errors.Shape(errors.PhaseNormalize, nil, fmt.Sprintf("view has %d strides for rank %d", len(v.Strides), len(v.Shape)))
	}
	for d, s := range v.Shape {
		if s < 0 {
			return errors.Shape(errors.PhaseNormalize, nil, fmt.Sprintf("view dimension %d is negative", d))
		}
	}
	if v.Size() == 0 {
		return nil
	}

	lo, hi := v.Offset, v.Offset
	for d, s := range v.Shape {
		reach := (s - 1) * v.Strides[d]
		if reach < 0 {
			lo += reach
		} else {
			hi += reach
		}
	}
	if lo < 0 || hi >= len(v.Data) {
		return errors.New(errors.PhaseNormalize, errors.KindOutOfBounds).
			Detail("view addresses [%d, %d] outside backing length %d", lo, hi, len(v.Data)).
			Build()
	}
	return nil
}

// Flatten copies the view into a packed row-major Array.
func (v View) Flatten() (Array, error) {
	if err := v.validate(); err != nil {
		return Array{}, err
	}

	out := make([]float64, 0, v.Size())
	shape := append([]int(nil), v.Shape...)
	if len(v.Shape) == 1 {
		for i := 0; i < v.Shape[0]; i++ {
			out = append(out, v.Data[v.Offset+i*v.Strides[0]])
		}
		return Array{Data: out, Shape: shape}, nil
	}

	for i := 0; i < v.Shape[0]; i++ {
		base := v.Offset + i*v.Strides[0]
		for j := 0; j < v.Shape[1]; j++ {
			out = append(out, v.Data[base+j*v.Strides[1]])
		}
	}
	return Array{Data: out, Shape: shape}, nil
}

func flattenMatrix(m Matrix) Array {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return Array{Data: out, Shape: []int{r, c}}
}

func flattenVector(v Vector) Array {
	n := v.Len()
	out := make([]float64, n)
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return Array{Data: out, Shape: []int{n}}
}
