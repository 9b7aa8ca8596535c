package normalize

import (
	"fmt"

	"github.com/wippyai/precice-go/errors"
)

// Buffer is a dense row-major buffer with the shape it was read from.
// Shape has one entry for a plain sequence and two for a sequence of records.
type Buffer[T float64 | int] struct {
	Data  []T
	Shape []int
}

// Array holds coupling values, Indices holds vertex ids.
type (
	Array   = Buffer[float64]
	Indices = Buffer[int]
)

// FromFlat wraps flat with shape without copying.
// With no shape the buffer is rank 1 of len(flat).
func FromFlat[T float64 | int](flat []T, shape ...int) Buffer[T] {
	if len(shape) == 0 {
		shape = []int{len(flat)}
	}
	return Buffer[T]{Data: flat, Shape: shape}
}

// Rank returns the number of dimensions of the source data.
func (b Buffer[T]) Rank() int {
	return len(b.Shape)
}

// Len returns the number of packed values.
func (b Buffer[T]) Len() int {
	return len(b.Data)
}

// Flat returns the packed values.
func (b Buffer[T]) Flat() []T {
	return b.Data
}

// Width returns the record width: the column count for rank 2, 1 otherwise.
func (b Buffer[T]) Width() int {
	if len(b.Shape) == 2 {
		return b.Shape[1]
	}
	return 1
}

// Count returns the number of records.
func (b Buffer[T]) Count() int {
	if len(b.Shape) == 0 {
		return 0
	}
	return b.Shape[0]
}

// Row returns record i as a sub-slice of Data.
func (b Buffer[T]) Row(i int) []T {
	w := b.Width()
	return b.Data[i*w : (i+1)*w : (i+1)*w]
}

// Rows returns all records as sub-slices of Data.
func (b Buffer[T]) Rows() [][]T {
	n := b.Count()
	rows := make([][]T, n)
	for i := range rows {
		rows[i] = b.Row(i)
	}
	return rows
}

// At returns entry j of record i.
func (b Buffer[T]) At(i, j int) T {
	return b.Data[i*b.Width()+j]
}

// Expect interprets the buffer as records of width and returns their count.
// name is used as the error path.
func (b Buffer[T]) Expect(name string, width int) (int, error) {
	if width < 1 {
		return 0, errors.InvalidInput(errors.PhaseNormalize, fmt.Sprintf("%s: record width %d must be positive", name, width))
	}
	if b.Count() == 0 {
		return 0, nil
	}

	switch len(b.Shape) {
	case 1:
		if len(b.Data)%width != 0 {
			return 0, errors.New(errors.PhaseNormalize, errors.KindShape).
				Path(name).
				Want(fmt.Sprintf("multiple of %d values", width)).
				Value(len(b.Data)).
				Detail("flattened length %d is not a multiple of record width %d", len(b.Data), width).
				Build()
		}
		return len(b.Data) / width, nil
	case 2:
		if b.Shape[1] != width {
			return 0, errors.New(errors.PhaseNormalize, errors.KindShape).
				Path(name).
				Want(fmt.Sprintf("[n][%d]", width)).
				Value(b.Shape[1]).
				Detail("records have %d entries, expected %d", b.Shape[1], width).
				Build()
		}
		return b.Shape[0], nil
	default:
		return 0, errors.Shape(errors.PhaseNormalize, []string{name}, fmt.Sprintf("unsupported rank %d", len(b.Shape)))
	}
}

// Records reshapes a buffer to count records of width, keeping the data.
// Width 1 yields a rank 1 buffer.
func (b Buffer[T]) Records(count, width int) Buffer[T] {
	if width == 1 {
		return Buffer[T]{Data: b.Data, Shape: []int{count}}
	}
	return Buffer[T]{Data: b.Data, Shape: []int{count, width}}
}

// Clone returns a deep copy.
func (b Buffer[T]) Clone() Buffer[T] {
	data := make([]T, len(b.Data))
	copy(data, b.Data)
	shape := make([]int, len(b.Shape))
	copy(shape, b.Shape)
	return Buffer[T]{Data: data, Shape: shape}
}
