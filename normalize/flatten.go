package normalize

import (
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/precice-go/errors"
)

// Flatten converts v into a packed row-major Array.
func Flatten(v any) (Array, error) {
	switch x := v.(type) {
	case nil:
		return Array{}, errors.TypeMismatch(errors.PhaseNormalize, nil, "nil", "numeric sequence")
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return Array{Data: out, Shape: []int{len(x)}}, nil
	case [][]float64:
		return flattenRows(x)
	case Array:
		return x.Clone(), nil
	case *Array:
		if x == nil {
			return Array{}, errors.TypeMismatch(errors.PhaseNormalize, nil, "nil pointer", "numeric sequence")
		}
		return x.Clone(), nil
	case View:
		return x.Flatten()
	case *View:
		if x == nil {
			return Array{}, errors.TypeMismatch(errors.PhaseNormalize, nil, "nil pointer", "numeric sequence")
		}
		return x.Flatten()
	case Matrix:
		return flattenMatrix(x), nil
	case Vector:
		return flattenVector(x), nil
	}

	data, shape, err := floats.walk(reflect.ValueOf(v))
	if err != nil {
		return Array{}, err
	}
	return Array{Data: data, Shape: shape}, nil
}

// FlattenIndices converts v into packed row-major vertex ids.
// Floating point elements are rejected.
func FlattenIndices(v any) (Indices, error) {
	switch x := v.(type) {
	case nil:
		return Indices{}, errors.TypeMismatch(errors.PhaseNormalize, nil, "nil", "integer sequence")
	case []int:
		out := make([]int, len(x))
		copy(out, x)
		return Indices{Data: out, Shape: []int{len(x)}}, nil
	case Indices:
		return x.Clone(), nil
	}

	data, shape, err := ints.walk(reflect.ValueOf(v))
	if err != nil {
		return Indices{}, err
	}
	return Indices{Data: data, Shape: shape}, nil
}

func flattenRows(rows [][]float64) (Array, error) {
	if len(rows) == 0 {
		return Array{Data: []float64{}, Shape: []int{0}}, nil
	}
	cols := len(rows[0])
	out := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Array{}, ragged(i, len(row), cols, "[][]float64")
		}
		out = append(out, row...)
	}
	return Array{Data: out, Shape: []int{len(rows), cols}}, nil
}

type walker[T float64 | int] struct {
	conv func(reflect.Value) (T, bool)
	want string
}

var (
	floats = walker[float64]{conv: toFloat, want: "numeric sequence"}
	ints   = walker[int]{conv: toInt, want: "integer sequence"}
)

func (w walker[T]) walk(v reflect.Value) ([]T, []int, error) {
	seq, ok := sequence(v)
	if !ok {
		return nil, nil, errors.TypeMismatch(errors.PhaseNormalize, nil, typeName(v), w.want)
	}

	n := seq.Len()
	if n == 0 {
		return []T{}, []int{0}, nil
	}

	if _, nested := sequence(seq.Index(0)); !nested {
		out := make([]T, n)
		for i := 0; i < n; i++ {
			x, err := w.leaf(seq.Index(i), strconv.Itoa(i))
			if err != nil {
				return nil, nil, err
			}
			out[i] = x
		}
		return out, []int{n}, nil
	}

	var out []T
	cols := -1
	for i := 0; i < n; i++ {
		row, ok := sequence(seq.Index(i))
		if !ok {
			return nil, nil, errors.New(errors.PhaseNormalize, errors.KindShape).
				Path(strconv.Itoa(i)).
				GoType(typeName(seq.Index(i))).
				Detail("mixed scalars and sequences").
				Build()
		}
		if cols < 0 {
			cols = row.Len()
			out = make([]T, 0, n*cols)
		} else if row.Len() != cols {
			return nil, nil, ragged(i, row.Len(), cols, typeName(v))
		}
		for j := 0; j < cols; j++ {
			x, err := w.leaf(row.Index(j), strconv.Itoa(i), strconv.Itoa(j))
			if err != nil {
				return nil, nil, err
			}
			out = append(out, x)
		}
	}
	return out, []int{n, cols}, nil
}

func (w walker[T]) leaf(v reflect.Value, path ...string) (T, error) {
	var zero T
	if _, nested := sequence(v); nested {
		return zero, errors.New(errors.PhaseNormalize, errors.KindShape).
			Path(path...).
			GoType(typeName(v)).
			Detail("nesting deeper than two levels").
			Build()
	}
	x, ok := w.conv(indirect(v))
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseNormalize, path, typeName(v), w.want)
	}
	return x, nil
}

// sequence returns an indexable value for slices, arrays, views and vectors.
func sequence(v reflect.Value) (reflect.Value, bool) {
	v = indirect(v)
	if !v.IsValid() {
		return v, false
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String, reflect.Complex64, reflect.Complex128,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v, false
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case View:
			if arr, err := x.Flatten(); err == nil {
				return bufferValue(arr), true
			}
		case Array:
			return bufferValue(x), true
		case Matrix:
			return bufferValue(flattenMatrix(x)), true
		case Vector:
			return reflect.ValueOf(flattenVector(x).Data), true
		}
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v, true
	}
	return v, false
}

func bufferValue(a Array) reflect.Value {
	if a.Rank() == 2 {
		return reflect.ValueOf(a.Rows())
	}
	return reflect.ValueOf(a.Data)
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	}
	return 0, false
}

func toInt(v reflect.Value) (int, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt {
			return 0, false
		}
		return int(u), true
	}
	return 0, false
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}

func ragged(row, got, want int, goType string) *errors.Error {
	return errors.New(errors.PhaseNormalize, errors.KindShape).
		Path(strconv.Itoa(row)).
		GoType(goType).
		Value(got).
		Detail("row has %d entries, first row has %d", got, want).
		Build()
}

// Scalar reports whether v is a single number and returns it.
func Scalar(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return toFloat(indirect(reflect.ValueOf(v)))
}
