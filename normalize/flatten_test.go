package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/errors"
)

type dense struct {
	data []float64
	r, c int
}

func (d dense) Dims() (int, int)     { return d.r, d.c }
func (d dense) At(i, j int) float64 { return d.data[i*d.c+j] }

type vec []float64

func (v vec) Len() int            { return len(v) }
func (v vec) AtVec(i int) float64 { return v[i] }

func TestFlatten_EquivalentContainers(t *testing.T) {
	want := []float64{3, 7, 8, 7, 6, 5}

	// columns 1..3 of a 2x5 row-major matrix
	backing := []float64{
		0, 3, 7, 8, 0,
		0, 7, 6, 5, 0,
	}
	strided := NewView(backing, 2, 5).Cols(1, 4)
	require.False(t, strided.Contiguous())

	inputs := map[string]any{
		"nested slices":   [][]float64{{3, 7, 8}, {7, 6, 5}},
		"slice of arrays": [][3]float64{{3, 7, 8}, {7, 6, 5}},
		"array of arrays": [2][3]float64{{3, 7, 8}, {7, 6, 5}},
		"mixed":           []any{[]float64{3, 7, 8}, [3]float64{7, 6, 5}},
		"ints":            [][]int{{3, 7, 8}, {7, 6, 5}},
		"strided view":    strided,
		"view pointer":    &strided,
		"matrix":          dense{data: want, r: 2, c: 3},
		"view rows":       []any{strided.Row(0), strided.Row(1)},
		"vector rows":     []vec{{3, 7, 8}, {7, 6, 5}},
		"pointer":         &[][]float64{{3, 7, 8}, {7, 6, 5}},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			arr, err := Flatten(in)
			require.NoError(t, err)
			assert.Equal(t, want, arr.Data)
			assert.Equal(t, []int{2, 3}, arr.Shape)
		})
	}
}

func TestFlatten_Rank1(t *testing.T) {
	backing := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	column := NewView(backing, 3, 3).Col(1)
	require.False(t, column.Contiguous())

	inputs := map[string]any{
		"floats":  []float64{2, 5, 8},
		"float32": []float32{2, 5, 8},
		"ints":    []int{2, 5, 8},
		"uint8":   []uint8{2, 5, 8},
		"array":   [3]float64{2, 5, 8},
		"any":     []any{2, 5.0, float32(8)},
		"column":  column,
		"vector":  vec{2, 5, 8},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			arr, err := Flatten(in)
			require.NoError(t, err)
			assert.Equal(t, []float64{2, 5, 8}, arr.Data)
			assert.Equal(t, []int{3}, arr.Shape)
		})
	}
}

func TestFlatten_Empty(t *testing.T) {
	inputs := map[string]any{
		"slice":        []float64{},
		"nil slice":    []float64(nil),
		"nested":       [][]float64{},
		"any":          []any{},
		"empty array":  [0][3]float64{},
		"empty view":   View{Shape: []int{0, 3}, Strides: []int{3, 1}},
		"empty matrix": dense{},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			arr, err := Flatten(in)
			require.NoError(t, err)
			assert.Equal(t, 0, arr.Len())
			assert.Equal(t, 0, arr.Count())

			n, err := arr.Expect("values", 3)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestFlatten_ScalarRejected(t *testing.T) {
	inputs := map[string]any{
		"int":     8,
		"float":   8.0,
		"float32": float32(1),
		"string":  "abc",
		"bool":    true,
		"nil":     nil,
		"strings": []string{"a"},
		"nil ptr": (*[]float64)(nil),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Flatten(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrTypeMismatch)
		})
	}
}

func TestFlatten_ShapeErrors(t *testing.T) {
	inputs := map[string]any{
		"ragged":       [][]float64{{1, 2}, {3}},
		"ragged any":   []any{[]int{1, 2}, []int{3}},
		"mixed rank":   []any{[]float64{1}, 2.0},
		"too deep":     [][][]float64{{{1}}},
		"deep in mix":  []any{[]any{[]float64{1}}},
		"bad view":     View{Data: []float64{1}, Shape: []int{2}, Strides: []int{1}},
		"rank 3 view":  View{Data: []float64{1}, Shape: []int{1, 1, 1}, Strides: []int{1, 1, 1}},
		"strides rank": View{Data: []float64{1}, Shape: []int{1, 1}, Strides: []int{1}},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Flatten(in)
			require.Error(t, err)
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errors.PhaseNormalize, e.Phase)
		})
	}
}

func TestFlatten_RaggedPath(t *testing.T) {
	_, err := Flatten([][]float64{{1, 2}, {3, 4}, {5}})
	require.ErrorIs(t, err, errors.ErrShape)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"2"}, e.Path)
}

func TestFlatten_Copies(t *testing.T) {
	in := []float64{1, 2, 3}
	arr, err := Flatten(in)
	require.NoError(t, err)

	in[0] = 100
	assert.Equal(t, 1.0, arr.Data[0])

	backing := []float64{1, 2, 3, 4}
	view := NewView(backing, 2, 2)
	require.True(t, view.Contiguous())
	arr, err = Flatten(view)
	require.NoError(t, err)

	backing[0] = 100
	assert.Equal(t, 1.0, arr.Data[0])

	again, err := Flatten(arr)
	require.NoError(t, err)
	again.Data[1] = 100
	assert.Equal(t, 2.0, arr.Data[1])
}

func TestFlattenIndices(t *testing.T) {
	tests := []struct {
		in    any
		name  string
		data  []int
		shape []int
	}{
		{name: "ints", in: []int{0, 1, 2}, data: []int{0, 1, 2}, shape: []int{3}},
		{name: "int32", in: []int32{0, 1, 2}, data: []int{0, 1, 2}, shape: []int{3}},
		{name: "uint", in: []uint{4}, data: []int{4}, shape: []int{1}},
		{name: "pairs", in: [][2]int{{0, 1}, {1, 2}}, data: []int{0, 1, 1, 2}, shape: []int{2, 2}},
		{name: "empty", in: []int64{}, data: []int{}, shape: []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := FlattenIndices(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.data, idx.Data)
			assert.Equal(t, tt.shape, idx.Shape)
		})
	}
}

func TestFlattenIndices_Rejects(t *testing.T) {
	for name, in := range map[string]any{
		"scalar": 1,
		"floats": []float64{0, 1},
		"nil":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FlattenIndices(in)
			assert.ErrorIs(t, err, errors.ErrTypeMismatch)
		})
	}
}

func TestScalar(t *testing.T) {
	f := float32(2.5)
	for _, v := range []any{2.5, f, &f} {
		got, ok := Scalar(v)
		assert.True(t, ok)
		assert.Equal(t, 2.5, got)
	}
	got, ok := Scalar(7)
	assert.True(t, ok)
	assert.Equal(t, 7.0, got)

	for _, v := range []any{nil, "1", []float64{1}, true} {
		_, ok := Scalar(v)
		assert.False(t, ok, "%v", v)
	}
}
