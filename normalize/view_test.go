package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/errors"
)

func TestView_Contiguous(t *testing.T) {
	backing := make([]float64, 15)
	m := NewView(backing, 3, 5)

	assert.True(t, m.Contiguous())
	assert.True(t, m.Row(1).Contiguous())
	assert.False(t, m.Col(1).Contiguous())
	assert.False(t, m.Cols(2, 4).Contiguous())
	assert.True(t, NewView(backing, 1, 5).Cols(1, 3).Contiguous())
}

func TestView_FlattenColumn(t *testing.T) {
	backing := []float64{
		0, 1, 2,
		3, 4, 5,
		6, 7, 8,
	}
	arr, err := NewView(backing, 3, 3).Col(2).Flatten()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 8}, arr.Data)
	assert.Equal(t, []int{3}, arr.Shape)
}

func TestView_FlattenGradientSlice(t *testing.T) {
	// columns 2..10 of a 3x15 matrix: 3 records of width 9
	backing := make([]float64, 45)
	for i := range backing {
		backing[i] = float64(i)
	}
	arr, err := NewView(backing, 3, 15).Cols(2, 11).Flatten()
	require.NoError(t, err)

	n, err := arr.Expect("gradients", 9)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9, 10}, arr.Row(0))
	assert.Equal(t, []float64{32, 33, 34, 35, 36, 37, 38, 39, 40}, arr.Row(2))
}

func TestView_NegativeStride(t *testing.T) {
	backing := []float64{1, 2, 3}
	reversed := View{Data: backing, Shape: []int{3}, Strides: []int{-1}, Offset: 2}

	arr, err := reversed.Flatten()
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, arr.Data)
}

func TestView_OutOfBounds(t *testing.T) {
	backing := make([]float64, 6)
	_, err := NewView(backing, 3, 3).Flatten()
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)

	_, err = View{Data: backing, Shape: []int{3}, Strides: []int{-1}}.Flatten()
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
}

func TestView_Size(t *testing.T) {
	assert.Equal(t, 15, NewView(nil, 3, 5).Size())
	assert.Equal(t, 0, NewView(nil, 0, 5).Size())
}
