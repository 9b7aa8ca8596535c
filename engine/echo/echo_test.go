package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoReadsPrefixOfLastWrite(t *testing.T) {
	e := New()

	require.NoError(t, e.WriteData("M", "D", []int{0, 1}, []float64{1, 2, 3, 4, 5, 6}))
	got := make([]float64, 4)
	require.NoError(t, e.ReadData("M", "D", []int{0}, 0, got))
	assert.Equal(t, []float64{1, 2, 3, 4}, got)

	got = make([]float64, 8)
	require.NoError(t, e.ReadData("M", "D", []int{0}, 0, got))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 0, 0}, got)

	require.NoError(t, e.WriteGradientData("M", "D", nil, []float64{9}))
	assert.Equal(t, []float64{9}, e.Buffer())
	assert.Equal(t, 1, e.Calls("write_gradient_data"))
}

func TestEchoWriteCopies(t *testing.T) {
	e := New()
	values := []float64{1, 2}
	require.NoError(t, e.WriteData("M", "D", nil, values))
	values[0] = 42
	assert.Equal(t, []float64{1, 2}, e.Buffer())
}

func TestEchoVertices(t *testing.T) {
	e := New(WithMeshDimensions(2))

	ids := make([]int, 3)
	require.NoError(t, e.SetMeshVertices("M", make([]float64, 6), ids))
	assert.Equal(t, []int{0, 1, 2}, ids)

	id, err := e.SetMeshVertex("M", []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	n, err := e.GetMeshVertexSize("M")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = e.SetMeshVertex("M", []float64{1, 1, 1})
	assert.Error(t, err)
}

func TestEchoDimensions(t *testing.T) {
	e := New(WithData("Scalar", 1))

	d, err := e.GetDataDimensions("M", "Scalar")
	require.NoError(t, err)
	assert.Equal(t, 1, d)

	d, err = e.GetDataDimensions("M", "Other")
	require.NoError(t, err)
	assert.Equal(t, 3, d)

	assert.Equal(t, "dummy", e.VersionInformation())
}

func TestEchoMeshVertexIDsAndCoordinates(t *testing.T) {
	e := New()
	ids := make([]int, 3)
	coords := make([]float64, 9)
	require.NoError(t, e.GetMeshVertexIDsAndCoordinates("M", ids, coords))
	assert.Equal(t, []int{0, 1, 2}, ids)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, coords)
}
