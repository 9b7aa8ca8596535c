package participant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/engine/echo"
	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/normalize"
)

// initialized returns an echo participant with n vertices on FakeMesh.
func initialized(t *testing.T, n int, opts ...echo.Option) (*Participant, *echo.Engine, []int) {
	t.Helper()
	p, eng := newEcho(t, opts...)
	ids, err := p.SetMeshVertices("FakeMesh", make([]float64, 3*n))
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))
	return p, eng, ids
}

func TestWriteDataContainersAreEquivalent(t *testing.T) {
	backing := []float64{
		1, 2, 3, -1,
		4, 5, 6, -1,
		7, 8, 9, -1,
	}
	inputs := map[string]any{
		"nested":    [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		"array":     [3][3]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		"mixed":     []any{[]int{1, 2, 3}, [3]float32{4, 5, 6}, []any{7, 8.0, int64(9)}},
		"flat":      []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		"strided":   normalize.NewView(backing, 3, 4).Cols(0, 3),
		"packed":    normalize.FromFlat([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3),
		"pointer":   &[][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		"float32s":  [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		"int_table": [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	}
	want := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			p, eng, ids := initialized(t, 3)
			require.NoError(t, p.WriteData("FakeMesh", "FakeData", ids, in))
			assert.Equal(t, want, eng.Buffer())
		})
	}

	idInputs := map[string]any{
		"slice":  []int{0, 1, 2},
		"array":  [3]int{0, 1, 2},
		"int32s": []int32{0, 1, 2},
		"mixed":  []any{0, int64(1), uint8(2)},
	}
	for name, ids := range idInputs {
		t.Run("ids_"+name, func(t *testing.T) {
			p, eng, _ := initialized(t, 3)
			require.NoError(t, p.WriteData("FakeMesh", "FakeData", ids, want))
			assert.Equal(t, want, eng.Buffer())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		p, _, ids := initialized(t, 4, echo.WithData("Scalar", 1))
		require.NoError(t, p.WriteData("FakeMesh", "Scalar", ids, []float64{3, 1, 4, 1}))
		got, err := p.ReadData("FakeMesh", "Scalar", ids, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, got.Shape)
		assert.Equal(t, []float64{3, 1, 4, 1}, got.Flat())
	})

	t.Run("vector", func(t *testing.T) {
		p, _, ids := initialized(t, 2)
		require.NoError(t, p.WriteData("FakeMesh", "FakeData", ids, [][]float64{{1, 2, 3}, {4, 5, 6}}))
		got, err := p.ReadData("FakeMesh", "FakeData", ids, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, got.Shape)
		assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, got.Rows())
	})

	t.Run("scalar_gradient", func(t *testing.T) {
		p, _, ids := initialized(t, 9, echo.WithData("Scalar", 1))
		grads := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
		require.NoError(t, p.WriteGradientData("FakeMesh", "Scalar", ids[:3], grads))

		got, err := p.ReadData("FakeMesh", "Scalar", ids, 0)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, got.Flat())
	})

	t.Run("vector_gradient", func(t *testing.T) {
		p, _, ids := initialized(t, 12)
		grads := make([][]float64, 4)
		flat := make([]float64, 0, 36)
		for i := range grads {
			grads[i] = make([]float64, 9)
			for j := range grads[i] {
				grads[i][j] = float64(9*i + j)
			}
			flat = append(flat, grads[i]...)
		}
		require.NoError(t, p.WriteGradientData("FakeMesh", "FakeData", ids[:4], grads))

		got, err := p.ReadData("FakeMesh", "FakeData", ids, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{12, 3}, got.Shape)
		assert.Equal(t, flat, got.Flat())
	})

	t.Run("empty", func(t *testing.T) {
		p, eng, _ := initialized(t, 1)
		require.NoError(t, p.WriteData("FakeMesh", "FakeData", []int{}, []float64{}))
		assert.Empty(t, eng.Buffer())

		got, err := p.ReadData("FakeMesh", "FakeData", []int{}, 0)
		require.NoError(t, err)
		assert.Zero(t, got.Len())
	})

	t.Run("read_pads_with_zeros", func(t *testing.T) {
		p, _, ids := initialized(t, 2)
		require.NoError(t, p.WriteData("FakeMesh", "FakeData", ids[:1], []float64{1, 2, 3}))
		got, err := p.ReadData("FakeMesh", "FakeData", ids, 0)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 0, 0, 0}, got.Flat())
	})
}

func TestWriteDataRejectsBadInput(t *testing.T) {
	p, eng, ids := initialized(t, 3)
	calls := eng.TotalCalls()

	err := p.WriteData("FakeMesh", "FakeData", ids, 1.0)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch, "bare scalar values")
	err = p.WriteData("FakeMesh", "FakeData", 1, []float64{1, 2, 3})
	assert.ErrorIs(t, err, errors.ErrTypeMismatch, "bare scalar ids")
	err = p.WriteData("FakeMesh", "FakeData", []float64{0.5}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, errors.ErrTypeMismatch, "float ids")
	err = p.WriteData("FakeMesh", "FakeData", ids, "abc")
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	err = p.WriteData("FakeMesh", "FakeData", ids, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	assert.ErrorIs(t, err, errors.ErrShape, "record width")
	err = p.WriteData("FakeMesh", "FakeData", ids, [][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.ErrorIs(t, err, errors.ErrShape, "record count")
	err = p.WriteData("FakeMesh", "FakeData", []int{}, [][]float64{{}, {}})
	assert.ErrorIs(t, err, errors.ErrShape, "zero width records")
	err = p.WriteData("FakeMesh", "FakeData", [][]int{{0, 1, 2}}, make([]float64, 9))
	assert.ErrorIs(t, err, errors.ErrShape, "rank 2 ids")
	err = p.WriteData("FakeMesh", "FakeData", [][]float64{{1, 2, 3}, {4, 5}}, make([]float64, 6))
	assert.Error(t, err, "ragged ids")

	err = p.WriteData("FakeMesh", "FakeData", []int{0, 3}, make([]float64, 6))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
	assert.Contains(t, err.Error(), `vertex id 3 is not one of the 3 vertices of mesh "FakeMesh"`)
	err = p.WriteData("FakeMesh", "FakeData", []int{-1}, make([]float64, 3))
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)

	err = p.WriteGradientData("FakeMesh", "FakeData", ids, make([]float64, 9))
	assert.ErrorIs(t, err, errors.ErrShape, "gradient width is nine")

	_, err = p.ReadData("FakeMesh", "FakeData", 2, 0)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	_, err = p.ReadData("FakeMesh", "FakeData", []int{5}, 0)
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)

	assert.Equal(t, calls, eng.TotalCalls(), "rejected before the engine")
}

func TestWriteAndReadValue(t *testing.T) {
	p, eng, _ := initialized(t, 2, echo.WithData("Scalar", 1))

	require.NoError(t, p.WriteValue("FakeMesh", "Scalar", 1, 2.5))
	assert.Equal(t, []float64{2.5}, eng.Buffer())
	require.NoError(t, p.WriteValue("FakeMesh", "Scalar", 0, []float64{1.5}))
	assert.Equal(t, []float64{1.5}, eng.Buffer())

	got, err := p.ReadValue("FakeMesh", "Scalar", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got.Shape)
	assert.Equal(t, []float64{1.5}, got.Flat())

	require.NoError(t, p.WriteValue("FakeMesh", "FakeData", 1, [3]int{7, 8, 9}))
	got, err = p.ReadValue("FakeMesh", "FakeData", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9}, got.Flat())

	assert.ErrorIs(t, p.WriteValue("FakeMesh", "FakeData", 0, 1.0), errors.ErrTypeMismatch)
	assert.ErrorIs(t, p.WriteValue("FakeMesh", "FakeData", 0, []float64{1, 2}), errors.ErrShape)
	assert.ErrorIs(t, p.WriteValue("FakeMesh", "FakeData", 2, []float64{1, 2, 3}), errors.ErrOutOfBounds)
	_, err = p.ReadValue("FakeMesh", "FakeData", 2, 0)
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
}
