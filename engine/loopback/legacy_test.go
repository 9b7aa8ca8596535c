package loopback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

func TestLegacyIDs(t *testing.T) {
	l := solverOne(t).Legacy()

	assert.Equal(t, 3, l.GetDimensions())

	meshID, err := l.GetMeshID("SolverOne-Mesh")
	require.NoError(t, err)
	assert.Equal(t, 0, meshID)

	_, err = l.GetMeshID("SolverTwo-Mesh")
	assert.ErrorIs(t, err, errors.ErrNotFound, "declared but not used by SolverOne")

	dataID, err := l.GetDataID("Data-Two", meshID)
	require.NoError(t, err)
	assert.Equal(t, 1, dataID)
	assert.True(t, l.HasData("Data-One", meshID))
	assert.False(t, l.HasData("Data-One", 7))

	_, err = l.GetDataID("Data-Three", meshID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLegacyActionMarkers(t *testing.T) {
	l := solverOne(t).Legacy()
	meshID, _ := l.GetMeshID("SolverOne-Mesh")
	writeID, _ := l.GetDataID("Data-One", meshID)
	readID, _ := l.GetDataID("Data-Two", meshID)

	ids := make([]int, 2)
	require.NoError(t, l.SetMeshVertices(meshID, make([]float64, 6), ids))

	dt, err := l.Initialize()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, dt, 1e-12)
	assert.False(t, l.IsActionRequired(precice.ActionWriteInitialData))
	require.NoError(t, l.InitializeData())

	assert.True(t, l.IsActionRequired(precice.ActionWriteIterationCheckpoint))
	_, err = l.Advance(dt)
	assert.ErrorContains(t, err, "was not fulfilled")

	require.NoError(t, l.MarkActionFulfilled(precice.ActionWriteIterationCheckpoint))
	assert.False(t, l.IsActionRequired(precice.ActionWriteIterationCheckpoint))
	assert.Error(t, l.MarkActionFulfilled(precice.ActionReadIterationCheckpoint), "not required yet")

	require.NoError(t, l.WriteBlockVectorData(writeID, ids, []float64{1, 1, 1, 2, 2, 2}))
	dt, err = l.Advance(dt)
	require.NoError(t, err)

	assert.True(t, l.IsActionRequired(precice.ActionReadIterationCheckpoint))
	require.NoError(t, l.MarkActionFulfilled(precice.ActionReadIterationCheckpoint))

	values := make([]float64, 6)
	require.NoError(t, l.ReadBlockVectorData(readID, ids, values))
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, values)

	err = l.ReadBlockScalarData(readID, ids, make([]float64, 2))
	assert.ErrorContains(t, err, "has 3 components")

	for l.IsCouplingOngoing() {
		for _, a := range []string{precice.ActionWriteIterationCheckpoint, precice.ActionReadIterationCheckpoint} {
			if l.IsActionRequired(a) {
				require.NoError(t, l.MarkActionFulfilled(a))
			}
		}
		dt, err = l.Advance(dt)
		require.NoError(t, err)
	}
	require.NoError(t, l.Finalize())
}

func TestLegacyInitialData(t *testing.T) {
	e, err := New(precice.Options{
		ParticipantName:   "Fluid",
		ConfigurationPath: "testdata/explicit-v2.xml",
		ProcessSize:       1,
	})
	require.NoError(t, err)
	l := e.Legacy()

	meshID, err := l.GetMeshID("Fluid-Mesh")
	require.NoError(t, err)
	forces, err := l.GetDataID("Forces", meshID)
	require.NoError(t, err)
	temperature, err := l.GetDataID("Temperature", meshID)
	require.NoError(t, err)
	assert.True(t, l.IsMeshConnectivityRequired(meshID))
	assert.True(t, l.IsGradientDataRequired(forces))
	assert.False(t, l.IsGradientDataRequired(temperature))

	ids := make([]int, 2)
	require.NoError(t, l.SetMeshVertices(meshID, []float64{0, 0, 1, 0}, ids))
	require.NoError(t, l.SetMeshElements(meshID, precice.ElementEdge, ids))

	assert.False(t, l.IsActionRequired(precice.ActionWriteInitialData), "only after initialize")
	_, err = l.Initialize()
	require.NoError(t, err)
	require.True(t, l.IsActionRequired(precice.ActionWriteInitialData))
	assert.Error(t, l.InitializeData())

	require.NoError(t, l.WriteBlockVectorData(forces, ids, []float64{1, 2, 3, 4}))
	require.NoError(t, l.MarkActionFulfilled(precice.ActionWriteInitialData))
	require.NoError(t, l.InitializeData())
	assert.Error(t, l.InitializeData(), "second call")

	assert.Error(t, l.WriteBlockScalarData(forces, ids, []float64{1, 2}), "vector data through the scalar call")
	assert.Equal(t, "loopback;"+precice.Version, l.VersionInformation())
}
