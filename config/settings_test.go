package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

func TestDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
	assert.Equal(t, EngineLoopback, s.Engine)
	assert.Equal(t, precice.ProtocolV3, s.ProtocolVersion())
	assert.Equal(t, zapcore.InfoLevel, s.Level())
}

func TestLoadYAML(t *testing.T) {
	s, err := Load("testdata/solverone.yaml")
	require.NoError(t, err)

	assert.Equal(t, "SolverOne", s.Participant)
	assert.Equal(t, 5, s.Vertices)
	assert.Equal(t, 1, s.ProcessSize, "default kept")
	assert.Equal(t, precice.ProtocolV2, s.ProtocolVersion())
	assert.Equal(t, "next", s.KernelExport)
	assert.Equal(t, 10, s.MaxSteps)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, zapcore.DebugLevel, s.Level())
	assert.Equal(t, ":9464", s.MetricsAddr)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("PRECICE_PARTICIPANT", "SolverTwo")
	t.Setenv("PRECICE_VERTICES", "7")
	t.Setenv("PRECICE_INTERACTIVE", "true")
	t.Setenv("PRECICE_TIMEOUT", "2m")

	s, err := Load("testdata/solverone.yaml")
	require.NoError(t, err)
	assert.Equal(t, "SolverTwo", s.Participant)
	assert.Equal(t, 7, s.Vertices)
	assert.True(t, s.Interactive)
	assert.Equal(t, 2*time.Minute, s.Timeout)
	assert.Equal(t, "v2", s.Protocol, "unset variables keep the file value")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = Load("testdata/unknown.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "verticez")

	t.Setenv("PRECICE_VERTICES", "many")
	_, err = Load("")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestFillDefaults(t *testing.T) {
	s := Settings{Participant: "SolverOne"}
	s.FillDefaults()
	assert.Equal(t, "SolverOne-Mesh", s.Mesh)
	assert.Equal(t, "Data-Two", s.ReadData)
	assert.Equal(t, "Data-One", s.WriteData)

	s = Settings{Participant: "SolverTwo", Mesh: "Custom"}
	s.FillDefaults()
	assert.Equal(t, "Custom", s.Mesh)
	assert.Equal(t, "Data-One", s.ReadData)
	assert.Equal(t, "Data-Two", s.WriteData)

	s = Settings{Participant: "Fluid"}
	s.FillDefaults()
	assert.Empty(t, s.Mesh)
}

func TestValidate(t *testing.T) {
	s := Defaults()
	s.Participant = "SolverOne"
	s.Configuration = "precice-config.xml"
	s.FillDefaults()
	require.NoError(t, s.Validate())

	echo := Defaults()
	echo.Engine = EngineEcho
	echo.Participant = "SolverOne"
	echo.FillDefaults()
	assert.NoError(t, echo.Validate(), "echo needs no configuration")

	bad := Settings{
		Engine:       "mpi",
		Protocol:     "v4",
		LogLevel:     "loud",
		ProcessSize:  2,
		ProcessIndex: 2,
		MaxSteps:     -1,
	}
	err := bad.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 9)
	for _, e := range errs {
		assert.Equal(t, errors.PhaseConfig, e.(*errors.Error).Phase)
	}
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
	assert.Contains(t, err.Error(), `unknown engine "mpi"`)
	assert.Contains(t, err.Error(), `unknown protocol "v4"`)
}

func TestOptions(t *testing.T) {
	s := Settings{Participant: "SolverOne", Configuration: "c.xml", ProcessIndex: 1, ProcessSize: 4}
	assert.Equal(t, precice.Options{
		ParticipantName:   "SolverOne",
		ConfigurationPath: "c.xml",
		ProcessIndex:      1,
		ProcessSize:       4,
	}, s.Options())
}
