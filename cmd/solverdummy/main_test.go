package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/config"
	"github.com/wippyai/precice-go/driver"
	"github.com/wippyai/precice-go/errors"
)

const testConfig = "testdata/precice-config.xml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSolverOne(t *testing.T) {
	out, err := execute(t, testConfig, "SolverOne", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, `DUMMY: Running solver dummy with preCICE config file "testdata/precice-config.xml", participant name "SolverOne", and mesh name "SolverOne-Mesh".`, lines[0])
	assert.Equal(t, "DUMMY: Closing Go solver dummy...", lines[len(lines)-1])
	assert.Equal(t, 2, strings.Count(out, "DUMMY: Writing iteration checkpoint"))
	assert.Equal(t, 4, strings.Count(out, "DUMMY: Advancing in time"))
	assert.Equal(t, 2, strings.Count(out, "DUMMY: Reading iteration checkpoint"))
}

func TestSolverTwoLegacy(t *testing.T) {
	out, err := execute(t, testConfig, "SolverTwo", "--protocol", "v2", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `mesh name "SolverTwo-Mesh"`)
	assert.Equal(t, 4, strings.Count(out, "DUMMY: Advancing in time"))
}

func TestEchoEngine(t *testing.T) {
	out, err := execute(t, "", "SolverOne", "--engine", "echo", "--log-level", "error")
	require.NoError(t, err)
	assert.NotContains(t, out, "Advancing")
	assert.Contains(t, out, "Closing")
}

func TestKernelFlag(t *testing.T) {
	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x08, 0x01, 0x04, 0x73, 0x74, 0x65, 0x70, 0x00, 0x00,
		0x0a, 0x10, 0x01, 0x0e, 0x00, 0x20, 0x00,
		0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
		0xa0, 0x0b,
	}
	path := filepath.Join(t.TempDir(), "step.wasm")
	require.NoError(t, os.WriteFile(path, wasm, 0o600))

	_, err := execute(t, testConfig, "SolverOne", "--kernel", path, "--log-level", "error")
	require.NoError(t, err)

	_, err = execute(t, testConfig, "SolverOne", "--kernel", path, "--kernel-export", "missing", "--log-level", "error")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMaxSteps(t *testing.T) {
	_, err := execute(t, testConfig, "SolverOne", "--max-steps", "1", "--log-level", "error")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestInvalidSettings(t *testing.T) {
	_, err := execute(t, testConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "participant is required")

	_, err = execute(t, testConfig, "SolverOne", "--engine", "mpi")
	assert.Contains(t, err.Error(), `unknown engine "mpi"`)

	_, err = execute(t, testConfig, "SolverOne", "extra-mesh", "too-many")
	assert.Error(t, err)

	_, err = execute(t, "testdata/missing.xml", "SolverOne", "--log-level", "error")
	assert.ErrorIs(t, err, errors.ErrEngine)
}

func TestSettingsLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("participant: SolverTwo\nvertices: 5\nengine: echo\n"), 0o600))
	t.Setenv("PRECICE_VERTICES", "6")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--settings", path, "--vertices", "7", "-i"}))
	s, err := settings(cmd, []string{"c.xml"})
	require.NoError(t, err)

	assert.Equal(t, "SolverTwo", s.Participant, "from the file")
	assert.Equal(t, "c.xml", s.Configuration, "from the arguments")
	assert.Equal(t, 7, s.Vertices, "flag beats env beats file")
	assert.Equal(t, config.EngineEcho, s.Engine)
	assert.True(t, s.Interactive)
	assert.Equal(t, "SolverTwo-Mesh", s.Mesh)
	assert.Equal(t, "Data-One", s.ReadData)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "DUMMY: Writing iteration checkpoint", describe(driver.Event{Kind: driver.EventCheckpointSaved}))
	assert.Empty(t, describe(driver.Event{Kind: driver.EventRead}))
	assert.Equal(t, "[1 2 3 4 ... (6)]", summarize([]float64{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, "[0.5]", summarize([]float64{0.5}))
}

func TestInteractiveFallsBackWithoutTerminal(t *testing.T) {
	out, err := execute(t, testConfig, "SolverOne", "-i", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "interactive mode disabled")
	assert.Contains(t, out, "DUMMY: Closing Go solver dummy...")
}
