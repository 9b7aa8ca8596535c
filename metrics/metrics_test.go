package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/errors"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "SolverOne")
	require.NoError(t, err)

	c.Call("write_data")
	c.Call("write_data")
	c.Call("advance")
	c.Failure("read_data", errors.ProtocolState("read data", "finalized"))
	c.Failure("read_data", fmt.Errorf("plain"))
	c.Failure("read_data", nil)
	c.Advance(0.1)
	c.Checkpoint("write")
	c.Vertices("SolverOne-Mesh", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.calls.WithLabelValues("write_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("read_data", "protocol_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("read_data", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.advances))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints.WithLabelValues("write")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.vertices.WithLabelValues("SolverOne-Mesh")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stepSize))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Call("x")
		c.Failure("x", errors.ErrEngine)
		c.Advance(1)
		c.Checkpoint("read")
		c.Vertices("m", 1)
	})
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "SolverOne")
	require.NoError(t, err)
	_, err = New(reg, "SolverOne")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "SolverTwo")
	require.NoError(t, err)
	c.Call("initialize")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `precice_participant_calls_total{op="initialize",participant="SolverTwo"} 1`)
}
