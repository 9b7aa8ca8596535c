// Package legacy adapts a v2 engine to the current engine contract.
//
// Names are translated to integer ids through a resolver.IDs cache, which the
// adapter also provides to participants. Checkpoint queries are answered from
// action markers: a query that reports true marks the action fulfilled, so the
// caller acknowledges a checkpoint by asking for it. Writes issued before
// Initialize are held back and replayed between the v2 initialize and
// initializeData calls, which is where v2 expects initial data.
package legacy

import (
	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/resolver"
)

// Engine implements precice.Engine over a precice.LegacyEngine.
type Engine struct {
	le          precice.LegacyEngine
	ids         *resolver.IDs
	acked       map[string]bool
	pending     []write
	dt          float64
	initialized bool
}

type write struct {
	data     resolver.Data
	ids      []int
	values   []float64
	gradient bool
}

var (
	_ precice.Engine    = (*Engine)(nil)
	_ resolver.Provider = (*Engine)(nil)
)

// Wrap adapts le. dims reports data component counts, which v2 engines
// cannot; nil treats every field as vector data.
func Wrap(le precice.LegacyEngine, dims resolver.DataDimensions) *Engine {
	return &Engine{
		le:    le,
		ids:   resolver.NewIDs(le, dims),
		acked: make(map[string]bool),
	}
}

// Resolver returns the id cache shared with participants.
func (e *Engine) Resolver() resolver.Resolver {
	return e.ids
}

// Unwrap returns the v2 engine.
func (e *Engine) Unwrap() precice.LegacyEngine {
	return e.le
}

func (e *Engine) Initialize() error {
	dt, err := e.le.Initialize()
	if err != nil {
		return err
	}
	e.dt = dt
	e.initialized = true
	clear(e.acked)

	if len(e.pending) > 0 {
		Logger().Debug("replaying initial data", zap.Int("writes", len(e.pending)))
	}
	for _, w := range e.pending {
		if err := e.send(w.data, w.ids, w.values, w.gradient); err != nil {
			return err
		}
	}
	e.pending = nil

	if e.le.IsActionRequired(precice.ActionWriteInitialData) {
		if err := e.le.MarkActionFulfilled(precice.ActionWriteInitialData); err != nil {
			return err
		}
	}
	return e.le.InitializeData()
}

func (e *Engine) Advance(dt float64) error {
	next, err := e.le.Advance(dt)
	if err != nil {
		return err
	}
	e.dt = next
	clear(e.acked)
	return nil
}

func (e *Engine) Finalize() error {
	return e.le.Finalize()
}

func (e *Engine) IsCouplingOngoing() (bool, error) {
	return e.le.IsCouplingOngoing(), nil
}

func (e *Engine) IsTimeWindowComplete() (bool, error) {
	return e.le.IsTimeWindowComplete(), nil
}

func (e *Engine) GetMaxTimeStepSize() (float64, error) {
	if !e.initialized {
		return 0, errors.New(errors.PhaseEngine, errors.KindEngine).
			Detail("max time step size is known after initialize").
			Build()
	}
	return e.dt, nil
}

// RequiresInitialData reports false: initial writes are replayed by Initialize.
func (e *Engine) RequiresInitialData() (bool, error) {
	return false, nil
}

func (e *Engine) RequiresWritingCheckpoint() (bool, error) {
	return e.acknowledge(precice.ActionWriteIterationCheckpoint)
}

func (e *Engine) RequiresReadingCheckpoint() (bool, error) {
	return e.acknowledge(precice.ActionReadIterationCheckpoint)
}

func (e *Engine) acknowledge(action string) (bool, error) {
	if e.acked[action] {
		return true, nil
	}
	if !e.le.IsActionRequired(action) {
		return false, nil
	}
	if err := e.le.MarkActionFulfilled(action); err != nil {
		return false, err
	}
	e.acked[action] = true
	return true, nil
}

func (e *Engine) HasMesh(mesh string) bool {
	_, err := e.ids.Mesh(mesh)
	return err == nil
}

func (e *Engine) HasData(mesh, data string) bool {
	_, err := e.ids.Data(mesh, data)
	return err == nil
}

func (e *Engine) GetMeshDimensions(mesh string) (int, error) {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return 0, err
	}
	return m.Dimensions, nil
}

func (e *Engine) GetDataDimensions(mesh, data string) (int, error) {
	d, err := e.ids.Data(mesh, data)
	if err != nil {
		return 0, err
	}
	return d.Dimensions, nil
}

func (e *Engine) RequiresMeshConnectivityFor(mesh string) (bool, error) {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return false, err
	}
	return e.le.IsMeshConnectivityRequired(m.ID), nil
}

func (e *Engine) RequiresGradientDataFor(mesh, data string) (bool, error) {
	d, err := e.ids.Data(mesh, data)
	if err != nil {
		return false, err
	}
	return e.le.IsGradientDataRequired(d.ID), nil
}

func (e *Engine) SetMeshVertex(mesh string, position []float64) (int, error) {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return 0, err
	}
	return e.le.SetMeshVertex(m.ID, position)
}

func (e *Engine) SetMeshVertices(mesh string, positions []float64, ids []int) error {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return err
	}
	return e.le.SetMeshVertices(m.ID, positions, ids)
}

func (e *Engine) GetMeshVertexSize(mesh string) (int, error) {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return 0, err
	}
	return e.le.GetMeshVertexSize(m.ID)
}

func (e *Engine) SetMeshElements(mesh string, kind precice.ElementKind, vertices []int) error {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return err
	}
	return e.le.SetMeshElements(m.ID, kind, vertices)
}

func (e *Engine) SetMeshAccessRegion(mesh string, bbox []float64) error {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return err
	}
	return e.le.SetMeshAccessRegion(m.ID, bbox)
}

func (e *Engine) GetMeshVertexIDsAndCoordinates(mesh string, ids []int, coords []float64) error {
	m, err := e.ids.Mesh(mesh)
	if err != nil {
		return err
	}
	return e.le.GetMeshVerticesAndIDs(m.ID, ids, coords)
}

func (e *Engine) WriteData(mesh, data string, ids []int, values []float64) error {
	d, err := e.ids.Data(mesh, data)
	if err != nil {
		return err
	}
	if !e.initialized {
		e.hold(d, ids, values, false)
		return nil
	}
	return e.send(d, ids, values, false)
}

// ReadData ignores relativeReadTime; v2 engines read at the window end.
func (e *Engine) ReadData(mesh, data string, ids []int, _ float64, values []float64) error {
	d, err := e.ids.Data(mesh, data)
	if err != nil {
		return err
	}
	if d.Vector() {
		return e.le.ReadBlockVectorData(d.ID, ids, values)
	}
	return e.le.ReadBlockScalarData(d.ID, ids, values)
}

func (e *Engine) WriteGradientData(mesh, data string, ids []int, gradients []float64) error {
	d, err := e.ids.Data(mesh, data)
	if err != nil {
		return err
	}
	if !e.initialized {
		e.hold(d, ids, gradients, true)
		return nil
	}
	return e.send(d, ids, gradients, true)
}

func (e *Engine) VersionInformation() string {
	return e.le.VersionInformation()
}

func (e *Engine) hold(d resolver.Data, ids []int, values []float64, gradient bool) {
	e.pending = append(e.pending, write{
		data:     d,
		ids:      append([]int(nil), ids...),
		values:   append([]float64(nil), values...),
		gradient: gradient,
	})
}

func (e *Engine) send(d resolver.Data, ids []int, values []float64, gradient bool) error {
	switch {
	case gradient && d.Vector():
		return e.le.WriteBlockVectorGradientData(d.ID, ids, values)
	case gradient:
		return e.le.WriteBlockScalarGradientData(d.ID, ids, values)
	case d.Vector():
		return e.le.WriteBlockVectorData(d.ID, ids, values)
	default:
		return e.le.WriteBlockScalarData(d.ID, ids, values)
	}
}
