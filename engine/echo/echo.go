// Package echo provides an engine double that hands written values back.
//
// Every write replaces a single shared buffer with a copy of the values
// passed; every read fills the destination from the front of that buffer and
// zero-pads the rest. Meshes and data fields of any name exist. Vertex ids are
// handed out per mesh starting at zero.
package echo

import (
	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// VersionInformation is reported by every echo engine.
const VersionInformation = "dummy"

// Option configures an Engine.
type Option func(*Engine)

// WithMeshDimensions sets the spatial dimension of every mesh. Default 3.
func WithMeshDimensions(n int) Option {
	return func(e *Engine) { e.meshDims = n }
}

// WithDataDimensions sets the component count reported for data fields
// without an explicit entry. Default 3.
func WithDataDimensions(n int) Option {
	return func(e *Engine) { e.dataDims = n }
}

// WithData declares the component count of one data field.
func WithData(name string, dims int) Option {
	return func(e *Engine) { e.fields[name] = dims }
}

// Engine implements precice.Engine.
type Engine struct {
	meshDims int
	dataDims int
	fields   map[string]int

	buffer      []float64
	vertices    map[string][]float64
	regions     map[string][]float64
	connections map[string][]int
	calls       map[string]int
}

var _ precice.Engine = (*Engine)(nil)

// New creates an echo engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		meshDims:    3,
		dataDims:    3,
		fields:      make(map[string]int),
		vertices:    make(map[string][]float64),
		regions:     make(map[string][]float64),
		connections: make(map[string][]int),
		calls:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calls returns how often the named engine operation was invoked.
func (e *Engine) Calls(op string) int {
	return e.calls[op]
}

// TotalCalls returns the number of engine operations invoked so far.
func (e *Engine) TotalCalls() int {
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

// Buffer returns a copy of the shared buffer.
func (e *Engine) Buffer() []float64 {
	return append([]float64(nil), e.buffer...)
}

// Region returns the access region last set on a mesh.
func (e *Engine) Region(mesh string) []float64 {
	return e.regions[mesh]
}

// Connectivity returns the flat vertex ids of all elements set on a mesh.
func (e *Engine) Connectivity(mesh string) []int {
	return e.connections[mesh]
}

func (e *Engine) Initialize() error {
	e.calls["initialize"]++
	return nil
}

func (e *Engine) Advance(dt float64) error {
	e.calls["advance"]++
	return nil
}

func (e *Engine) Finalize() error {
	e.calls["finalize"]++
	return nil
}

func (e *Engine) IsCouplingOngoing() (bool, error)         { return false, nil }
func (e *Engine) IsTimeWindowComplete() (bool, error)      { return false, nil }
func (e *Engine) RequiresInitialData() (bool, error)       { return false, nil }
func (e *Engine) RequiresWritingCheckpoint() (bool, error) { return false, nil }
func (e *Engine) RequiresReadingCheckpoint() (bool, error) { return false, nil }
func (e *Engine) GetMaxTimeStepSize() (float64, error)     { return 0, nil }

func (e *Engine) HasMesh(string) bool         { return true }
func (e *Engine) HasData(string, string) bool { return true }

func (e *Engine) GetMeshDimensions(string) (int, error) {
	return e.meshDims, nil
}

func (e *Engine) GetDataDimensions(_, data string) (int, error) {
	if d, ok := e.fields[data]; ok {
		return d, nil
	}
	return e.dataDims, nil
}

func (e *Engine) RequiresMeshConnectivityFor(string) (bool, error)     { return false, nil }
func (e *Engine) RequiresGradientDataFor(string, string) (bool, error) { return false, nil }

func (e *Engine) SetMeshVertex(mesh string, position []float64) (int, error) {
	e.calls["set_mesh_vertex"]++
	if len(position) != e.meshDims {
		return 0, errors.Shape(errors.PhaseEngine, []string{mesh}, "position has wrong dimension")
	}
	id := len(e.vertices[mesh]) / e.meshDims
	e.vertices[mesh] = append(e.vertices[mesh], position...)
	return id, nil
}

func (e *Engine) SetMeshVertices(mesh string, positions []float64, ids []int) error {
	e.calls["set_mesh_vertices"]++
	first := len(e.vertices[mesh]) / e.meshDims
	e.vertices[mesh] = append(e.vertices[mesh], positions...)
	for i := range ids {
		ids[i] = first + i
	}
	return nil
}

func (e *Engine) GetMeshVertexSize(mesh string) (int, error) {
	e.calls["get_mesh_vertex_size"]++
	return len(e.vertices[mesh]) / e.meshDims, nil
}

func (e *Engine) SetMeshElements(mesh string, _ precice.ElementKind, vertices []int) error {
	e.calls["set_mesh_elements"]++
	e.connections[mesh] = append(e.connections[mesh], vertices...)
	return nil
}

func (e *Engine) SetMeshAccessRegion(mesh string, bbox []float64) error {
	e.calls["set_mesh_access_region"]++
	e.regions[mesh] = append([]float64(nil), bbox...)
	return nil
}

// GetMeshVertexIDsAndCoordinates fills ids with 0..n-1 and coords with
// 0..len(coords)-1.
func (e *Engine) GetMeshVertexIDsAndCoordinates(_ string, ids []int, coords []float64) error {
	e.calls["get_mesh_vertex_ids_and_coordinates"]++
	for i := range ids {
		ids[i] = i
	}
	for i := range coords {
		coords[i] = float64(i)
	}
	return nil
}

func (e *Engine) WriteData(_, _ string, _ []int, values []float64) error {
	e.calls["write_data"]++
	e.buffer = append(e.buffer[:0:0], values...)
	return nil
}

func (e *Engine) ReadData(_, _ string, _ []int, _ float64, values []float64) error {
	e.calls["read_data"]++
	n := copy(values, e.buffer)
	clear(values[n:])
	return nil
}

func (e *Engine) WriteGradientData(_, _ string, _ []int, gradients []float64) error {
	e.calls["write_gradient_data"]++
	e.buffer = append(e.buffer[:0:0], gradients...)
	return nil
}

func (e *Engine) VersionInformation() string {
	return VersionInformation
}
