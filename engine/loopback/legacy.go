package loopback

import (
	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// Legacy presents an Engine through the v2 interface: integer ids in
// declaration order and action markers in place of checkpoint queries.
type Legacy struct {
	e         *Engine
	meshes    []string
	data      []dataRef
	fulfilled map[string]bool
	initData  bool
}

type dataRef struct {
	mesh string
	name string
}

var _ precice.LegacyEngine = (*Legacy)(nil)

// Legacy returns the v2 view of the engine.
func (e *Engine) Legacy() *Legacy {
	l := &Legacy{e: e, fulfilled: make(map[string]bool)}
	for _, m := range e.cfg.Meshes {
		l.meshes = append(l.meshes, m.Name)
		for _, d := range m.Data {
			l.data = append(l.data, dataRef{mesh: m.Name, name: d})
		}
	}
	return l
}

// Engine returns the underlying engine.
func (l *Legacy) Engine() *Engine {
	return l.e
}

func (l *Legacy) Initialize() (float64, error) {
	if err := l.e.Initialize(); err != nil {
		return 0, err
	}
	clear(l.fulfilled)
	return l.e.maxStep(), nil
}

// InitializeData exchanges data written after Initialize and before this call.
func (l *Legacy) InitializeData() error {
	if err := l.e.running("initialize data"); err != nil {
		return err
	}
	if l.initData {
		return fail("initialize data", "already called")
	}
	if l.IsActionRequired(precice.ActionWriteInitialData) {
		return fail("initialize data", "action %q was not fulfilled", precice.ActionWriteInitialData)
	}
	l.initData = true
	l.e.exchange()
	return nil
}

func (l *Legacy) Advance(dt float64) (float64, error) {
	for _, action := range []string{precice.ActionWriteIterationCheckpoint, precice.ActionReadIterationCheckpoint} {
		if l.IsActionRequired(action) {
			return 0, fail("advance", "action %q was not fulfilled", action)
		}
	}
	if err := l.e.Advance(dt); err != nil {
		return 0, err
	}
	clear(l.fulfilled)
	return l.e.maxStep(), nil
}

func (l *Legacy) Finalize() error {
	return l.e.Finalize()
}

// GetDimensions returns the global dimension, or that of the first mesh for
// files without one.
func (l *Legacy) GetDimensions() int {
	if l.e.cfg.Dimensions > 0 {
		return l.e.cfg.Dimensions
	}
	if len(l.e.cfg.Meshes) > 0 {
		return l.e.cfg.Meshes[0].Dimensions
	}
	return 0
}

func (l *Legacy) IsCouplingOngoing() bool {
	return l.e.ongoing()
}

func (l *Legacy) IsTimeWindowComplete() bool {
	return l.e.windowComplete
}

func (l *Legacy) IsActionRequired(action string) bool {
	if l.fulfilled[action] {
		return false
	}
	switch action {
	case precice.ActionWriteIterationCheckpoint:
		return l.e.writeCheckpoint
	case precice.ActionReadIterationCheckpoint:
		return l.e.readCheckpoint
	case precice.ActionWriteInitialData:
		required, _ := l.e.RequiresInitialData()
		return required && l.e.initialized && !l.initData
	}
	return false
}

func (l *Legacy) MarkActionFulfilled(action string) error {
	if !l.IsActionRequired(action) {
		return fail("mark action fulfilled", "action %q is not required", action)
	}
	l.fulfilled[action] = true
	return nil
}

func (l *Legacy) HasMesh(mesh string) bool {
	return l.e.HasMesh(mesh)
}

func (l *Legacy) GetMeshID(mesh string) (int, error) {
	for id, name := range l.meshes {
		if name == mesh && l.e.HasMesh(mesh) {
			return id, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseEngine, "mesh", mesh)
}

func (l *Legacy) HasData(data string, meshID int) bool {
	_, err := l.GetDataID(data, meshID)
	return err == nil
}

func (l *Legacy) GetDataID(data string, meshID int) (int, error) {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return 0, err
	}
	for id, ref := range l.data {
		if ref.mesh == mesh && ref.name == data && l.e.HasData(mesh, data) {
			return id, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseEngine, "data", data)
}

func (l *Legacy) IsMeshConnectivityRequired(meshID int) bool {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return false
	}
	required, _ := l.e.RequiresMeshConnectivityFor(mesh)
	return required
}

func (l *Legacy) IsGradientDataRequired(dataID int) bool {
	ref, err := l.dataRef(dataID)
	if err != nil {
		return false
	}
	required, _ := l.e.RequiresGradientDataFor(ref.mesh, ref.name)
	return required
}

func (l *Legacy) SetMeshVertex(meshID int, position []float64) (int, error) {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return 0, err
	}
	return l.e.SetMeshVertex(mesh, position)
}

func (l *Legacy) SetMeshVertices(meshID int, positions []float64, ids []int) error {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return err
	}
	return l.e.SetMeshVertices(mesh, positions, ids)
}

func (l *Legacy) GetMeshVertexSize(meshID int) (int, error) {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return 0, err
	}
	return l.e.GetMeshVertexSize(mesh)
}

func (l *Legacy) SetMeshElements(meshID int, kind precice.ElementKind, vertices []int) error {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return err
	}
	return l.e.SetMeshElements(mesh, kind, vertices)
}

func (l *Legacy) SetMeshAccessRegion(meshID int, bbox []float64) error {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return err
	}
	return l.e.SetMeshAccessRegion(mesh, bbox)
}

func (l *Legacy) GetMeshVerticesAndIDs(meshID int, ids []int, coords []float64) error {
	mesh, err := l.meshName(meshID)
	if err != nil {
		return err
	}
	return l.e.GetMeshVertexIDsAndCoordinates(mesh, ids, coords)
}

func (l *Legacy) WriteBlockScalarData(dataID int, ids []int, values []float64) error {
	ref, err := l.block("write block scalar data", dataID, false)
	if err != nil {
		return err
	}
	return l.e.WriteData(ref.mesh, ref.name, ids, values)
}

func (l *Legacy) WriteBlockVectorData(dataID int, ids []int, values []float64) error {
	ref, err := l.block("write block vector data", dataID, true)
	if err != nil {
		return err
	}
	return l.e.WriteData(ref.mesh, ref.name, ids, values)
}

func (l *Legacy) ReadBlockScalarData(dataID int, ids []int, values []float64) error {
	ref, err := l.block("read block scalar data", dataID, false)
	if err != nil {
		return err
	}
	return l.e.ReadData(ref.mesh, ref.name, ids, 0, values)
}

func (l *Legacy) ReadBlockVectorData(dataID int, ids []int, values []float64) error {
	ref, err := l.block("read block vector data", dataID, true)
	if err != nil {
		return err
	}
	return l.e.ReadData(ref.mesh, ref.name, ids, 0, values)
}

func (l *Legacy) WriteBlockScalarGradientData(dataID int, ids []int, gradients []float64) error {
	ref, err := l.block("write block scalar gradient data", dataID, false)
	if err != nil {
		return err
	}
	return l.e.WriteGradientData(ref.mesh, ref.name, ids, gradients)
}

func (l *Legacy) WriteBlockVectorGradientData(dataID int, ids []int, gradients []float64) error {
	ref, err := l.block("write block vector gradient data", dataID, true)
	if err != nil {
		return err
	}
	return l.e.WriteGradientData(ref.mesh, ref.name, ids, gradients)
}

func (l *Legacy) VersionInformation() string {
	return l.e.VersionInformation()
}

func (l *Legacy) meshName(id int) (string, error) {
	if id < 0 || id >= len(l.meshes) || !l.e.HasMesh(l.meshes[id]) {
		return "", errors.New(errors.PhaseEngine, errors.KindNotFound).
			Value(id).
			Detail("mesh id %d not found", id).
			Build()
	}
	return l.meshes[id], nil
}

func (l *Legacy) dataRef(id int) (dataRef, error) {
	if id < 0 || id >= len(l.data) || !l.e.HasData(l.data[id].mesh, l.data[id].name) {
		return dataRef{}, errors.New(errors.PhaseEngine, errors.KindNotFound).
			Value(id).
			Detail("data id %d not found", id).
			Build()
	}
	return l.data[id], nil
}

func (l *Legacy) block(op string, dataID int, vector bool) (dataRef, error) {
	ref, err := l.dataRef(dataID)
	if err != nil {
		return dataRef{}, err
	}
	dims, _ := l.e.DataDimensions(ref.mesh, ref.name)
	if (dims > 1) != vector {
		return dataRef{}, fail(op, "data %q on mesh %q has %d components", ref.name, ref.mesh, dims)
	}
	return ref, nil
}
