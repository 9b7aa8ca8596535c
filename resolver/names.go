package resolver

import (
	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// Declarations is the part of an engine that answers configuration queries.
type Declarations interface {
	HasMesh(mesh string) bool
	HasData(mesh, data string) bool
	GetMeshDimensions(mesh string) (int, error)
	GetDataDimensions(mesh, data string) (int, error)
}

// Names resolves handles for the name-based protocol.
type Names struct {
	decl   Declarations
	meshes map[string]Mesh
	data   map[dataKey]Data
}

type dataKey struct {
	mesh, data string
}

// NewNames creates a name resolver backed by decl.
func NewNames(decl Declarations) *Names {
	return &Names{
		decl:   decl,
		meshes: make(map[string]Mesh),
		data:   make(map[dataKey]Data),
	}
}

func (n *Names) Protocol() precice.Protocol {
	return precice.ProtocolV3
}

func (n *Names) Mesh(name string) (Mesh, error) {
	if m, ok := n.meshes[name]; ok {
		return m, nil
	}
	if !n.decl.HasMesh(name) {
		return Mesh{}, errors.NotFound(errors.PhaseResolve, "mesh", name)
	}
	dims, err := n.decl.GetMeshDimensions(name)
	if err != nil {
		return Mesh{}, errors.Engine("get mesh dimensions", err)
	}
	m := Mesh{Name: name, ID: NoID, Dimensions: dims}
	n.meshes[name] = m
	return m, nil
}

func (n *Names) Data(mesh, data string) (Data, error) {
	key := dataKey{mesh, data}
	if d, ok := n.data[key]; ok {
		return d, nil
	}
	m, err := n.Mesh(mesh)
	if err != nil {
		return Data{}, err
	}
	if !n.decl.HasData(mesh, data) {
		return Data{}, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(mesh).
			Value(data).
			Detail("data %q not found on mesh %q", data, mesh).
			Build()
	}
	dims, err := n.decl.GetDataDimensions(mesh, data)
	if err != nil {
		return Data{}, errors.Engine("get data dimensions", err)
	}
	d := Data{Name: data, Mesh: m, ID: NoID, Dimensions: dims}
	n.data[key] = d
	return d, nil
}
