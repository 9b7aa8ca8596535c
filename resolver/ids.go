package resolver

import (
	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// Catalog is the part of a v2 engine that hands out ids.
type Catalog interface {
	GetDimensions() int
	HasMesh(mesh string) bool
	GetMeshID(mesh string) (int, error)
	HasData(data string, meshID int) bool
	GetDataID(data string, meshID int) (int, error)
}

// DataDimensions reports the component count of a data field. The v2 engine
// interface cannot answer this, so it comes from the configuration.
type DataDimensions func(mesh, data string) (int, bool)

// IDs resolves and caches integer handles for the v2 protocol.
type IDs struct {
	catalog Catalog
	dims    DataDimensions
	meshes  map[string]Mesh
	data    map[dataKey]Data
}

// NewIDs creates an id-cache resolver. A nil dims treats every field as
// vector data of the global dimension.
func NewIDs(catalog Catalog, dims DataDimensions) *IDs {
	return &IDs{
		catalog: catalog,
		dims:    dims,
		meshes:  make(map[string]Mesh),
		data:    make(map[dataKey]Data),
	}
}

func (r *IDs) Protocol() precice.Protocol {
	return precice.ProtocolV2
}

func (r *IDs) Mesh(name string) (Mesh, error) {
	if m, ok := r.meshes[name]; ok {
		return m, nil
	}
	if !r.catalog.HasMesh(name) {
		return Mesh{}, errors.NotFound(errors.PhaseResolve, "mesh", name)
	}
	id, err := r.catalog.GetMeshID(name)
	if err != nil {
		return Mesh{}, errors.Engine("get mesh id", err)
	}
	m := Mesh{Name: name, ID: id, Dimensions: r.catalog.GetDimensions()}
	r.meshes[name] = m
	return m, nil
}

func (r *IDs) Data(mesh, data string) (Data, error) {
	key := dataKey{mesh, data}
	if d, ok := r.data[key]; ok {
		return d, nil
	}
	m, err := r.Mesh(mesh)
	if err != nil {
		return Data{}, err
	}
	if !r.catalog.HasData(data, m.ID) {
		return Data{}, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(mesh).
			Value(data).
			Detail("data %q not found on mesh %q", data, mesh).
			Build()
	}
	id, err := r.catalog.GetDataID(data, m.ID)
	if err != nil {
		return Data{}, errors.Engine("get data id", err)
	}

	dims := m.Dimensions
	if r.dims != nil {
		if d, ok := r.dims(mesh, data); ok {
			dims = d
		}
	}
	d := Data{Name: data, Mesh: m, ID: id, Dimensions: dims}
	r.data[key] = d
	return d, nil
}

// MeshByID returns a cached mesh handle by id.
func (r *IDs) MeshByID(id int) (Mesh, bool) {
	for _, m := range r.meshes {
		if m.ID == id {
			return m, true
		}
	}
	return Mesh{}, false
}
