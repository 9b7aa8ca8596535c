package participant

import (
	"strconv"

	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/normalize"
)

// SetMeshVertex registers one vertex and returns its id. position holds
// exactly the mesh dimension coordinates.
func (p *Participant) SetMeshVertex(mesh string, position any) (int, error) {
	const op = "set_mesh_vertex"
	if err := p.usable(op); err != nil {
		return 0, err
	}
	pos, err := normalize.Flatten(position)
	if err != nil {
		return 0, p.fail(op, err)
	}
	m, err := p.resolve.Mesh(mesh)
	if err != nil {
		return 0, p.fail(op, err)
	}
	if pos.Rank() != 1 || pos.Len() != m.Dimensions {
		return 0, p.fail(op, errors.New(errors.PhaseNormalize, errors.KindShape).
			Path(mesh, "position").
			Want(strconv.Itoa(m.Dimensions)+" coordinates").
			Value(pos.Shape).
			Detail("position has shape %v", pos.Shape).
			Build())
	}

	id, err := p.eng.SetMeshVertex(mesh, pos.Data)
	if err != nil {
		return 0, p.fail(op, engineError(op, err))
	}
	p.track(mesh, id+1)
	p.record(op, nil)
	return id, nil
}

// SetMeshVertices registers n vertices given as [n][dim] (or n*dim flat)
// coordinates and returns their ids in input order.
func (p *Participant) SetMeshVertices(mesh string, positions any) ([]int, error) {
	const op = "set_mesh_vertices"
	if err := p.usable(op); err != nil {
		return nil, err
	}
	pos, err := normalize.Flatten(positions)
	if err != nil {
		return nil, p.fail(op, err)
	}
	m, err := p.resolve.Mesh(mesh)
	if err != nil {
		return nil, p.fail(op, err)
	}
	n, err := pos.Expect("positions", m.Dimensions)
	if err != nil {
		return nil, p.fail(op, err)
	}

	ids := make([]int, n)
	if err := p.eng.SetMeshVertices(mesh, pos.Data, ids); err != nil {
		return nil, p.fail(op, engineError(op, err))
	}
	count := 0
	for _, id := range ids {
		count = max(count, id+1)
	}
	p.track(mesh, count)
	p.record(op, nil)
	p.log.Debug("registered vertices", zap.String("mesh", mesh), zap.Int("count", n))
	return ids, nil
}

// GetMeshVertexSize returns the number of vertices the engine knows on mesh.
func (p *Participant) GetMeshVertexSize(mesh string) (int, error) {
	const op = "get_mesh_vertex_size"
	if err := p.usable(op); err != nil {
		return 0, err
	}
	if _, err := p.resolve.Mesh(mesh); err != nil {
		return 0, p.fail(op, err)
	}
	n, err := p.eng.GetMeshVertexSize(mesh)
	if err != nil {
		return 0, p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return n, nil
}

// SetMeshEdge connects two vertices.
func (p *Participant) SetMeshEdge(mesh string, first, second int) error {
	return p.setElements("set_mesh_edge", mesh, precice.ElementEdge, []int{first, second})
}

// SetMeshEdges adds edges given as [n][2] vertex ids.
func (p *Participant) SetMeshEdges(mesh string, vertices any) error {
	return p.setElementsFrom("set_mesh_edges", mesh, precice.ElementEdge, vertices)
}

// SetMeshTriangle adds one triangle.
func (p *Participant) SetMeshTriangle(mesh string, first, second, third int) error {
	return p.setElements("set_mesh_triangle", mesh, precice.ElementTriangle, []int{first, second, third})
}

// SetMeshTriangles adds triangles given as [n][3] vertex ids.
func (p *Participant) SetMeshTriangles(mesh string, vertices any) error {
	return p.setElementsFrom("set_mesh_triangles", mesh, precice.ElementTriangle, vertices)
}

// SetMeshQuad adds one quad.
func (p *Participant) SetMeshQuad(mesh string, first, second, third, fourth int) error {
	return p.setElements("set_mesh_quad", mesh, precice.ElementQuad, []int{first, second, third, fourth})
}

// SetMeshQuads adds quads given as [n][4] vertex ids.
func (p *Participant) SetMeshQuads(mesh string, vertices any) error {
	return p.setElementsFrom("set_mesh_quads", mesh, precice.ElementQuad, vertices)
}

// SetMeshTetrahedron adds one tetrahedron.
func (p *Participant) SetMeshTetrahedron(mesh string, first, second, third, fourth int) error {
	return p.setElements("set_mesh_tetrahedron", mesh, precice.ElementTetrahedron, []int{first, second, third, fourth})
}

// SetMeshTetrahedra adds tetrahedra given as [n][4] vertex ids.
func (p *Participant) SetMeshTetrahedra(mesh string, vertices any) error {
	return p.setElementsFrom("set_mesh_tetrahedra", mesh, precice.ElementTetrahedron, vertices)
}

func (p *Participant) setElementsFrom(op, mesh string, kind precice.ElementKind, vertices any) error {
	if err := p.usable(op); err != nil {
		return err
	}
	idx, err := normalize.FlattenIndices(vertices)
	if err != nil {
		return p.fail(op, err)
	}
	if _, err := idx.Expect("vertices", kind.Width()); err != nil {
		return p.fail(op, err)
	}
	return p.setElements(op, mesh, kind, idx.Data)
}

func (p *Participant) setElements(op, mesh string, kind precice.ElementKind, vertices []int) error {
	if err := p.usable(op); err != nil {
		return err
	}
	if _, err := p.resolve.Mesh(mesh); err != nil {
		return p.fail(op, err)
	}
	if err := p.checkIDs(op, mesh, vertices); err != nil {
		return p.fail(op, err)
	}
	if err := p.eng.SetMeshElements(mesh, kind, vertices); err != nil {
		return p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return nil
}

// SetMeshAccessRegion restricts a received mesh to a bounding box given as
// [min0, max0, min1, max1, ...].
func (p *Participant) SetMeshAccessRegion(mesh string, bbox any) error {
	const op = "set_mesh_access_region"
	if err := p.usable(op); err != nil {
		return err
	}
	box, err := normalize.Flatten(bbox)
	if err != nil {
		return p.fail(op, err)
	}
	m, err := p.resolve.Mesh(mesh)
	if err != nil {
		return p.fail(op, err)
	}
	if box.Len() != 2*m.Dimensions {
		return p.fail(op, errors.New(errors.PhaseNormalize, errors.KindShape).
			Path(mesh, "bounding_box").
			Want(strconv.Itoa(2*m.Dimensions)+" values").
			Value(box.Len()).
			Build())
	}
	if err := p.eng.SetMeshAccessRegion(mesh, box.Data); err != nil {
		return p.fail(op, engineError(op, err))
	}
	p.regions[mesh] = true
	p.record(op, nil)
	return nil
}

// GetMeshVertexIDsAndCoordinates returns the ids and [n][dim] coordinates of
// the vertices of a received mesh inside its access region.
func (p *Participant) GetMeshVertexIDsAndCoordinates(mesh string) ([]int, normalize.Array, error) {
	const op = "get_mesh_vertex_ids_and_coordinates"
	if err := p.usable(op); err != nil {
		return nil, normalize.Array{}, err
	}
	m, err := p.resolve.Mesh(mesh)
	if err != nil {
		return nil, normalize.Array{}, p.fail(op, err)
	}
	n, err := p.eng.GetMeshVertexSize(mesh)
	if err != nil {
		return nil, normalize.Array{}, p.fail(op, engineError(op, err))
	}
	ids := make([]int, n)
	coords := make([]float64, n*m.Dimensions)
	if err := p.eng.GetMeshVertexIDsAndCoordinates(mesh, ids, coords); err != nil {
		return nil, normalize.Array{}, p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return ids, normalize.FromFlat(coords, n, m.Dimensions), nil
}

func (p *Participant) track(mesh string, count int) {
	if count > p.vertices[mesh] {
		p.vertices[mesh] = count
	} else if _, ok := p.vertices[mesh]; !ok {
		p.vertices[mesh] = count
	}
	p.metrics.Vertices(mesh, p.vertices[mesh])
}

// checkIDs validates vertex ids against the vertices registered through this
// participant, or the engine's count for meshes registered elsewhere.
func (p *Participant) checkIDs(op, mesh string, ids []int) error {
	count, ok := p.vertices[mesh]
	if !ok {
		n, err := p.eng.GetMeshVertexSize(mesh)
		if err != nil {
			return engineError(op, err)
		}
		count = n
	}
	for i, id := range ids {
		if id < 0 || id >= count {
			return errors.New(errors.PhaseNormalize, errors.KindOutOfBounds).
				Path(mesh, strconv.Itoa(i)).
				Value(id).
				Detail("vertex id %d is not one of the %d vertices of mesh %q", id, count, mesh).
				Build()
		}
	}
	return nil
}
