// Package resolver translates mesh and data names into the handle form an
// engine protocol generation requires.
//
// Two variants implement Resolver:
//
//	Names  v3: names are passed on every call; existence and dimensions are
//	           checked against the engine once and cached
//	IDs    v2: integer mesh/data ids are fetched once and cached
//
// The variant is chosen when a participant is constructed: engines that
// implement Provider supply their own resolver, all others get Names.
// Resolution of an undeclared name fails with a not_found error.
// Resolvers are not safe for concurrent use.
package resolver

import (
	precice "github.com/wippyai/precice-go"
)

// NoID marks a handle of a name-based protocol.
const NoID = -1

// Mesh is a resolved mesh handle.
type Mesh struct {
	Name       string
	ID         int
	Dimensions int
}

// Data is a resolved data handle. Dimensions is 1 for scalar data and the
// mesh dimension for vector data.
type Data struct {
	Name       string
	Mesh       Mesh
	ID         int
	Dimensions int
}

// Vector reports whether the data has more than one component.
func (d Data) Vector() bool {
	return d.Dimensions > 1
}

// GradientWidth is the number of values per vertex in a gradient write.
func (d Data) GradientWidth() int {
	return d.Dimensions * d.Mesh.Dimensions
}

// Resolver maps names to handles.
type Resolver interface {
	Protocol() precice.Protocol
	Mesh(name string) (Mesh, error)
	Data(mesh, data string) (Data, error)
}

// Provider is implemented by engines that bring their own Resolver.
type Provider interface {
	Resolver() Resolver
}

// For returns the resolver an engine provides, or a Names resolver over it.
func For(eng precice.Engine) Resolver {
	if p, ok := eng.(Provider); ok {
		return p.Resolver()
	}
	return NewNames(eng)
}
