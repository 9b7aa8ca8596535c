//go:build precice && cgo

package native

/*
#cgo pkg-config: libprecice
#include <stdlib.h>
#include "precice/preciceC.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// Available reports whether the binding was compiled in.
const Available = true

var (
	activeMu sync.Mutex
	active   bool
)

// Engine forwards every call to libprecice.
//
// HasMesh and HasData always report true: the C API has no existence query,
// so an undeclared name is never reported as not found and libprecice aborts
// on the call that uses it instead.
type Engine struct {
	strings   map[string]*C.char
	finalized bool
}

var _ precice.Engine = (*Engine)(nil)

// New creates the process's libprecice participant.
func New(opts precice.Options) (precice.Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	activeMu.Lock()
	defer activeMu.Unlock()
	if active {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngine).
			Detail("libprecice supports one participant per process").
			Build()
	}

	name := C.CString(opts.ParticipantName)
	defer C.free(unsafe.Pointer(name))
	config := C.CString(opts.ConfigurationPath)
	defer C.free(unsafe.Pointer(config))

	if opts.Communicator != nil {
		C.precicec_createParticipant_withCommunicator(name, config,
			C.int(opts.ProcessIndex), C.int(opts.ProcessSize), unsafe.Pointer(opts.Communicator))
	} else {
		C.precicec_createParticipant(name, config, C.int(opts.ProcessIndex), C.int(opts.ProcessSize))
	}
	active = true

	Logger().Info("libprecice participant created",
		zap.String("participant", opts.ParticipantName),
		zap.String("config", opts.ConfigurationPath),
		zap.Bool("communicator", opts.Communicator != nil))
	return &Engine{strings: make(map[string]*C.char)}, nil
}

// cstr interns names; libprecice is called with the same few names in every
// time step.
func (e *Engine) cstr(s string) *C.char {
	if c, ok := e.strings[s]; ok {
		return c
	}
	c := C.CString(s)
	e.strings[s] = c
	return c
}

func (e *Engine) Initialize() error {
	C.precicec_initialize()
	return nil
}

func (e *Engine) Advance(dt float64) error {
	C.precicec_advance(C.double(dt))
	return nil
}

func (e *Engine) Finalize() error {
	if e.finalized {
		return errors.New(errors.PhaseEngine, errors.KindEngine).Detail("already finalized").Build()
	}
	C.precicec_finalize()
	e.finalized = true
	for _, c := range e.strings {
		C.free(unsafe.Pointer(c))
	}
	clear(e.strings)

	activeMu.Lock()
	active = false
	activeMu.Unlock()
	return nil
}

func (e *Engine) IsCouplingOngoing() (bool, error) {
	return C.precicec_isCouplingOngoing() != 0, nil
}

func (e *Engine) IsTimeWindowComplete() (bool, error) {
	return C.precicec_isTimeWindowComplete() != 0, nil
}

func (e *Engine) GetMaxTimeStepSize() (float64, error) {
	return float64(C.precicec_getMaxTimeStepSize()), nil
}

func (e *Engine) RequiresInitialData() (bool, error) {
	return C.precicec_requiresInitialData() != 0, nil
}

func (e *Engine) RequiresWritingCheckpoint() (bool, error) {
	return C.precicec_requiresWritingCheckpoint() != 0, nil
}

func (e *Engine) RequiresReadingCheckpoint() (bool, error) {
	return C.precicec_requiresReadingCheckpoint() != 0, nil
}

func (e *Engine) HasMesh(string) bool         { return true }
func (e *Engine) HasData(string, string) bool { return true }

func (e *Engine) GetMeshDimensions(mesh string) (int, error) {
	return int(C.precicec_getMeshDimensions(e.cstr(mesh))), nil
}

func (e *Engine) GetDataDimensions(mesh, data string) (int, error) {
	return int(C.precicec_getDataDimensions(e.cstr(mesh), e.cstr(data))), nil
}

func (e *Engine) RequiresMeshConnectivityFor(mesh string) (bool, error) {
	return C.precicec_requiresMeshConnectivityFor(e.cstr(mesh)) != 0, nil
}

func (e *Engine) RequiresGradientDataFor(mesh, data string) (bool, error) {
	return C.precicec_requiresGradientDataFor(e.cstr(mesh), e.cstr(data)) != 0, nil
}

func (e *Engine) SetMeshVertex(mesh string, position []float64) (int, error) {
	return int(C.precicec_setMeshVertex(e.cstr(mesh), doubles(position))), nil
}

func (e *Engine) SetMeshVertices(mesh string, positions []float64, ids []int) error {
	out := make([]C.int, len(ids))
	C.precicec_setMeshVertices(e.cstr(mesh), C.int(len(ids)), doubles(positions), ints(out))
	for i, id := range out {
		ids[i] = int(id)
	}
	return nil
}

func (e *Engine) GetMeshVertexSize(mesh string) (int, error) {
	return int(C.precicec_getMeshVertexSize(e.cstr(mesh))), nil
}

func (e *Engine) SetMeshElements(mesh string, kind precice.ElementKind, vertices []int) error {
	in := toC(vertices)
	size := C.int(len(vertices) / kind.Width())
	switch kind {
	case precice.ElementEdge:
		C.precicec_setMeshEdges(e.cstr(mesh), size, ints(in))
	case precice.ElementTriangle:
		C.precicec_setMeshTriangles(e.cstr(mesh), size, ints(in))
	case precice.ElementQuad:
		C.precicec_setMeshQuads(e.cstr(mesh), size, ints(in))
	case precice.ElementTetrahedron:
		C.precicec_setMeshTetrahedra(e.cstr(mesh), size, ints(in))
	default:
		return errors.Unsupported(errors.PhaseEngine, "element kind "+kind.String())
	}
	return nil
}

func (e *Engine) SetMeshAccessRegion(mesh string, bbox []float64) error {
	C.precicec_setMeshAccessRegion(e.cstr(mesh), doubles(bbox))
	return nil
}

func (e *Engine) GetMeshVertexIDsAndCoordinates(mesh string, ids []int, coords []float64) error {
	out := make([]C.int, len(ids))
	C.precicec_getMeshVertexIDsAndCoordinates(e.cstr(mesh), C.int(len(ids)), ints(out), doubles(coords))
	for i, id := range out {
		ids[i] = int(id)
	}
	return nil
}

func (e *Engine) WriteData(mesh, data string, ids []int, values []float64) error {
	in := toC(ids)
	C.precicec_writeData(e.cstr(mesh), e.cstr(data), C.int(len(ids)), ints(in), doubles(values))
	return nil
}

func (e *Engine) ReadData(mesh, data string, ids []int, relativeReadTime float64, values []float64) error {
	in := toC(ids)
	C.precicec_readData(e.cstr(mesh), e.cstr(data), C.int(len(ids)), ints(in),
		C.double(relativeReadTime), doubles(values))
	return nil
}

func (e *Engine) WriteGradientData(mesh, data string, ids []int, gradients []float64) error {
	in := toC(ids)
	C.precicec_writeGradientData(e.cstr(mesh), e.cstr(data), C.int(len(ids)), ints(in), doubles(gradients))
	return nil
}

func (e *Engine) VersionInformation() string {
	return C.GoString(C.precicec_getVersionInformation())
}

func doubles(s []float64) *C.double {
	if len(s) == 0 {
		return nil
	}
	return (*C.double)(unsafe.Pointer(&s[0]))
}

func ints(s []C.int) *C.int {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

func toC(s []int) []C.int {
	out := make([]C.int, len(s))
	for i, v := range s {
		out[i] = C.int(v)
	}
	return out
}
