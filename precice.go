package precice

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/wippyai/precice-go/errors"
)

// Version of the bindings. The major version follows the preCICE API generation.
const Version = "3.1.0"

// Checkpoint action tokens of the v2 protocol.
const (
	ActionWriteIterationCheckpoint = "write-iteration-checkpoint"
	ActionReadIterationCheckpoint  = "read-iteration-checkpoint"
	ActionWriteInitialData         = "write-initial-data"
)

// Protocol identifies an engine API generation.
type Protocol uint8

const (
	// ProtocolV3 addresses meshes and data by name and signals checkpoints
	// through boolean queries.
	ProtocolV3 Protocol = iota
	// ProtocolV2 addresses meshes and data by integer ids fetched once and
	// signals checkpoints through action markers.
	ProtocolV2
)

func (p Protocol) String() string {
	switch p {
	case ProtocolV3:
		return "v3"
	case ProtocolV2:
		return "v2"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// ParseProtocol accepts "v3", "3", "v2" and "2".
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v3", "3":
		return ProtocolV3, nil
	case "v2", "2":
		return ProtocolV2, nil
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown protocol %q", s))
}

// Communicator is an opaque parallel-process communicator handle (for example
// a pointer to an MPI_Comm). It is handed to the engine unmodified.
type Communicator unsafe.Pointer

// Options are the construction arguments of a participant.
type Options struct {
	Communicator      Communicator
	ParticipantName   string
	ConfigurationPath string
	ProcessIndex      int
	ProcessSize       int
}

// Validate checks the arguments that do not need the engine.
func (o Options) Validate() error {
	if o.ParticipantName == "" {
		return errors.InvalidInput(errors.PhaseConfig, "participant name is empty")
	}
	if o.ConfigurationPath == "" {
		return errors.InvalidInput(errors.PhaseConfig, "configuration path is empty")
	}
	if o.ProcessSize < 1 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("process size %d must be at least 1", o.ProcessSize))
	}
	if o.ProcessIndex < 0 || o.ProcessIndex >= o.ProcessSize {
		return errors.OutOfBounds(errors.PhaseConfig, []string{"process_index"}, o.ProcessIndex, o.ProcessSize)
	}
	return nil
}

// ElementKind names a mesh connectivity element.
type ElementKind uint8

const (
	ElementEdge ElementKind = iota
	ElementTriangle
	ElementQuad
	ElementTetrahedron
)

// Width is the number of vertex ids per element.
func (k ElementKind) Width() int {
	switch k {
	case ElementEdge:
		return 2
	case ElementTriangle:
		return 3
	default:
		return 4
	}
}

func (k ElementKind) String() string {
	switch k {
	case ElementEdge:
		return "edge"
	case ElementTriangle:
		return "triangle"
	case ElementQuad:
		return "quad"
	case ElementTetrahedron:
		return "tetrahedron"
	default:
		return fmt.Sprintf("element(%d)", uint8(k))
	}
}

// Engine is the current (v3) native coupling engine contract.
//
// All buffers are dense, row-major and owned by the caller. Output buffers
// (ids, values, coordinates) are preallocated to their exact length.
// Implementations must not retain any slice after returning.
type Engine interface {
	Initialize() error
	Advance(dt float64) error
	Finalize() error

	IsCouplingOngoing() (bool, error)
	IsTimeWindowComplete() (bool, error)
	GetMaxTimeStepSize() (float64, error)
	RequiresInitialData() (bool, error)
	RequiresWritingCheckpoint() (bool, error)
	RequiresReadingCheckpoint() (bool, error)

	HasMesh(mesh string) bool
	HasData(mesh, data string) bool
	GetMeshDimensions(mesh string) (int, error)
	GetDataDimensions(mesh, data string) (int, error)
	RequiresMeshConnectivityFor(mesh string) (bool, error)
	RequiresGradientDataFor(mesh, data string) (bool, error)

	SetMeshVertex(mesh string, position []float64) (int, error)
	SetMeshVertices(mesh string, positions []float64, ids []int) error
	GetMeshVertexSize(mesh string) (int, error)
	SetMeshElements(mesh string, kind ElementKind, vertices []int) error
	SetMeshAccessRegion(mesh string, boundingBox []float64) error
	GetMeshVertexIDsAndCoordinates(mesh string, ids []int, coordinates []float64) error

	WriteData(mesh, data string, ids []int, values []float64) error
	ReadData(mesh, data string, ids []int, relativeReadTime float64, values []float64) error
	WriteGradientData(mesh, data string, ids []int, gradients []float64) error

	VersionInformation() string
}

// LegacyEngine is the v2 engine contract: integer ids fetched once per mesh
// and data, a single global spatial dimension, and checkpoint signaling via
// action markers that must be fulfilled.
type LegacyEngine interface {
	Initialize() (float64, error)
	InitializeData() error
	Advance(dt float64) (float64, error)
	Finalize() error

	GetDimensions() int
	IsCouplingOngoing() bool
	IsTimeWindowComplete() bool
	IsActionRequired(action string) bool
	MarkActionFulfilled(action string) error

	HasMesh(mesh string) bool
	GetMeshID(mesh string) (int, error)
	HasData(data string, meshID int) bool
	GetDataID(data string, meshID int) (int, error)
	IsMeshConnectivityRequired(meshID int) bool
	IsGradientDataRequired(dataID int) bool

	SetMeshVertex(meshID int, position []float64) (int, error)
	SetMeshVertices(meshID int, positions []float64, ids []int) error
	GetMeshVertexSize(meshID int) (int, error)
	SetMeshElements(meshID int, kind ElementKind, vertices []int) error
	SetMeshAccessRegion(meshID int, boundingBox []float64) error
	GetMeshVerticesAndIDs(meshID int, ids []int, coordinates []float64) error

	WriteBlockScalarData(dataID int, ids []int, values []float64) error
	WriteBlockVectorData(dataID int, ids []int, values []float64) error
	ReadBlockScalarData(dataID int, ids []int, values []float64) error
	ReadBlockVectorData(dataID int, ids []int, values []float64) error
	WriteBlockScalarGradientData(dataID int, ids []int, gradients []float64) error
	WriteBlockVectorGradientData(dataID int, ids []int, gradients []float64) error

	VersionInformation() string
}
