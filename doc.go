// Package precice provides Go bindings for the preCICE multi-physics coupling
// library.
//
// The bindings contain no coupling algorithm. They normalize caller data into
// the dense buffers the engine expects, resolve mesh and data names, enforce
// the participant lifecycle and forward every call to an Engine.
//
// # Architecture Overview
//
//	precice/             Root package with the Engine and LegacyEngine boundaries
//	├── participant/     Coupling façade: lifecycle, vertices, data exchange
//	├── normalize/       Caller data to flat row-major buffers and back
//	├── resolver/        Name (v3) and id-cache (v2) identifier resolution
//	├── engine/
//	│   ├── native/      cgo binding to libprecice (build tag "precice")
//	│   ├── legacy/      v2 id/action-marker engines behind the v3 interface
//	│   ├── loopback/    In-process engine simulating a coupling scheme
//	│   └── echo/        Echo engine used as a test double
//	├── driver/          The coupling loop with caller-owned checkpoints
//	├── kernel/          Solver compute kernels (Go or WebAssembly)
//	├── config/          Driver settings from YAML and environment
//	├── metrics/         Prometheus collectors
//	└── errors/          Structured error types
//
// # Quick Start
//
//	eng, err := loopback.New(precice.Options{
//	    ParticipantName:   "SolverOne",
//	    ConfigurationPath: "precice-config.xml",
//	    ProcessSize:       1,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := participant.New(eng)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := p.SetMeshVertices("MeshOne", [][]float64{{0, 0, 0}, {1, 1, 1}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := p.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for p.IsCouplingOngoing() {
//	    dt, _ := p.GetMaxTimeStepSize()
//	    values, _ := p.ReadData("MeshOne", "dataTwo", ids, dt)
//	    _ = p.WriteData("MeshOne", "dataOne", ids, values.Rows())
//	    _ = p.Advance(ctx, dt)
//	}
//	p.Finalize(ctx)
//
// # Thread Safety
//
// A Participant is NOT safe for concurrent use. Exactly one Participant lives
// per process and all calls are serialized by the caller's control flow.
// Multi-process coordination is the engine's business; the optional
// Communicator handle is passed to it unmodified.
package precice
