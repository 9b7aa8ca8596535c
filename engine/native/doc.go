// Package native binds the engine contract to libprecice through its C API
// (precice/preciceC.h, preCICE v3).
//
// The binding is compiled only with the precice build tag and cgo enabled:
//
//	go build -tags precice ./...
//
// libprecice is located through pkg-config. Other builds get a stub whose New
// reports an unsupported error, and Available is false.
//
// The C API keeps one participant per process, so at most one Engine exists
// at a time. libprecice validates names and call order itself and aborts the
// process on violations; HasMesh and HasData therefore report true and leave
// the check to the library.
package native
