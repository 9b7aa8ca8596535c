// Package engine selects a coupling engine backend by name.
//
// # Backends
//
//	loopback  in-process engine reading the XML configuration (default)
//	native    libprecice through cgo, needs -tags precice
//	echo      test double that reads back the last write
//
// Every backend speaks the current protocol. For protocol v2 the backend's
// legacy view is wrapped by engine/legacy, so the participant talks to an id
// based engine through the same precice.Engine interface:
//
//	eng, err := engine.Open(engine.Config{
//	    Backend:  "loopback",
//	    Protocol: precice.ProtocolV2,
//	    Options:  opts,
//	})
//
// Further backends are added with Register.
package engine
