// Package participant implements the coupling façade: one Participant per
// process wraps an engine, tracks the lifecycle and normalizes caller data.
//
// # Lifecycle
//
//	Uninitialized --Initialize--> Initialized --Finalize--> Finalized
//	      |                                                    ^
//	      +-----------------------Finalize---------------------+
//
// Initialize needs vertices registered on at least one mesh (or an access
// region on a received mesh). Data may be written before Initialize (initial
// data) but read only after. Nothing but VersionInformation is accepted once
// Finalized; such calls fail with a protocol_state error.
//
// # Data calls
//
// Every data operation runs the same pipeline:
//
//  1. lifecycle check
//  2. normalize ids and values (normalize.Flatten, normalize.FlattenIndices)
//  3. resolve mesh and data names (resolver.Resolver)
//  4. check the per-vertex width W against the data dimension
//  5. check vertex ids against the mesh's vertex table
//  6. forward to the engine
//
// Steps 1 to 5 fail before the engine is called. Engine failures are returned
// unchanged when they are already *errors.Error values and wrapped with
// errors.Engine otherwise.
//
// W is the data dimension for values and the data dimension times the mesh
// dimension for gradients. Reads return an Array of shape [n][W] for vector
// data and [n] for scalar data; the single-vertex ReadValue returns [W].
//
// A Participant is not safe for concurrent use.
package participant
