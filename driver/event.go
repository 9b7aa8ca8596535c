package driver

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind identifies a point in the coupling loop.
type EventKind uint8

const (
	EventInitialized EventKind = iota + 1
	EventCheckpointSaved
	EventRead
	EventWritten
	EventAdvanced
	EventCheckpointRestored
	EventFinalized
)

func (k EventKind) String() string {
	switch k {
	case EventInitialized:
		return "initialized"
	case EventCheckpointSaved:
		return "checkpoint_saved"
	case EventRead:
		return "read"
	case EventWritten:
		return "written"
	case EventAdvanced:
		return "advanced"
	case EventCheckpointRestored:
		return "checkpoint_restored"
	case EventFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is emitted to the observer at every step of the loop.
type Event struct {
	Kind EventKind
	// Step counts Advance calls, including repeated iterations.
	Step int
	// Time is the solver time after the event.
	Time float64
	// DT is the step size of the current iteration.
	DT float64
	// Values is a copy of the data read or written, nil for other kinds.
	Values []float64
	RunID  uuid.UUID
}

// Observer receives events synchronously from the loop goroutine.
type Observer func(Event)
