package driver

// State is the solver state saved at a checkpoint.
type State struct {
	Time   float64
	Values []float64
}

// Checkpointer stores the state the loop rolls back to when an implicit
// scheme repeats a time window. The caller owns the storage.
type Checkpointer interface {
	Save(State)
	Restore() State
}

// Memory keeps the last saved state in memory.
type Memory struct {
	state State
	Saves int
	Loads int
}

func (m *Memory) Save(s State) {
	m.state = State{Time: s.Time, Values: append([]float64(nil), s.Values...)}
	m.Saves++
}

func (m *Memory) Restore() State {
	m.Loads++
	return State{Time: m.state.Time, Values: append([]float64(nil), m.state.Values...)}
}
