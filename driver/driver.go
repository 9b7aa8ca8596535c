// Package driver runs the coupling loop of a single-mesh solver.
//
// Every iteration follows the same order:
//
//	RequiresWritingCheckpoint -> Save
//	ReadData at the next step size
//	kernel step, WriteData
//	Advance
//	RequiresReadingCheckpoint -> Restore
//
// Checkpoint storage belongs to the caller through Checkpointer; Memory is
// used when none is given.
package driver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/kernel"
	"github.com/wippyai/precice-go/participant"
)

// Plan names what the solver couples.
type Plan struct {
	Mesh      string
	ReadData  string
	WriteData string
	// Vertices holds the positions registered on Mesh, in any shape the
	// participant accepts.
	Vertices any
}

// Result summarizes a finished run.
type Result struct {
	RunID    uuid.UUID
	Steps    int
	Time     float64
	Saves    int
	Restores int
	// Values is the solver state after the last step, or the restored
	// state when that step was rolled back.
	Values []float64
}

// Option configures Run.
type Option func(*runner)

// WithCheckpointer sets where checkpoints are stored.
func WithCheckpointer(c Checkpointer) Option {
	return func(r *runner) { r.checkpoints = c }
}

// WithObserver receives every loop event.
func WithObserver(o Observer) Option {
	return func(r *runner) { r.observe = o }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *runner) { r.log = l }
}

// WithMaxSteps fails the run when coupling is still ongoing after n
// Advance calls. 0 means no limit.
func WithMaxSteps(n int) Option {
	return func(r *runner) { r.maxSteps = n }
}

type runner struct {
	p           *participant.Participant
	plan        Plan
	k           kernel.Kernel
	checkpoints Checkpointer
	observe     Observer
	log         *zap.Logger
	maxSteps    int

	ids    []int
	state  []float64
	rd, wd int
	res    Result
}

// DummyVertices returns n positions of dimension dims where every coordinate
// of vertex i is i.
func DummyVertices(n, dims int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, dims)
		for j := range out[i] {
			out[i][j] = float64(i)
		}
	}
	return out
}

// Run registers the plan's vertices, initializes p, steps k until coupling
// ends and finalizes p. A failure after Initialize still finalizes p.
func Run(ctx context.Context, p *participant.Participant, plan Plan, k kernel.Kernel, opts ...Option) (Result, error) {
	r := &runner{p: p, plan: plan, k: k}
	for _, opt := range opts {
		opt(r)
	}
	if r.checkpoints == nil {
		r.checkpoints = &Memory{}
	}
	if r.log == nil {
		r.log = Logger()
	}
	r.res.RunID = p.RunID()
	r.log = r.log.With(zap.String("participant", p.Name()), zap.String("mesh", plan.Mesh))

	if err := r.setup(ctx); err != nil {
		return r.res, err
	}
	if err := r.loop(ctx); err != nil {
		return r.res, multierr.Append(err, p.Finalize(context.WithoutCancel(ctx)))
	}
	if err := p.Finalize(ctx); err != nil {
		return r.res, err
	}
	r.emit(EventFinalized, 0, nil)
	r.log.Info("coupling finished",
		zap.Int("steps", r.res.Steps),
		zap.Float64("time", r.res.Time),
		zap.Int("restores", r.res.Restores))
	return r.res, nil
}

func (r *runner) setup(ctx context.Context) error {
	if r.plan.Mesh == "" || r.plan.ReadData == "" || r.plan.WriteData == "" {
		return errors.InvalidInput(errors.PhaseDriver, "plan needs a mesh, read data and write data")
	}
	if r.k == nil {
		return errors.InvalidInput(errors.PhaseDriver, "no kernel")
	}

	ids, err := r.p.SetMeshVertices(r.plan.Mesh, r.plan.Vertices)
	if err != nil {
		return err
	}
	r.ids = ids
	if r.rd, err = r.p.GetDataDimensions(r.plan.Mesh, r.plan.ReadData); err != nil {
		return err
	}
	if r.wd, err = r.p.GetDataDimensions(r.plan.Mesh, r.plan.WriteData); err != nil {
		return err
	}
	r.state = make([]float64, len(ids)*r.wd)

	initial, err := r.p.RequiresInitialData()
	if err != nil {
		return err
	}
	if initial {
		if err := r.p.WriteData(r.plan.Mesh, r.plan.WriteData, r.ids, r.state); err != nil {
			return err
		}
		r.emit(EventWritten, 0, r.state)
	}

	if err := r.p.Initialize(ctx); err != nil {
		return err
	}
	r.emit(EventInitialized, 0, nil)
	return nil
}

func (r *runner) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.PhaseDriver, errors.KindInvalidInput, err, "coupling loop canceled")
		}
		ongoing, err := r.p.IsCouplingOngoing()
		if err != nil {
			return err
		}
		if !ongoing {
			return nil
		}
		if r.maxSteps > 0 && r.res.Steps >= r.maxSteps {
			return errors.New(errors.PhaseDriver, errors.KindInvalidInput).
				Value(r.maxSteps).
				Detail("coupling still ongoing after %d steps", r.maxSteps).
				Build()
		}
		if err := r.iterate(ctx); err != nil {
			return err
		}
	}
}

func (r *runner) iterate(ctx context.Context) error {
	save, err := r.p.RequiresWritingCheckpoint()
	if err != nil {
		return err
	}
	if save {
		r.checkpoints.Save(State{Time: r.res.Time, Values: r.state})
		r.res.Saves++
		r.emit(EventCheckpointSaved, 0, nil)
	}

	dt, err := r.p.GetMaxTimeStepSize()
	if err != nil {
		return err
	}
	in, err := r.p.ReadData(r.plan.Mesh, r.plan.ReadData, r.ids, dt)
	if err != nil {
		return err
	}
	r.emit(EventRead, dt, in.Data)

	r.merge(in.Data)
	if err := r.k.Step(ctx, r.state); err != nil {
		return err
	}
	if err := r.p.WriteData(r.plan.Mesh, r.plan.WriteData, r.ids, r.state); err != nil {
		return err
	}
	r.res.Values = append(r.res.Values[:0], r.state...)
	r.emit(EventWritten, dt, r.state)

	if err := r.p.Advance(ctx, dt); err != nil {
		return err
	}
	r.res.Steps++
	r.res.Time += dt
	r.emit(EventAdvanced, dt, nil)

	restore, err := r.p.RequiresReadingCheckpoint()
	if err != nil {
		return err
	}
	if restore {
		s := r.checkpoints.Restore()
		r.res.Time = s.Time
		copy(r.state, s.Values)
		r.res.Values = append(r.res.Values[:0], r.state...)
		r.res.Restores++
		r.emit(EventCheckpointRestored, dt, nil)
	}
	return nil
}

// merge copies the components read into the matching components of the
// state. Components the read data lacks keep their value.
func (r *runner) merge(in []float64) {
	comps := min(r.rd, r.wd)
	for v := range r.ids {
		copy(r.state[v*r.wd:v*r.wd+comps], in[v*r.rd:v*r.rd+comps])
	}
}

func (r *runner) emit(kind EventKind, dt float64, values []float64) {
	r.log.Debug(kind.String(), zap.Int("step", r.res.Steps), zap.Float64("time", r.res.Time))
	if r.observe == nil {
		return
	}
	var cp []float64
	if values != nil {
		cp = append([]float64(nil), values...)
	}
	r.observe(Event{
		Kind:   kind,
		Step:   r.res.Steps,
		Time:   r.res.Time,
		DT:     dt,
		Values: cp,
		RunID:  r.res.RunID,
	})
}
