package participant

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/metrics"
	"github.com/wippyai/precice-go/resolver"
)

const tracerName = "github.com/wippyai/precice-go/participant"

// State is the lifecycle position of a Participant.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Option configures a Participant.
type Option func(*Participant)

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Participant) { p.log = l }
}

// WithMetrics records calls on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Participant) { p.metrics = c }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Participant) { p.tracer = t }
}

// WithName sets the participant name used in logs and spans.
func WithName(name string) Option {
	return func(p *Participant) { p.name = name }
}

// WithResolver overrides the resolver chosen for the engine.
func WithResolver(r resolver.Resolver) Option {
	return func(p *Participant) { p.resolve = r }
}

// Participant is the coupling façade over an engine.
type Participant struct {
	eng      precice.Engine
	resolve  resolver.Resolver
	log      *zap.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	vertices map[string]int
	regions  map[string]bool
	name     string
	runID    uuid.UUID
	state    State
	advances int
}

// New creates a participant over eng. The resolver is the one eng provides
// through resolver.Provider, or a name resolver.
func New(eng precice.Engine, opts ...Option) *Participant {
	p := &Participant{
		eng:      eng,
		vertices: make(map[string]int),
		regions:  make(map[string]bool),
		runID:    uuid.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolve == nil {
		p.resolve = resolver.For(eng)
	}
	if p.log == nil {
		p.log = Logger()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	p.log = p.log.With(
		zap.String("participant", p.name),
		zap.String("run_id", p.runID.String()),
		zap.Stringer("protocol", p.resolve.Protocol()))
	return p
}

// Name returns the participant name.
func (p *Participant) Name() string { return p.name }

// RunID identifies this participant instance in logs and events.
func (p *Participant) RunID() uuid.UUID { return p.runID }

// State returns the lifecycle state.
func (p *Participant) State() State { return p.state }

// Protocol returns the engine protocol generation in use.
func (p *Participant) Protocol() precice.Protocol { return p.resolve.Protocol() }

// Engine returns the wrapped engine.
func (p *Participant) Engine() precice.Engine { return p.eng }

// Initialize moves the participant to Initialized.
func (p *Participant) Initialize(ctx context.Context) (err error) {
	const op = "initialize"
	_, span := p.tracer.Start(ctx, "precice.initialize", trace.WithAttributes(
		attribute.String("precice.participant", p.name),
		attribute.Int("precice.meshes", len(p.vertices)+len(p.regions))))
	defer func() { p.finish(op, span, err) }()

	if p.state != StateUninitialized {
		return errors.ProtocolState(op, p.state.String())
	}
	if len(p.vertices) == 0 && len(p.regions) == 0 {
		return errors.New(errors.PhaseProtocol, errors.KindProtocolState).
			Detail("initialize requires vertices on at least one mesh").
			Build()
	}
	if err := p.eng.Initialize(); err != nil {
		return engineError(op, err)
	}
	p.state = StateInitialized

	fields := []zap.Field{zap.Int("meshes", len(p.vertices))}
	if dt, err := p.eng.GetMaxTimeStepSize(); err == nil {
		fields = append(fields, zap.Float64("dt", dt))
		span.SetAttributes(attribute.Float64("precice.dt", dt))
	}
	p.log.Info("initialized", fields...)
	return nil
}

// Advance completes a time step of size dt. dt should be the value
// GetMaxTimeStepSize returned; larger values are for the engine to reject.
func (p *Participant) Advance(ctx context.Context, dt float64) (err error) {
	const op = "advance"
	_, span := p.tracer.Start(ctx, "precice.advance", trace.WithAttributes(
		attribute.String("precice.participant", p.name),
		attribute.Float64("precice.dt", dt),
		attribute.Int("precice.step", p.advances+1)))
	defer func() { p.finish(op, span, err) }()

	if p.state != StateInitialized {
		return errors.ProtocolState(op, p.state.String())
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return errors.New(errors.PhaseProtocol, errors.KindInvalidInput).
			Value(dt).
			Detail("time step size %g must be positive and finite", dt).
			Build()
	}
	if err := p.eng.Advance(dt); err != nil {
		return engineError(op, err)
	}
	p.advances++
	p.metrics.Advance(dt)
	p.log.Debug("advanced", zap.Float64("dt", dt), zap.Int("step", p.advances))
	return nil
}

// Finalize ends the coupling. It is valid from any state but Finalized.
func (p *Participant) Finalize(ctx context.Context) (err error) {
	const op = "finalize"
	_, span := p.tracer.Start(ctx, "precice.finalize", trace.WithAttributes(
		attribute.String("precice.participant", p.name),
		attribute.Int("precice.steps", p.advances)))
	defer func() { p.finish(op, span, err) }()

	if p.state == StateFinalized {
		return errors.ProtocolState(op, p.state.String())
	}
	p.state = StateFinalized
	if err := p.eng.Finalize(); err != nil {
		return engineError(op, err)
	}
	p.log.Info("finalized", zap.Int("steps", p.advances))
	return nil
}

func (p *Participant) finish(op string, span trace.Span, err error) {
	p.record(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Warn(op+" failed", zap.Error(err))
	}
	span.End()
}

// IsCouplingOngoing reports whether more time steps follow.
func (p *Participant) IsCouplingOngoing() (bool, error) {
	return p.query("is_coupling_ongoing", p.eng.IsCouplingOngoing)
}

// IsTimeWindowComplete reports whether the last Advance completed a window.
func (p *Participant) IsTimeWindowComplete() (bool, error) {
	return p.query("is_time_window_complete", p.eng.IsTimeWindowComplete)
}

// RequiresInitialData reports whether data must be written before Initialize.
func (p *Participant) RequiresInitialData() (bool, error) {
	return p.query("requires_initial_data", p.eng.RequiresInitialData)
}

// RequiresWritingCheckpoint reports whether the caller must save its state
// before this iteration.
func (p *Participant) RequiresWritingCheckpoint() (bool, error) {
	ok, err := p.query("requires_writing_checkpoint", p.eng.RequiresWritingCheckpoint)
	if ok {
		p.metrics.Checkpoint("write")
	}
	return ok, err
}

// RequiresReadingCheckpoint reports whether the caller must restore the
// state saved at the last checkpoint.
func (p *Participant) RequiresReadingCheckpoint() (bool, error) {
	ok, err := p.query("requires_reading_checkpoint", p.eng.RequiresReadingCheckpoint)
	if ok {
		p.metrics.Checkpoint("read")
	}
	return ok, err
}

// GetMaxTimeStepSize returns the largest step Advance accepts next.
func (p *Participant) GetMaxTimeStepSize() (float64, error) {
	const op = "get_max_time_step_size"
	if p.state != StateInitialized {
		err := errors.ProtocolState("get max time step size", p.state.String())
		p.record(op, err)
		return 0, err
	}
	dt, err := p.eng.GetMaxTimeStepSize()
	err = engineError(op, err)
	p.record(op, err)
	return dt, err
}

// HasMesh reports whether the configuration declares mesh for this participant.
func (p *Participant) HasMesh(mesh string) bool {
	_, err := p.resolve.Mesh(mesh)
	return err == nil
}

// HasData reports whether data is declared on mesh.
func (p *Participant) HasData(mesh, data string) bool {
	_, err := p.resolve.Data(mesh, data)
	return err == nil
}

// GetMeshDimensions returns the spatial dimension of mesh.
func (p *Participant) GetMeshDimensions(mesh string) (int, error) {
	if err := p.usable("get_mesh_dimensions"); err != nil {
		return 0, err
	}
	m, err := p.resolve.Mesh(mesh)
	if err != nil {
		return 0, p.fail("get_mesh_dimensions", err)
	}
	return m.Dimensions, nil
}

// GetDataDimensions returns the component count of data: 1 for scalar data,
// the mesh dimension for vector data.
func (p *Participant) GetDataDimensions(mesh, data string) (int, error) {
	if err := p.usable("get_data_dimensions"); err != nil {
		return 0, err
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return 0, p.fail("get_data_dimensions", err)
	}
	return d.Dimensions, nil
}

// RequiresMeshConnectivityFor reports whether the mapping needs elements on mesh.
func (p *Participant) RequiresMeshConnectivityFor(mesh string) (bool, error) {
	const op = "requires_mesh_connectivity_for"
	if err := p.usable(op); err != nil {
		return false, err
	}
	if _, err := p.resolve.Mesh(mesh); err != nil {
		return false, p.fail(op, err)
	}
	ok, err := p.eng.RequiresMeshConnectivityFor(mesh)
	if err != nil {
		return false, p.fail(op, engineError(op, err))
	}
	return ok, nil
}

// RequiresGradientDataFor reports whether gradients of data must be written.
func (p *Participant) RequiresGradientDataFor(mesh, data string) (bool, error) {
	const op = "requires_gradient_data_for"
	if err := p.usable(op); err != nil {
		return false, err
	}
	if _, err := p.resolve.Data(mesh, data); err != nil {
		return false, p.fail(op, err)
	}
	ok, err := p.eng.RequiresGradientDataFor(mesh, data)
	if err != nil {
		return false, p.fail(op, engineError(op, err))
	}
	return ok, nil
}

// VersionInformation returns the engine's version string.
func (p *Participant) VersionInformation() string {
	return p.eng.VersionInformation()
}

func (p *Participant) query(op string, fn func() (bool, error)) (bool, error) {
	if err := p.usable(op); err != nil {
		return false, err
	}
	ok, err := fn()
	if err != nil {
		return false, p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return ok, nil
}

// usable rejects every call after Finalize.
func (p *Participant) usable(op string) error {
	if p.state == StateFinalized {
		return p.fail(op, errors.ProtocolState(spaced(op), p.state.String()))
	}
	return nil
}

func (p *Participant) fail(op string, err error) error {
	p.record(op, err)
	return err
}

func (p *Participant) record(op string, err error) {
	p.metrics.Call(op)
	if err != nil {
		p.metrics.Failure(op, err)
	}
}

// engineError passes structured engine errors through and wraps the rest.
func engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Engine(spaced(op), err)
}

func spaced(op string) string {
	return strings.ReplaceAll(op, "_", " ")
}
