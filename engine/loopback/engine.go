package loopback

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// eps is the time comparison tolerance.
const eps = 1e-12

// Option configures an Engine.
type Option func(*Engine)

// WithRemoteMesh sets the vertices the partner provides on a received mesh.
// positions is flat, dimension-interleaved.
func WithRemoteMesh(mesh string, positions []float64) Option {
	return func(e *Engine) {
		e.remote[mesh] = append([]float64(nil), positions...)
	}
}

// Engine is an in-process coupling engine for one participant. Its partner
// mirrors the participant: whenever a time window or iteration completes the
// n-th write-data field is copied into the n-th read-data field.
type Engine struct {
	cfg    *Config
	part   *ParticipantDecl
	meshes map[string]*mesh
	remote map[string][]float64

	time       float64
	windowTime float64
	window     int
	iteration  int
	advances   int

	initialized     bool
	finalized       bool
	writeCheckpoint bool
	readCheckpoint  bool
	windowComplete  bool
}

var _ precice.Engine = (*Engine)(nil)

type mesh struct {
	name         string
	fields       map[string]*field
	elements     map[precice.ElementKind][]int
	positions    []float64
	region       []float64
	visible      []int
	dims         int
	provided     bool
	connectivity bool
	gradients    bool
}

func (m *mesh) size() int {
	if m.provided {
		return len(m.positions) / m.dims
	}
	return len(m.visible)
}

func (m *mesh) position(i int) []float64 {
	if !m.provided {
		i = m.visible[i]
	}
	return m.positions[i*m.dims : (i+1)*m.dims]
}

type field struct {
	values    []float64
	gradients []float64
	dims      int
	write     bool
	read      bool
}

func (f *field) ensure(n int) {
	if need := n * f.dims; len(f.values) < need {
		f.values = append(f.values, make([]float64, need-len(f.values))...)
	}
}

// New loads the configuration file named in opts and creates an engine for
// the participant.
func New(opts precice.Options, options ...Option) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg, err := Load(opts.ConfigurationPath)
	if err != nil {
		return nil, err
	}
	e, err := NewFromConfig(cfg, opts.ParticipantName, options...)
	if err != nil {
		return nil, err
	}
	Logger().Info("loopback engine created",
		zap.String("participant", opts.ParticipantName),
		zap.String("config", opts.ConfigurationPath),
		zap.Int("rank", opts.ProcessIndex),
		zap.Int("size", opts.ProcessSize),
		zap.Stringer("scheme", cfg.Scheme))
	return e, nil
}

// NewFromConfig creates an engine from a parsed configuration.
func NewFromConfig(cfg *Config, participant string, options ...Option) (*Engine, error) {
	part, ok := cfg.Participant(participant)
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "participant", participant)
	}

	e := &Engine{
		cfg:    cfg,
		part:   part,
		meshes: make(map[string]*mesh),
		remote: make(map[string][]float64),
	}
	for _, opt := range options {
		opt(e)
	}

	add := func(name string, provided bool) {
		decl, _ := cfg.Mesh(name)
		m := &mesh{
			name:     name,
			dims:     decl.Dimensions,
			provided: provided,
			fields:   make(map[string]*field),
			elements: make(map[precice.ElementKind][]int),
		}
		if !provided {
			m.positions = e.remote[name]
		}
		for _, d := range decl.Data {
			dims := 1
			if cfg.Data[d].Vector {
				dims = m.dims
			}
			m.fields[d] = &field{dims: dims}
		}
		e.meshes[name] = m
	}
	for _, name := range part.Provide {
		add(name, true)
	}
	for _, r := range part.Receive {
		add(r.Mesh, false)
	}

	for _, w := range part.Writes {
		m, ok := e.meshes[w.Mesh]
		if !ok {
			return nil, fail("configure", "participant %q writes %q on mesh %q it does not use", part.Name, w.Data, w.Mesh)
		}
		m.fields[w.Data].write = true
	}
	for _, r := range part.Reads {
		m, ok := e.meshes[r.Mesh]
		if !ok {
			return nil, fail("configure", "participant %q reads %q on mesh %q it does not use", part.Name, r.Data, r.Mesh)
		}
		m.fields[r.Data].read = true
	}
	for _, mp := range part.Mappings {
		switch mp.Method {
		case "nearest-projection", "linear-cell-interpolation":
			for _, name := range []string{mp.From, mp.To} {
				if m, ok := e.meshes[name]; ok && m.provided {
					m.connectivity = true
				}
			}
		case "nearest-neighbor-gradient":
			if m, ok := e.meshes[mp.From]; ok && mp.Direction == "write" {
				m.gradients = true
			}
		}
	}
	return e, nil
}

// Config returns the parsed configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Time returns the simulated time at the start of the current window.
func (e *Engine) Time() float64 {
	return e.time
}

// Window returns the 1-based index of the current time window.
func (e *Engine) Window() int {
	return e.window
}

// Iteration returns the 1-based iteration within the current window.
func (e *Engine) Iteration() int {
	return e.iteration
}

// DataDimensions reports the component count of a field on one of the
// participant's meshes.
func (e *Engine) DataDimensions(mesh, data string) (int, bool) {
	m, ok := e.meshes[mesh]
	if !ok {
		return 0, false
	}
	f, ok := m.fields[data]
	if !ok {
		return 0, false
	}
	return f.dims, true
}

func (e *Engine) Initialize() error {
	if e.initialized {
		return fail("initialize", "already initialized")
	}
	for _, m := range e.meshes {
		if m.provided {
			continue
		}
		m.visible = m.visible[:0]
		if m.region == nil {
			continue
		}
		for i := 0; i < len(m.positions)/m.dims; i++ {
			if inside(m.region, m.positions[i*m.dims:(i+1)*m.dims]) {
				m.visible = append(m.visible, i)
			}
		}
	}

	e.initialized = true
	e.window, e.iteration = 1, 1
	e.exchange()
	e.writeCheckpoint = e.cfg.Scheme.Implicit() && e.ongoing()

	Logger().Info("loopback initialized",
		zap.String("participant", e.part.Name),
		zap.Float64("dt", e.maxStep()),
		zap.Bool("implicit", e.cfg.Scheme.Implicit()))
	return nil
}

func (e *Engine) Advance(dt float64) error {
	if err := e.running("advance"); err != nil {
		return err
	}
	if !e.ongoing() {
		return fail("advance", "coupling is no longer ongoing")
	}
	limit := e.maxStep()
	if dt <= 0 || math.IsNaN(dt) || dt > limit+eps {
		return fail("advance", "time step %g is outside (0, %g]", dt, limit)
	}

	s := e.cfg.Scheme
	e.advances++
	e.windowTime += dt
	e.readCheckpoint, e.writeCheckpoint, e.windowComplete = false, false, false

	reachedEnd := s.MaxTime > 0 && e.time+e.windowTime >= s.MaxTime-eps
	if e.windowTime < s.WindowSize-eps && !reachedEnd {
		Logger().Debug("loopback subcycle",
			zap.Float64("dt", dt),
			zap.Float64("window_time", e.windowTime))
		return nil
	}

	e.exchange()
	if s.Implicit() && e.iteration < s.MaxIterations {
		e.iteration++
		e.windowTime = 0
		e.readCheckpoint = true
		Logger().Debug("loopback iteration",
			zap.Int("window", e.window),
			zap.Int("iteration", e.iteration))
		return nil
	}

	e.time += e.windowTime
	e.windowTime = 0
	e.window++
	e.iteration = 1
	e.windowComplete = true
	e.writeCheckpoint = s.Implicit() && e.ongoing()
	Logger().Debug("loopback window complete",
		zap.Int("window", e.window-1),
		zap.Float64("time", e.time))
	return nil
}

func (e *Engine) Finalize() error {
	if e.finalized {
		return fail("finalize", "already finalized")
	}
	e.finalized = true
	Logger().Info("loopback finalized",
		zap.String("participant", e.part.Name),
		zap.Int("advances", e.advances),
		zap.Float64("time", e.time))
	return nil
}

func (e *Engine) IsCouplingOngoing() (bool, error) {
	return e.ongoing(), nil
}

func (e *Engine) IsTimeWindowComplete() (bool, error) {
	return e.windowComplete, nil
}

func (e *Engine) RequiresInitialData() (bool, error) {
	for _, x := range e.cfg.Scheme.Exchanges {
		if x.Initialize && x.From == e.part.Name {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) RequiresWritingCheckpoint() (bool, error) {
	return e.writeCheckpoint, nil
}

func (e *Engine) RequiresReadingCheckpoint() (bool, error) {
	return e.readCheckpoint, nil
}

func (e *Engine) GetMaxTimeStepSize() (float64, error) {
	if !e.initialized {
		return 0, fail("get max time step size", "not initialized")
	}
	return e.maxStep(), nil
}

func (e *Engine) HasMesh(name string) bool {
	_, ok := e.meshes[name]
	return ok
}

func (e *Engine) HasData(meshName, data string) bool {
	m, ok := e.meshes[meshName]
	if !ok {
		return false
	}
	_, ok = m.fields[data]
	return ok
}

func (e *Engine) GetMeshDimensions(name string) (int, error) {
	m, err := e.mesh(name)
	if err != nil {
		return 0, err
	}
	return m.dims, nil
}

func (e *Engine) GetDataDimensions(meshName, data string) (int, error) {
	_, f, err := e.field(meshName, data)
	if err != nil {
		return 0, err
	}
	return f.dims, nil
}

func (e *Engine) RequiresMeshConnectivityFor(name string) (bool, error) {
	m, err := e.mesh(name)
	if err != nil {
		return false, err
	}
	return m.connectivity, nil
}

func (e *Engine) RequiresGradientDataFor(meshName, data string) (bool, error) {
	m, f, err := e.field(meshName, data)
	if err != nil {
		return false, err
	}
	return m.gradients && f.write, nil
}

func (e *Engine) SetMeshVertex(name string, position []float64) (int, error) {
	m, err := e.providedMesh("set mesh vertex", name)
	if err != nil {
		return 0, err
	}
	if len(position) != m.dims {
		return 0, fail("set mesh vertex", "position of mesh %q has %d components, want %d", name, len(position), m.dims)
	}
	id := m.size()
	m.positions = append(m.positions, position...)
	return id, nil
}

func (e *Engine) SetMeshVertices(name string, positions []float64, ids []int) error {
	m, err := e.providedMesh("set mesh vertices", name)
	if err != nil {
		return err
	}
	if len(positions) != len(ids)*m.dims {
		return fail("set mesh vertices", "%d coordinates for %d vertices of dimension %d", len(positions), len(ids), m.dims)
	}
	first := m.size()
	m.positions = append(m.positions, positions...)
	for i := range ids {
		ids[i] = first + i
	}
	return nil
}

func (e *Engine) GetMeshVertexSize(name string) (int, error) {
	m, err := e.mesh(name)
	if err != nil {
		return 0, err
	}
	if !m.provided && !e.initialized {
		return 0, fail("get mesh vertex size", "received mesh %q is only known after initialize", name)
	}
	return m.size(), nil
}

func (e *Engine) SetMeshElements(name string, kind precice.ElementKind, vertices []int) error {
	op := "set mesh " + kind.String()
	m, err := e.providedMesh(op, name)
	if err != nil {
		return err
	}
	w := kind.Width()
	if w == 0 || len(vertices)%w != 0 {
		return fail(op, "%d vertex ids do not form whole %ss", len(vertices), kind)
	}
	if kind == precice.ElementTetrahedron && m.dims != 3 {
		return fail(op, "mesh %q is %dD", name, m.dims)
	}
	n := m.size()
	for _, id := range vertices {
		if id < 0 || id >= n {
			return fail(op, "vertex id %d out of range [0, %d)", id, n)
		}
	}
	m.elements[kind] = append(m.elements[kind], vertices...)
	return nil
}

// Elements returns the flat vertex ids of all elements of a kind on a mesh.
func (e *Engine) Elements(name string, kind precice.ElementKind) []int {
	if m, ok := e.meshes[name]; ok {
		return m.elements[kind]
	}
	return nil
}

func (e *Engine) SetMeshAccessRegion(name string, bbox []float64) error {
	const op = "set mesh access region"
	m, err := e.mesh(name)
	if err != nil {
		return err
	}
	if m.provided {
		return fail(op, "mesh %q is provided by %q, not received", name, e.part.Name)
	}
	if e.initialized {
		return fail(op, "access region must be set before initialize")
	}
	if m.region != nil {
		return fail(op, "access region of mesh %q is already set", name)
	}
	if len(bbox) != 2*m.dims {
		return fail(op, "bounding box has %d values, want %d", len(bbox), 2*m.dims)
	}
	for d := 0; d < m.dims; d++ {
		if bbox[2*d] > bbox[2*d+1] {
			return fail(op, "bounding box axis %d has min %g > max %g", d, bbox[2*d], bbox[2*d+1])
		}
	}
	m.region = append([]float64(nil), bbox...)
	return nil
}

func (e *Engine) GetMeshVertexIDsAndCoordinates(name string, ids []int, coords []float64) error {
	const op = "get mesh vertex ids and coordinates"
	m, err := e.mesh(name)
	if err != nil {
		return err
	}
	if !m.provided && !e.initialized {
		return fail(op, "received mesh %q is only known after initialize", name)
	}
	n := m.size()
	if len(ids) != n || len(coords) != n*m.dims {
		return fail(op, "buffers hold %d ids and %d coordinates, mesh %q has %d vertices of dimension %d",
			len(ids), len(coords), name, n, m.dims)
	}
	for i := range n {
		ids[i] = i
		copy(coords[i*m.dims:], m.position(i))
	}
	return nil
}

func (e *Engine) WriteData(meshName, data string, ids []int, values []float64) error {
	const op = "write data"
	m, f, err := e.access(op, meshName, data, ids)
	if err != nil {
		return err
	}
	if !f.write {
		return fail(op, "participant %q does not write %q on mesh %q", e.part.Name, data, meshName)
	}
	if len(values) != len(ids)*f.dims {
		return fail(op, "%d values for %d vertices of width %d", len(values), len(ids), f.dims)
	}
	f.ensure(m.size())
	for i, id := range ids {
		copy(f.values[id*f.dims:(id+1)*f.dims], values[i*f.dims:])
	}
	return nil
}

func (e *Engine) ReadData(meshName, data string, ids []int, relativeReadTime float64, values []float64) error {
	const op = "read data"
	m, f, err := e.access(op, meshName, data, ids)
	if err != nil {
		return err
	}
	if !f.read {
		return fail(op, "participant %q does not read %q on mesh %q", e.part.Name, data, meshName)
	}
	if e.initialized {
		if limit := e.maxStep(); relativeReadTime < 0 || relativeReadTime > limit+eps {
			return fail(op, "relative read time %g is outside [0, %g]", relativeReadTime, limit)
		}
	}
	if len(values) != len(ids)*f.dims {
		return fail(op, "%d values for %d vertices of width %d", len(values), len(ids), f.dims)
	}
	f.ensure(m.size())
	for i, id := range ids {
		copy(values[i*f.dims:(i+1)*f.dims], f.values[id*f.dims:])
	}
	return nil
}

func (e *Engine) WriteGradientData(meshName, data string, ids []int, gradients []float64) error {
	const op = "write gradient data"
	m, f, err := e.access(op, meshName, data, ids)
	if err != nil {
		return err
	}
	if !m.gradients || !f.write {
		return fail(op, "gradient data of %q on mesh %q is not required", data, meshName)
	}
	w := f.dims * m.dims
	if len(gradients) != len(ids)*w {
		return fail(op, "%d values for %d vertices of width %d", len(gradients), len(ids), w)
	}
	if need := m.size() * w; len(f.gradients) < need {
		f.gradients = append(f.gradients, make([]float64, need-len(f.gradients))...)
	}
	for i, id := range ids {
		copy(f.gradients[id*w:(id+1)*w], gradients[i*w:])
	}
	return nil
}

// Gradients returns the gradient values stored for a field.
func (e *Engine) Gradients(meshName, data string) []float64 {
	if _, f, err := e.field(meshName, data); err == nil {
		return f.gradients
	}
	return nil
}

func (e *Engine) VersionInformation() string {
	return "loopback;" + precice.Version
}

func (e *Engine) ongoing() bool {
	if e.finalized {
		return false
	}
	s := e.cfg.Scheme
	if s.MaxTime > 0 && e.time >= s.MaxTime-eps {
		return false
	}
	if s.MaxTimeWindows > 0 && e.window > s.MaxTimeWindows {
		return false
	}
	return true
}

func (e *Engine) maxStep() float64 {
	if !e.ongoing() {
		return 0
	}
	s := e.cfg.Scheme
	step := s.WindowSize - e.windowTime
	if s.MaxTime > 0 {
		step = math.Min(step, s.MaxTime-e.time-e.windowTime)
	}
	return step
}

// exchange copies each write field into the read field of the same position.
func (e *Engine) exchange() {
	n := min(len(e.part.Writes), len(e.part.Reads))
	for i := range n {
		wm, wf := e.resolved(e.part.Writes[i])
		rm, rf := e.resolved(e.part.Reads[i])
		wf.ensure(wm.size())
		rf.ensure(rm.size())
		comps := min(wf.dims, rf.dims)
		for v := range min(wm.size(), rm.size()) {
			copy(rf.values[v*rf.dims:v*rf.dims+comps], wf.values[v*wf.dims:])
		}
	}
}

func (e *Engine) resolved(a Access) (*mesh, *field) {
	m := e.meshes[a.Mesh]
	return m, m.fields[a.Data]
}

func (e *Engine) running(op string) error {
	if !e.initialized {
		return fail(op, "not initialized")
	}
	if e.finalized {
		return fail(op, "already finalized")
	}
	return nil
}

func (e *Engine) mesh(name string) (*mesh, error) {
	m, ok := e.meshes[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "mesh", name)
	}
	return m, nil
}

func (e *Engine) providedMesh(op, name string) (*mesh, error) {
	m, err := e.mesh(name)
	if err != nil {
		return nil, err
	}
	if !m.provided {
		return nil, fail(op, "mesh %q is received, not provided by %q", name, e.part.Name)
	}
	if e.initialized {
		return nil, fail(op, "mesh %q cannot change after initialize", name)
	}
	return m, nil
}

func (e *Engine) field(meshName, data string) (*mesh, *field, error) {
	m, err := e.mesh(meshName)
	if err != nil {
		return nil, nil, err
	}
	f, ok := m.fields[data]
	if !ok {
		return nil, nil, errors.NotFound(errors.PhaseEngine, "data", data)
	}
	return m, f, nil
}

func (e *Engine) access(op, meshName, data string, ids []int) (*mesh, *field, error) {
	if e.finalized {
		return nil, nil, fail(op, "already finalized")
	}
	m, f, err := e.field(meshName, data)
	if err != nil {
		return nil, nil, err
	}
	n := m.size()
	for _, id := range ids {
		if id < 0 || id >= n {
			return nil, nil, fail(op, "vertex id %d out of range [0, %d)", id, n)
		}
	}
	return m, f, nil
}

func inside(bbox, p []float64) bool {
	for d, x := range p {
		if x < bbox[2*d] || x > bbox[2*d+1] {
			return false
		}
	}
	return true
}

func fail(op, format string, args ...any) error {
	return errors.New(errors.PhaseEngine, errors.KindEngine).
		Detail("%s: %s", op, fmt.Sprintf(format, args...)).
		Build()
}
