package loopback

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/wippyai/precice-go/errors"
)

// Config is the subset of a preCICE configuration the loopback engine runs.
type Config struct {
	Data         map[string]DataDecl
	Scheme       Scheme
	Meshes       []MeshDecl
	Participants []ParticipantDecl
	// Dimensions is the global dimension of v2 files (solver-interface), 0 otherwise.
	Dimensions int
}

type DataDecl struct {
	Name   string
	Vector bool
}

type MeshDecl struct {
	Name       string
	Data       []string
	Dimensions int
}

type ParticipantDecl struct {
	Name     string
	Provide  []string
	Receive  []Received
	Writes   []Access
	Reads    []Access
	Mappings []Mapping
}

// Received is a mesh another participant provides.
type Received struct {
	Mesh string
	From string
}

// Access names a data field on a mesh.
type Access struct {
	Data string
	Mesh string
}

type Mapping struct {
	Method    string
	Direction string
	From      string
	To        string
}

type Exchange struct {
	Data       string
	Mesh       string
	From       string
	To         string
	Initialize bool
}

// Scheme is the coupling scheme. Loopback runs implicit schemes up to
// MaxIterations every window; there are no convergence measures.
type Scheme struct {
	Kind           string
	First          string
	Second         string
	Exchanges      []Exchange
	MaxTime        float64
	WindowSize     float64
	MaxTimeWindows int
	MaxIterations  int
}

// Implicit reports whether the scheme iterates within a time window.
func (s Scheme) Implicit() bool {
	return strings.HasSuffix(s.Kind, "-implicit") || s.Kind == "multi"
}

// Mesh returns a mesh declaration by name.
func (c *Config) Mesh(name string) (MeshDecl, bool) {
	for _, m := range c.Meshes {
		if m.Name == name {
			return m, true
		}
	}
	return MeshDecl{}, false
}

// Participant returns a participant declaration by name.
func (c *Config) Participant(name string) (*ParticipantDecl, bool) {
	for i := range c.Participants {
		if c.Participants[i].Name == name {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngine).
			Path(path).
			Cause(err).
			Detail("cannot open configuration").
			Build()
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a configuration document. Unknown elements are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{Data: make(map[string]DataDecl)}
	p := parser{cfg: cfg}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(errors.PhaseEngine, errors.KindEngine).
				Cause(err).
				Detail("malformed configuration").
				Build()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.start(qualified(t.Name), attributes(t.Attr))
		case xml.EndElement:
			p.end(qualified(t.Name))
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type parser struct {
	cfg    *Config
	mesh   *MeshDecl
	part   *ParticipantDecl
	scheme bool
	err    error
}

func (p *parser) start(name string, attrs map[string]string) {
	switch {
	case name == "solver-interface":
		p.cfg.Dimensions = p.intAttr(name, attrs, "dimensions")
	case name == "data:vector", name == "data:scalar":
		p.cfg.Data[attrs["name"]] = DataDecl{Name: attrs["name"], Vector: name == "data:vector"}
	case name == "mesh" && p.part == nil:
		p.cfg.Meshes = append(p.cfg.Meshes, MeshDecl{
			Name:       attrs["name"],
			Dimensions: p.intAttr(name, attrs, "dimensions"),
		})
		p.mesh = &p.cfg.Meshes[len(p.cfg.Meshes)-1]
	case name == "use-data" && p.mesh != nil:
		p.mesh.Data = append(p.mesh.Data, attrs["name"])
	case name == "participant" && !p.scheme:
		p.cfg.Participants = append(p.cfg.Participants, ParticipantDecl{Name: attrs["name"]})
		p.part = &p.cfg.Participants[len(p.cfg.Participants)-1]
	case p.part != nil:
		p.participantChild(name, attrs)
	case strings.HasPrefix(name, "coupling-scheme:"):
		p.scheme = true
		p.cfg.Scheme.Kind = strings.TrimPrefix(name, "coupling-scheme:")
	case p.scheme:
		p.schemeChild(name, attrs)
	}
}

func (p *parser) participantChild(name string, attrs map[string]string) {
	switch {
	case name == "provide-mesh":
		p.part.Provide = append(p.part.Provide, attrs["name"])
	case name == "receive-mesh":
		p.part.Receive = append(p.part.Receive, Received{Mesh: attrs["name"], From: attrs["from"]})
	case name == "use-mesh":
		if truthy(attrs["provide"]) {
			p.part.Provide = append(p.part.Provide, attrs["name"])
		} else {
			p.part.Receive = append(p.part.Receive, Received{Mesh: attrs["name"], From: attrs["from"]})
		}
	case name == "write-data":
		p.part.Writes = append(p.part.Writes, Access{Data: attrs["name"], Mesh: attrs["mesh"]})
	case name == "read-data":
		p.part.Reads = append(p.part.Reads, Access{Data: attrs["name"], Mesh: attrs["mesh"]})
	case strings.HasPrefix(name, "mapping:"):
		p.part.Mappings = append(p.part.Mappings, Mapping{
			Method:    strings.TrimPrefix(name, "mapping:"),
			Direction: attrs["direction"],
			From:      attrs["from"],
			To:        attrs["to"],
		})
	}
}

func (p *parser) schemeChild(name string, attrs map[string]string) {
	s := &p.cfg.Scheme
	switch name {
	case "participants":
		s.First, s.Second = attrs["first"], attrs["second"]
	case "max-time":
		s.MaxTime = p.floatAttr(name, attrs, "value")
	case "time-window-size":
		s.WindowSize = p.floatAttr(name, attrs, "value")
	case "max-time-windows":
		s.MaxTimeWindows = p.intAttr(name, attrs, "value")
	case "max-iterations":
		s.MaxIterations = p.intAttr(name, attrs, "value")
	case "exchange":
		s.Exchanges = append(s.Exchanges, Exchange{
			Data:       attrs["data"],
			Mesh:       attrs["mesh"],
			From:       attrs["from"],
			To:         attrs["to"],
			Initialize: truthy(attrs["initialize"]),
		})
	}
}

func (p *parser) end(name string) {
	switch {
	case name == "mesh" && p.part == nil:
		p.mesh = nil
	case name == "participant" && !p.scheme:
		p.part = nil
	case strings.HasPrefix(name, "coupling-scheme:"):
		p.scheme = false
	}
}

func (p *parser) intAttr(elem string, attrs map[string]string, key string) int {
	s, ok := attrs[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		p.err = multierr.Append(p.err, attributeError(elem, key, s, err))
	}
	return n
}

func (p *parser) floatAttr(elem string, attrs map[string]string, key string) float64 {
	s, ok := attrs[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		p.err = multierr.Append(p.err, attributeError(elem, key, s, err))
	}
	return f
}

func attributeError(elem, key, value string, cause error) error {
	return errors.New(errors.PhaseEngine, errors.KindEngine).
		Path(elem, key).
		Value(value).
		Cause(cause).
		Detail("invalid attribute value %q", value).
		Build()
}

func (c *Config) validate() error {
	var err error
	bad := func(format string, args ...any) {
		err = multierr.Append(err, errors.New(errors.PhaseEngine, errors.KindEngine).
			Detail(format, args...).
			Build())
	}

	for i := range c.Meshes {
		m := &c.Meshes[i]
		if m.Dimensions == 0 {
			m.Dimensions = c.Dimensions
		}
		if m.Dimensions < 2 || m.Dimensions > 3 {
			bad("mesh %q has dimensions %d, want 2 or 3", m.Name, m.Dimensions)
		}
		for _, d := range m.Data {
			if _, ok := c.Data[d]; !ok {
				bad("mesh %q uses undeclared data %q", m.Name, d)
			}
		}
	}

	for _, p := range c.Participants {
		for _, name := range p.Provide {
			if _, ok := c.Mesh(name); !ok {
				bad("participant %q provides undeclared mesh %q", p.Name, name)
			}
		}
		for _, r := range p.Receive {
			if _, ok := c.Mesh(r.Mesh); !ok {
				bad("participant %q receives undeclared mesh %q", p.Name, r.Mesh)
			}
		}
		for _, a := range append(append([]Access(nil), p.Writes...), p.Reads...) {
			m, ok := c.Mesh(a.Mesh)
			if !ok || !slices.Contains(m.Data, a.Data) {
				bad("participant %q accesses data %q on mesh %q which does not use it", p.Name, a.Data, a.Mesh)
			}
		}
	}

	s := c.Scheme
	if s.Kind == "" {
		bad("no coupling scheme")
		return err
	}
	if s.WindowSize <= 0 {
		bad("coupling scheme needs a positive time-window-size")
	}
	if s.MaxTime <= 0 && s.MaxTimeWindows <= 0 {
		bad("coupling scheme needs max-time or max-time-windows")
	}
	if s.Implicit() && s.MaxIterations < 1 {
		bad("implicit coupling scheme needs max-iterations")
	}
	return err
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func attributes(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[qualified(a.Name)] = a.Value
	}
	return m
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "on", "1":
		return true
	}
	return false
}

func (s Scheme) String() string {
	return fmt.Sprintf("%s(window=%g max-time=%g max-windows=%d max-iterations=%d)",
		s.Kind, s.WindowSize, s.MaxTime, s.MaxTimeWindows, s.MaxIterations)
}
