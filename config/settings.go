// Package config loads the settings of the solver dummy.
//
// Values are layered: Defaults, then a YAML file, then PRECICE_* environment
// variables. Command line flags are applied last by the caller.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PRECICE_"

// Engine backends.
const (
	EngineLoopback = "loopback"
	EngineNative   = "native"
	EngineEcho     = "echo"
)

var engines = []string{EngineLoopback, EngineNative, EngineEcho}

// Settings configures one solver dummy process.
type Settings struct {
	Participant   string `yaml:"participant" env:"PARTICIPANT"`
	Configuration string `yaml:"configuration" env:"CONFIGURATION"`
	Mesh          string `yaml:"mesh" env:"MESH"`
	ReadData      string `yaml:"read_data" env:"READ_DATA"`
	WriteData     string `yaml:"write_data" env:"WRITE_DATA"`
	Vertices      int    `yaml:"vertices" env:"VERTICES"`
	ProcessIndex  int    `yaml:"process_index" env:"PROCESS_INDEX"`
	ProcessSize   int    `yaml:"process_size" env:"PROCESS_SIZE"`

	Engine   string `yaml:"engine" env:"ENGINE"`
	Protocol string `yaml:"protocol" env:"PROTOCOL"`

	Kernel            string `yaml:"kernel" env:"KERNEL"`
	KernelExport      string `yaml:"kernel_export" env:"KERNEL_EXPORT"`
	KernelMemoryPages uint32 `yaml:"kernel_memory_pages" env:"KERNEL_MEMORY_PAGES"`

	MaxSteps int           `yaml:"max_steps" env:"MAX_STEPS"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	Interactive bool   `yaml:"interactive" env:"INTERACTIVE"`
}

// Defaults returns the settings used when nothing else is given.
func Defaults() Settings {
	return Settings{
		Vertices:    3,
		ProcessSize: 1,
		Engine:      EngineLoopback,
		Protocol:    "v3",
		LogLevel:    "info",
	}
}

// Load returns Defaults overlaid with the YAML file at path, if path is not
// empty, and with the environment.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, errors.New(errors.PhaseConfig, errors.KindNotFound).
				Path(path).
				Cause(err).
				Detail("cannot read settings").
				Build()
		}
		if err := s.decode(bytes.NewReader(b)); err != nil {
			return s, err
		}
	}
	if err := s.FromEnv(); err != nil {
		return s, err
	}
	return s, nil
}

// decode overlays YAML from r. Unknown keys are rejected.
func (s *Settings) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && err != io.EOF {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse settings")
	}
	return nil
}

// FromEnv overlays the PRECICE_* environment variables that are set.
func (s *Settings) FromEnv() error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	return nil
}

// FillDefaults names the mesh and data of the solver dummy participants
// SolverOne and SolverTwo when they are not set.
func (s *Settings) FillDefaults() {
	var mesh, read, write string
	switch s.Participant {
	case "SolverOne":
		mesh, read, write = "SolverOne-Mesh", "Data-Two", "Data-One"
	case "SolverTwo":
		mesh, read, write = "SolverTwo-Mesh", "Data-One", "Data-Two"
	default:
		return
	}
	if s.Mesh == "" {
		s.Mesh = mesh
	}
	if s.ReadData == "" {
		s.ReadData = read
	}
	if s.WriteData == "" {
		s.WriteData = write
	}
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs error
	invalid := func(format string, args ...any) {
		errs = multierr.Append(errs, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf(format, args...)))
	}

	if s.Participant == "" {
		invalid("participant is required")
	}
	if s.Configuration == "" && s.Engine != EngineEcho {
		invalid("configuration is required for engine %q", s.Engine)
	}
	if s.Mesh == "" || s.ReadData == "" || s.WriteData == "" {
		invalid("mesh, read_data and write_data are required for participant %q", s.Participant)
	}
	if s.Vertices < 1 {
		invalid("vertices %d must be at least 1", s.Vertices)
	}
	if s.ProcessSize < 1 {
		invalid("process_size %d must be at least 1", s.ProcessSize)
	} else if s.ProcessIndex < 0 || s.ProcessIndex >= s.ProcessSize {
		errs = multierr.Append(errs, errors.OutOfBounds(errors.PhaseConfig, []string{"process_index"}, s.ProcessIndex, s.ProcessSize))
	}
	if !slices.Contains(engines, s.Engine) {
		invalid("unknown engine %q, want one of %v", s.Engine, engines)
	}
	if _, err := precice.ParseProtocol(s.Protocol); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		invalid("unknown log_level %q", s.LogLevel)
	}
	if s.MaxSteps < 0 {
		invalid("max_steps %d must not be negative", s.MaxSteps)
	}
	if s.Timeout < 0 {
		invalid("timeout %s must not be negative", s.Timeout)
	}
	return errs
}

// Options returns the participant construction arguments.
func (s Settings) Options() precice.Options {
	return precice.Options{
		ParticipantName:   s.Participant,
		ConfigurationPath: s.Configuration,
		ProcessIndex:      s.ProcessIndex,
		ProcessSize:       s.ProcessSize,
	}
}

// ProtocolVersion returns the parsed protocol, v3 when it does not parse.
func (s Settings) ProtocolVersion() precice.Protocol {
	p, err := precice.ParseProtocol(s.Protocol)
	if err != nil {
		return precice.ProtocolV3
	}
	return p
}

// Level returns the parsed log level, info when it does not parse.
func (s Settings) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
