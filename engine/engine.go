package engine

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/engine/echo"
	"github.com/wippyai/precice-go/engine/legacy"
	"github.com/wippyai/precice-go/engine/loopback"
	"github.com/wippyai/precice-go/engine/native"
	"github.com/wippyai/precice-go/errors"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Protocol precice.Protocol
	Options  precice.Options

	// Backend specific options.
	Loopback []loopback.Option
	Echo     []echo.Option
}

// Factory creates an engine speaking cfg.Protocol. Factories return an
// unsupported error for protocols they cannot serve.
type Factory func(cfg Config) (precice.Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"loopback": openLoopback,
		"native":   openNative,
		"echo":     openEcho,
	}
)

// Register makes a backend available under name, replacing any previous one.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open creates the engine named by cfg.Backend. An empty Backend opens the
// loopback engine.
func Open(cfg Config) (precice.Engine, error) {
	if cfg.Backend == "" {
		cfg.Backend = "loopback"
	}
	registryMu.RLock()
	f, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.NotFound(errors.PhaseConfig, "engine backend", cfg.Backend)
	}

	eng, err := f(cfg)
	if err != nil {
		return nil, err
	}
	Logger().Info("engine opened",
		zap.String("backend", cfg.Backend),
		zap.Stringer("protocol", cfg.Protocol),
		zap.String("participant", cfg.Options.ParticipantName))
	return eng, nil
}

func openLoopback(cfg Config) (precice.Engine, error) {
	lb, err := loopback.New(cfg.Options, cfg.Loopback...)
	if err != nil {
		return nil, err
	}
	if cfg.Protocol == precice.ProtocolV2 {
		return legacy.Wrap(lb.Legacy(), lb.DataDimensions), nil
	}
	return lb, nil
}

func openNative(cfg Config) (precice.Engine, error) {
	if cfg.Protocol == precice.ProtocolV2 {
		return nil, errors.Unsupported(errors.PhaseConfig, "native engine speaks protocol v3 only")
	}
	return native.New(cfg.Options)
}

func openEcho(cfg Config) (precice.Engine, error) {
	if cfg.Protocol == precice.ProtocolV2 {
		return nil, errors.Unsupported(errors.PhaseConfig, "echo engine speaks protocol v3 only")
	}
	return echo.New(cfg.Echo...), nil
}
