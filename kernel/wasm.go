package kernel

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/precice-go/errors"
)

// DefaultExport is the function a WASM kernel must export unless
// Config.Export names another.
const DefaultExport = "step"

// Config holds configuration for loading a WASM kernel.
type Config struct {
	// Export names the (f64) -> f64 function applied to every value.
	Export string

	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// WASM runs an exported (f64) -> f64 function on every value. It is not safe
// for concurrent use.
type WASM struct {
	runtime wazero.Runtime
	module  api.Module
	fn      api.Function
	export  string
	stack   []uint64
}

var _ Kernel = (*WASM)(nil)

// Load compiles and instantiates wasmBytes.
func Load(ctx context.Context, wasmBytes []byte, cfg *Config) (*WASM, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	export := DefaultExport
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Export != "" {
			export = cfg.Export
		}
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, multierr.Append(
			errors.Wrap(errors.PhaseKernel, errors.KindInvalidInput, err, "compile kernel"),
			runtime.Close(ctx))
	}

	def, ok := compiled.ExportedFunctions()[export]
	if !ok {
		return nil, multierr.Append(errors.NotFound(errors.PhaseKernel, "export", export), runtime.Close(ctx))
	}
	if !isStep(def) {
		return nil, multierr.Append(
			errors.New(errors.PhaseKernel, errors.KindTypeMismatch).
				Path(export).
				GoType(signature(def)).
				Want("(f64) -> f64").
				Detail("kernel export has the wrong signature").
				Build(),
			runtime.Close(ctx))
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, multierr.Append(
			errors.Wrap(errors.PhaseKernel, errors.KindEngine, err, "instantiate kernel"),
			runtime.Close(ctx))
	}

	Logger().Debug("kernel loaded", zap.String("export", export), zap.Int("bytes", len(wasmBytes)))
	return &WASM{
		runtime: runtime,
		module:  mod,
		fn:      mod.ExportedFunction(export),
		export:  export,
		stack:   make([]uint64, 1),
	}, nil
}

// Export returns the name of the function the kernel calls.
func (k *WASM) Export() string { return k.export }

// Step calls the export once per value. A trap stops the step; values
// before the failing index are already updated.
func (k *WASM) Step(ctx context.Context, values []float64) error {
	for i, v := range values {
		k.stack[0] = api.EncodeF64(v)
		if err := k.fn.CallWithStack(ctx, k.stack); err != nil {
			return errors.New(errors.PhaseKernel, errors.KindEngine).
				Path(k.export, strconv.Itoa(i)).
				Value(v).
				Cause(err).
				Detail("kernel call failed").
				Build()
		}
		values[i] = api.DecodeF64(k.stack[0])
	}
	return nil
}

// Close releases the module and its runtime.
func (k *WASM) Close(ctx context.Context) error {
	return multierr.Combine(k.module.Close(ctx), k.runtime.Close(ctx))
}

func isStep(def api.FunctionDefinition) bool {
	params, results := def.ParamTypes(), def.ResultTypes()
	return len(params) == 1 && params[0] == api.ValueTypeF64 &&
		len(results) == 1 && results[0] == api.ValueTypeF64
}

func signature(def api.FunctionDefinition) string {
	names := func(types []api.ValueType) string {
		s := "("
		for i, t := range types {
			if i > 0 {
				s += ", "
			}
			s += api.ValueTypeName(t)
		}
		return s + ")"
	}
	return names(def.ParamTypes()) + " -> " + names(def.ResultTypes())
}
