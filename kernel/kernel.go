// Package kernel holds the compute step a coupled solver runs between
// reading and writing coupling data.
//
// A Kernel updates a flat value buffer in place. Increment is the dummy
// solver's step; WASM runs a WebAssembly export on every value.
package kernel

import (
	"context"
	"os"

	"github.com/wippyai/precice-go/errors"
)

// Kernel transforms coupling values in place.
type Kernel interface {
	Step(ctx context.Context, values []float64) error
	Close(ctx context.Context) error
}

// Increment adds one to every value.
type Increment struct{}

func (Increment) Step(ctx context.Context, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range values {
		values[i]++
	}
	return nil
}

func (Increment) Close(context.Context) error { return nil }

// Func applies a Go function to every value.
type Func func(float64) float64

func (f Func) Step(ctx context.Context, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, v := range values {
		values[i] = f(v)
	}
	return nil
}

func (Func) Close(context.Context) error { return nil }

// Open returns Increment for an empty path and loads the WebAssembly module
// at path otherwise.
func Open(ctx context.Context, path string, cfg *Config) (Kernel, error) {
	if path == "" {
		return Increment{}, nil
	}
	return LoadFile(ctx, path, cfg)
}

// LoadFile reads and loads a WebAssembly kernel.
func LoadFile(ctx context.Context, path string, cfg *Config) (*WASM, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseKernel, errors.KindNotFound).
			Path(path).
			Cause(err).
			Detail("cannot read kernel").
			Build()
	}
	return Load(ctx, b, cfg)
}
