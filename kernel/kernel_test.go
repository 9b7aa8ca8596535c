package kernel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/precice-go/errors"
)

var (
	header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// (f64) -> f64
	typeF64 = []byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c}
	// (i32) -> i32
	typeI32 = []byte{0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f}

	funcSec = []byte{0x03, 0x02, 0x01, 0x00}

	// local.get 0; f64.const 1; f64.add
	addOne = []byte{
		0x0a, 0x10, 0x01, 0x0e, 0x00,
		0x20, 0x00,
		0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
		0xa0, 0x0b,
	}
	// local.get 0; i32.const 1; i32.add
	addOneI32 = []byte{0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b}
	// unreachable
	trap = []byte{0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b}
)

// module assembles a single-function module exporting name, which must be
// four bytes long.
func module(typ []byte, name string, code []byte) []byte {
	out := append([]byte{}, header...)
	out = append(out, typ...)
	out = append(out, funcSec...)
	out = append(out, 0x07, 0x08, 0x01, 0x04)
	out = append(out, name...)
	out = append(out, 0x00, 0x00)
	return append(out, code...)
}

func TestIncrement(t *testing.T) {
	values := []float64{0, 1.5, -2}
	require.NoError(t, Increment{}.Step(context.Background(), values))
	assert.Equal(t, []float64{1, 2.5, -1}, values)
	require.NoError(t, Increment{}.Step(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Increment{}.Step(ctx, values), context.Canceled)
}

func TestFunc(t *testing.T) {
	values := []float64{1, 4, 9}
	require.NoError(t, Func(math.Sqrt).Step(context.Background(), values))
	assert.Equal(t, []float64{1, 2, 3}, values)
}

func TestWASMStep(t *testing.T) {
	ctx := context.Background()
	k, err := Load(ctx, module(typeF64, "step", addOne), nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, k.Close(ctx)) }()
	assert.Equal(t, "step", k.Export())

	values := []float64{0, 1, 2, -0.5}
	require.NoError(t, k.Step(ctx, values))
	assert.Equal(t, []float64{1, 2, 3, 0.5}, values)

	require.NoError(t, k.Step(ctx, values))
	assert.Equal(t, []float64{2, 3, 4, 1.5}, values)
}

func TestWASMMatchesIncrement(t *testing.T) {
	ctx := context.Background()
	k, err := Load(ctx, module(typeF64, "next", addOne), &Config{Export: "next", MemoryLimitPages: 1})
	require.NoError(t, err)
	defer k.Close(ctx)

	a := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	b := append([]float64(nil), a...)
	require.NoError(t, k.Step(ctx, a))
	require.NoError(t, Increment{}.Step(ctx, b))
	assert.Equal(t, b, a)
}

func TestWASMLoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, []byte("not wasm"), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Load(ctx, module(typeF64, "next", addOne), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Contains(t, err.Error(), `"step"`)

	_, err = Load(ctx, module(typeI32, "step", addOneI32), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.Contains(t, err.Error(), "(i32) -> (i32)")
}

func TestWASMTrap(t *testing.T) {
	ctx := context.Background()
	k, err := Load(ctx, module(typeF64, "step", trap), nil)
	require.NoError(t, err)
	defer k.Close(ctx)

	values := []float64{1, 2}
	err = k.Step(ctx, values)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEngine)
	assert.Equal(t, errors.PhaseKernel, err.(*errors.Error).Phase)
	assert.Equal(t, []float64{1, 2}, values)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	k, err := Open(ctx, "", nil)
	require.NoError(t, err)
	assert.IsType(t, Increment{}, k)

	path := filepath.Join(t.TempDir(), "step.wasm")
	require.NoError(t, os.WriteFile(path, module(typeF64, "step", addOne), 0o600))
	k, err = Open(ctx, path, nil)
	require.NoError(t, err)
	assert.IsType(t, &WASM{}, k)
	require.NoError(t, k.Close(ctx))

	_, err = Open(ctx, filepath.Join(t.TempDir(), "missing.wasm"), nil)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
