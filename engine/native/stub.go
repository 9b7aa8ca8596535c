//go:build !precice || !cgo

package native

import (
	precice "github.com/wippyai/precice-go"
	"github.com/wippyai/precice-go/errors"
)

// Available reports whether the binding was compiled in.
const Available = false

// New reports that the binding is not compiled in.
func New(opts precice.Options) (precice.Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return nil, errors.Unsupported(errors.PhaseEngine, "native engine requires building with -tags precice and cgo")
}
