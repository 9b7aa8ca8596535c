package participant

import (
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/precice-go/errors"
	"github.com/wippyai/precice-go/normalize"
	"github.com/wippyai/precice-go/resolver"
)

// WriteData writes values for the vertices in ids. values holds len(ids)
// records of the data dimension: [n] for scalar data, [n][dim] for vector
// data, or the same values flat.
func (p *Participant) WriteData(mesh, data string, ids, values any) error {
	const op = "write_data"
	if err := p.usable(op); err != nil {
		return err
	}
	idx, vals, err := p.normalizeBlock(ids, values)
	if err != nil {
		return p.fail(op, err)
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return p.fail(op, err)
	}
	if err := p.checkBlock(op, d, "values", idx, vals, d.Dimensions); err != nil {
		return p.fail(op, err)
	}

	if err := p.eng.WriteData(mesh, data, idx, vals.Data); err != nil {
		return p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	p.log.Debug("wrote data", zap.String("mesh", mesh), zap.String("data", data), zap.Int("vertices", len(idx)))
	return nil
}

// ReadData reads the values of data at relativeReadTime into the current
// time step for the vertices in ids.
func (p *Participant) ReadData(mesh, data string, ids any, relativeReadTime float64) (normalize.Array, error) {
	const op = "read_data"
	if err := p.readable(op, relativeReadTime); err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	idx, err := p.normalizeIDs(ids)
	if err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	if err := p.checkIDs(op, mesh, idx); err != nil {
		return normalize.Array{}, p.fail(op, err)
	}

	buf := make([]float64, len(idx)*d.Dimensions)
	if err := p.eng.ReadData(mesh, data, idx, relativeReadTime, buf); err != nil {
		return normalize.Array{}, p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	p.log.Debug("read data", zap.String("mesh", mesh), zap.String("data", data), zap.Int("vertices", len(idx)))
	return normalize.FromFlat(buf).Records(len(idx), d.Dimensions), nil
}

// WriteGradientData writes gradients for the vertices in ids. Each record
// holds data dimension times mesh dimension values: the spatial derivatives
// of every component, component by component.
func (p *Participant) WriteGradientData(mesh, data string, ids, gradients any) error {
	const op = "write_gradient_data"
	if err := p.usable(op); err != nil {
		return err
	}
	idx, grads, err := p.normalizeBlock(ids, gradients)
	if err != nil {
		return p.fail(op, err)
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return p.fail(op, err)
	}
	if err := p.checkBlock(op, d, "gradients", idx, grads, d.GradientWidth()); err != nil {
		return p.fail(op, err)
	}

	if err := p.eng.WriteGradientData(mesh, data, idx, grads.Data); err != nil {
		return p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return nil
}

// WriteValue writes the value of one vertex. Scalar data accepts a bare
// number; vector data needs a sequence of the data dimension.
func (p *Participant) WriteValue(mesh, data string, id int, value any) error {
	const op = "write_value"
	if err := p.usable(op); err != nil {
		return err
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return p.fail(op, err)
	}

	var vals []float64
	if f, ok := normalize.Scalar(value); ok && d.Dimensions == 1 {
		vals = []float64{f}
	} else {
		arr, err := normalize.Flatten(value)
		if err != nil {
			return p.fail(op, err)
		}
		if arr.Rank() != 1 || arr.Len() != d.Dimensions {
			return p.fail(op, widthError(d, "value", arr.Shape, d.Dimensions))
		}
		vals = arr.Data
	}
	ids := []int{id}
	if err := p.checkIDs(op, mesh, ids); err != nil {
		return p.fail(op, err)
	}
	if err := p.eng.WriteData(mesh, data, ids, vals); err != nil {
		return p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return nil
}

// ReadValue reads the value of one vertex as a rank 1 Array of the data
// dimension.
func (p *Participant) ReadValue(mesh, data string, id int, relativeReadTime float64) (normalize.Array, error) {
	const op = "read_value"
	if err := p.readable(op, relativeReadTime); err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	d, err := p.resolve.Data(mesh, data)
	if err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	ids := []int{id}
	if err := p.checkIDs(op, mesh, ids); err != nil {
		return normalize.Array{}, p.fail(op, err)
	}
	buf := make([]float64, d.Dimensions)
	if err := p.eng.ReadData(mesh, data, ids, relativeReadTime, buf); err != nil {
		return normalize.Array{}, p.fail(op, engineError(op, err))
	}
	p.record(op, nil)
	return normalize.FromFlat(buf), nil
}

func (p *Participant) readable(op string, relativeReadTime float64) error {
	if p.state != StateInitialized {
		return errors.ProtocolState(spaced(op), p.state.String())
	}
	if relativeReadTime < 0 || math.IsNaN(relativeReadTime) || math.IsInf(relativeReadTime, 0) {
		return errors.New(errors.PhaseProtocol, errors.KindInvalidInput).
			Value(relativeReadTime).
			Detail("relative read time %g must be non-negative and finite", relativeReadTime).
			Build()
	}
	return nil
}

func (p *Participant) normalizeIDs(ids any) ([]int, error) {
	idx, err := normalize.FlattenIndices(ids)
	if err != nil {
		return nil, err
	}
	if idx.Rank() > 1 {
		return nil, errors.New(errors.PhaseNormalize, errors.KindShape).
			Path("ids").
			Want("[n]").
			Value(idx.Shape).
			Detail("vertex ids must be a flat sequence").
			Build()
	}
	return idx.Data, nil
}

func (p *Participant) normalizeBlock(ids, values any) ([]int, normalize.Array, error) {
	vals, err := normalize.Flatten(values)
	if err != nil {
		return nil, normalize.Array{}, err
	}
	idx, err := p.normalizeIDs(ids)
	if err != nil {
		return nil, normalize.Array{}, err
	}
	return idx, vals, nil
}

// checkBlock validates the record width and count of vals and the ids.
func (p *Participant) checkBlock(op string, d resolver.Data, name string, ids []int, vals normalize.Array, width int) error {
	n, err := vals.Expect(name, width)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return errors.New(errors.PhaseNormalize, errors.KindShape).
			Path(d.Mesh.Name, d.Name, name).
			Value(n).
			Detail("%d records for %d vertex ids", n, len(ids)).
			Build()
	}
	return p.checkIDs(op, d.Mesh.Name, ids)
}

func widthError(d resolver.Data, name string, shape []int, width int) error {
	return errors.New(errors.PhaseNormalize, errors.KindShape).
		Path(d.Mesh.Name, d.Name, name).
		Want("[" + strconv.Itoa(width) + "]").
		Value(shape).
		Detail("value has shape %v", shape).
		Build()
}
