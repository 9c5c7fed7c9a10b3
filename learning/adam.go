package learning

import "bytes"
import "encoding/binary"
import "errors"
import "fmt"
import "io"
import "math"

import "github.com/neurlang/cnntrain/layer"
import "github.com/neurlang/cnntrain/parallel"

var stateMagic = [4]byte{'N', 'L', 'A', '1'}

// Adam is the Adam optimizer over a fixed list of parameters.
type Adam struct {
	h      HyperParameters
	params []*layer.Param
	m, v   [][]float32
	step   uint64
}

// NewAdam creates an optimizer for params.
func NewAdam(params []*layer.Param, h HyperParameters) (*Adam, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	a := &Adam{h: h, params: params}
	a.m = make([][]float32, len(params))
	a.v = make([][]float32, len(params))
	for i, p := range params {
		a.m[i] = make([]float32, len(p.Value))
		a.v[i] = make([]float32, len(p.Value))
	}
	return a, nil
}

// HyperParameters returns the current hyperparameters.
func (a *Adam) HyperParameters() HyperParameters {
	return a.h
}

// Steps returns the number of optimization steps taken so far.
func (a *Adam) Steps() uint64 {
	return a.step
}

// ZeroGradients clears the gradients of all parameters.
func (a *Adam) ZeroGradients() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// Step applies one bias-corrected Adam update using the accumulated gradients.
func (a *Adam) Step() {
	a.step++
	h := a.h
	c1 := 1 - math.Pow(h.Beta1, float64(a.step))
	c2 := 1 - math.Pow(h.Beta2, float64(a.step))
	b1, b2 := float32(h.Beta1), float32(h.Beta2)
	wd := float32(h.WeightDecay)

	parallel.ForEach(len(a.params), parallel.Threads(), func(i int) {
		p, m, v := a.params[i], a.m[i], a.v[i]
		for j, g := range p.Grad {
			if wd != 0 {
				g += wd * p.Value[j]
			}
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g
			mHat := float64(m[j]) / c1
			vHat := float64(v[j]) / c2
			p.Value[j] -= float32(h.LearningRate * mHat / (math.Sqrt(vHat) + h.Epsilon))
		}
	})
}

// ExportState snapshots the step count, hyperparameters and moment estimates.
func (a *Adam) ExportState() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(stateMagic[:])
	var fixed = []uint64{
		a.step,
		math.Float64bits(a.h.LearningRate),
		math.Float64bits(a.h.Beta1),
		math.Float64bits(a.h.Beta2),
		math.Float64bits(a.h.Epsilon),
		math.Float64bits(a.h.WeightDecay),
		uint64(len(a.params)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, fixed); err != nil {
		return nil, err
	}
	for i := range a.params {
		if err := binary.Write(&buf, binary.LittleEndian, uint64(len(a.m[i]))); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, a.m[i]); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, a.v[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ImportState restores a blob made by ExportState, including the stored
// hyperparameters. The optimizer is left untouched on error.
func (a *Adam) ImportState(blob []byte) error {
	r := bytes.NewReader(blob)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("optimizer state header: %w", err)
	}
	if magic != stateMagic {
		return errors.New("optimizer state header: bad magic")
	}
	var fixed [7]uint64
	if err := binary.Read(r, binary.LittleEndian, fixed[:]); err != nil {
		return fmt.Errorf("optimizer state header: %w", err)
	}
	h := HyperParameters{
		LearningRate: math.Float64frombits(fixed[1]),
		Beta1:        math.Float64frombits(fixed[2]),
		Beta2:        math.Float64frombits(fixed[3]),
		Epsilon:      math.Float64frombits(fixed[4]),
		WeightDecay:  math.Float64frombits(fixed[5]),
	}
	if err := h.Validate(); err != nil {
		return fmt.Errorf("optimizer state: %w", err)
	}
	if fixed[6] != uint64(len(a.params)) {
		return fmt.Errorf("optimizer state holds %d parameters, optimizer has %d", fixed[6], len(a.params))
	}
	m := make([][]float32, len(a.params))
	v := make([][]float32, len(a.params))
	for i, p := range a.params {
		var size uint64
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("optimizer state %d: %w", i, err)
		}
		if size != uint64(len(p.Value)) {
			return fmt.Errorf("optimizer state %d: %d values, want %d", i, size, len(p.Value))
		}
		m[i] = make([]float32, size)
		v[i] = make([]float32, size)
		if err := binary.Read(r, binary.LittleEndian, m[i]); err != nil {
			return fmt.Errorf("optimizer state %d: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, v[i]); err != nil {
			return fmt.Errorf("optimizer state %d: %w", i, err)
		}
	}
	if r.Len() != 0 {
		return errors.New("optimizer state: trailing data")
	}
	a.step, a.h, a.m, a.v = fixed[0], h, m, v
	return nil
}
