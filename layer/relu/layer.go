// Package relu implements the rectified linear activation as a layer and combiner
package relu

import "errors"
import "math/rand"
import "github.com/neurlang/cnntrain/layer"

type ReLULayer struct{}

type ReLU struct {
	mask []bool
}

// New creates a new ReLU layer
func New() *ReLULayer {
	return new(ReLULayer)
}

// Lay turns ReLU layer into a combiner
func (i *ReLULayer) Lay(*rand.Rand) layer.Combiner {
	return new(ReLU)
}

// Params returns nil, the activation has no weights.
func (r *ReLU) Params() []*layer.Param {
	return nil
}

// Forward zeroes negative inputs. The output keeps the input shape.
func (r *ReLU) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	if x == nil {
		return nil, errors.New("relu: nil input")
	}
	y := layer.NewTensor(x.Shape...)
	if cap(r.mask) < x.Len() {
		r.mask = make([]bool, x.Len())
	}
	r.mask = r.mask[:x.Len()]
	for i, v := range x.Data {
		r.mask[i] = v > 0
		if r.mask[i] {
			y.Data[i] = v
		}
	}
	return y, nil
}

// Backward passes gradients through the positions that were positive.
func (r *ReLU) Backward(grad *layer.Tensor) (*layer.Tensor, error) {
	if grad.Len() != len(r.mask) {
		return nil, errors.New("relu: gradient does not match the last forward")
	}
	dx := layer.NewTensor(grad.Shape...)
	for i, ok := range r.mask {
		if ok {
			dx.Data[i] = grad.Data[i]
		}
	}
	return dx, nil
}
