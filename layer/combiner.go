// Package layer defines the tensor type and the custom combiner and layer interface
package layer

import "math/rand"

// Combiner is a laid layer. It owns its parameters and caches whatever the
// last Forward needs for the following Backward.
type Combiner interface {

	// Forward computes the output of the combiner for a batch.
	Forward(x *Tensor) (*Tensor, error)

	// Backward takes the gradient with respect to the last Forward output,
	// accumulates parameter gradients and returns the gradient with respect
	// to the last Forward input.
	Backward(grad *Tensor) (*Tensor, error)

	// Params returns the trainable parameters, nil if there are none.
	Params() []*Param
}

// Param is one trainable parameter with its accumulated gradient.
type Param struct {
	Name  string
	Value []float32
	Grad  []float32
}

// NewParam allocates a zero parameter of size n.
func NewParam(name string, n int) *Param {
	return &Param{
		Name:  name,
		Value: make([]float32, n),
		Grad:  make([]float32, n),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Uniform fills v with values drawn uniformly from [-bound, bound).
func Uniform(rng *rand.Rand, v []float32, bound float64) {
	for i := range v {
		v[i] = float32((rng.Float64()*2 - 1) * bound)
	}
}
