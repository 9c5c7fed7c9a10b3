// Package full implements a fully connected layer and combiner
package full

import "fmt"
import "math"
import "math/rand"
import "github.com/neurlang/cnntrain/layer"

type FullLayer struct {
	in, out int
}

type Full struct {
	in, out int

	weight *layer.Param // [out, in]
	bias   *layer.Param // [out]

	input *layer.Tensor
}

// MustNew creates a new full layer with input and output size
func MustNew(in, out int) *FullLayer {
	o, err := New(in, out)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new full layer with input and output size
func New(in, out int) (o *FullLayer, err error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("New Full: size %d -> %d must be positive", in, out)
	}
	o = new(FullLayer)
	o.in = in
	o.out = out
	return
}

// Lay turns full layer into a combiner
func (i *FullLayer) Lay(rng *rand.Rand) layer.Combiner {
	o := new(Full)
	o.in = i.in
	o.out = i.out
	o.weight = layer.NewParam("weight", i.out*i.in)
	o.bias = layer.NewParam("bias", i.out)
	bound := 1 / math.Sqrt(float64(i.in))
	layer.Uniform(rng, o.weight.Value, bound)
	layer.Uniform(rng, o.bias.Value, bound)
	return o
}
