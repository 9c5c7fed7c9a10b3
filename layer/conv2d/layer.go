// Package conv2d implements a 2D convolution layer and combiner
package conv2d

import "fmt"
import "math"
import "math/rand"
import "github.com/neurlang/cnntrain/layer"

// Conv2DLayer is a valid (unpadded, stride 1) square-kernel convolution.
type Conv2DLayer struct {
	in, out, kernel int
}

type Conv2D struct {
	in, out, kernel int

	weight *layer.Param // [out, in, kernel, kernel]
	bias   *layer.Param // [out]

	input *layer.Tensor
}

// MustNew creates a new Conv2D layer with input channels, output channels and kernel size
func MustNew(in, out, kernel int) *Conv2DLayer {
	o, err := New(in, out, kernel)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new Conv2D layer with input channels, output channels and kernel size
func New(in, out, kernel int) (o *Conv2DLayer, err error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("New Conv2D: channels %d -> %d must be positive", in, out)
	}
	if kernel <= 0 {
		return nil, fmt.Errorf("New Conv2D: kernel %d must be positive", kernel)
	}
	o = new(Conv2DLayer)
	o.in = in
	o.out = out
	o.kernel = kernel
	return
}

// Lay turns Conv2D layer into a combiner. Weights and biases are drawn from
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func (i *Conv2DLayer) Lay(rng *rand.Rand) layer.Combiner {
	var o Conv2D
	o.in = i.in
	o.out = i.out
	o.kernel = i.kernel
	o.weight = layer.NewParam("weight", i.out*i.in*i.kernel*i.kernel)
	o.bias = layer.NewParam("bias", i.out)
	bound := 1 / math.Sqrt(float64(i.in*i.kernel*i.kernel))
	layer.Uniform(rng, o.weight.Value, bound)
	layer.Uniform(rng, o.bias.Value, bound)
	return &o
}
