// Package feedforward implements a feedforward network type
package feedforward

import "errors"
import "fmt"
import "math/rand"

import "github.com/neurlang/cnntrain/layer"

// FeedforwardNetwork is the feedforward network. Layers run in the order they
// were added.
type FeedforwardNetwork struct {
	layers    []layer.Layer
	combiners []layer.Combiner
	rng       *rand.Rand
}

// New creates an empty network whose weights will be initialized from seed.
func New(seed int64) *FeedforwardNetwork {
	return &FeedforwardNetwork{rng: rand.New(rand.NewSource(seed))}
}

// NewCombiner adds a layer to the end of network and lays it.
func (f *FeedforwardNetwork) NewCombiner(l layer.Layer) {
	if f.rng == nil {
		f.rng = rand.New(rand.NewSource(0))
	}
	f.layers = append(f.layers, l)
	f.combiners = append(f.combiners, l.Lay(f.rng))
}

// LenLayers returns the number of layers.
func (f *FeedforwardNetwork) LenLayers() int {
	return len(f.combiners)
}

// Len returns the number of trainable scalars inside the network.
func (f *FeedforwardNetwork) Len() (o int) {
	for _, p := range f.Parameters() {
		o += len(p.Value)
	}
	return
}

// Parameters returns every trainable parameter, layer by layer.
func (f *FeedforwardNetwork) Parameters() (o []*layer.Param) {
	for _, c := range f.combiners {
		o = append(o, c.Params()...)
	}
	return
}

// paramName is the stable name of a parameter used in weight files.
func paramName(n int, p *layer.Param) string {
	return fmt.Sprintf("%d.%s", n, p.Name)
}

// Forward infers the network output for a batch.
func (f *FeedforwardNetwork) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	if len(f.combiners) == 0 {
		return nil, errors.New("feedforward: network has no layers")
	}
	var err error
	for n, c := range f.combiners {
		x, err = c.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", n, err)
		}
	}
	return x, nil
}

// Backward propagates the output gradient of the last Forward through every
// layer, accumulating parameter gradients.
func (f *FeedforwardNetwork) Backward(grad *layer.Tensor) error {
	var err error
	for n := len(f.combiners) - 1; n >= 0; n-- {
		grad, err = f.combiners[n].Backward(grad)
		if err != nil {
			return fmt.Errorf("layer %d: %w", n, err)
		}
	}
	return nil
}

// Classify returns the arg max class of every sample in the batch.
func (f *FeedforwardNetwork) Classify(x *layer.Tensor) ([]int, error) {
	y, err := f.Forward(x)
	if err != nil {
		return nil, err
	}
	n := y.Batch()
	classes := y.SampleLen()
	o := make([]int, n)
	for s := 0; s < n; s++ {
		row := y.Data[s*classes : (s+1)*classes]
		for c := range row {
			if row[c] > row[o[s]] {
				o[s] = c
			}
		}
	}
	return o, nil
}
