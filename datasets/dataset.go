// Package datasets implements labeled image batches and the shuffled batch loader
package datasets

import "math/rand"

import "github.com/neurlang/cnntrain/layer"

// Samples is an indexable labeled dataset.
type Samples interface {

	// Len returns the number of samples.
	Len() int

	// Shape returns the shape of one sample, for example [3, 32, 32].
	Shape() []int

	// Sample writes sample i into dst and returns its label. rng drives
	// augmentation; a nil rng yields the unaugmented sample.
	Sample(i int, rng *rand.Rand, dst []float32) (label int)
}

// Batch is one mini-batch of inputs and labels.
type Batch struct {
	Index  int           // position of the batch within its epoch
	Inputs *layer.Tensor // [N, sample shape...]
	Labels []int         // N labels
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.Labels)
}
