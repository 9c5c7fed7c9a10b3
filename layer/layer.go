package layer

import "math/rand"

// Layer is the layer which can be used for instantiating a combiner
type Layer interface {

	// Lay creates a combiner. Trainable weights are initialized from rng.
	Lay(rng *rand.Rand) Combiner
}
