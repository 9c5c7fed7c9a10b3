package feedforward

import "github.com/neurlang/cnntrain/layer/conv2d"
import "github.com/neurlang/cnntrain/layer/full"
import "github.com/neurlang/cnntrain/layer/maxpool2d"
import "github.com/neurlang/cnntrain/layer/relu"

// SimpleNetClasses is the number of logits produced by SimpleNet.
const SimpleNetClasses = 10

// SimpleNet builds the small CIFAR-10 convolutional classifier: two 5x5
// convolutions with max pooling followed by three fully connected layers.
// Input is [N, 3, 32, 32], output is [N, 10] logits.
func SimpleNet(seed int64) *FeedforwardNetwork {
	var net = New(seed)
	net.NewCombiner(conv2d.MustNew(3, 6, 5))
	net.NewCombiner(relu.New())
	net.NewCombiner(maxpool2d.MustNew(2, 2))
	net.NewCombiner(conv2d.MustNew(6, 16, 5))
	net.NewCombiner(relu.New())
	net.NewCombiner(maxpool2d.MustNew(2, 2))
	net.NewCombiner(full.MustNew(16*5*5, 120))
	net.NewCombiner(relu.New())
	net.NewCombiner(full.MustNew(120, 84))
	net.NewCombiner(relu.New())
	net.NewCombiner(full.MustNew(84, SimpleNetClasses))
	return net
}
