// Package maxpool2d implements a 2D max pooling layer and combiner
package maxpool2d

import "fmt"
import "math/rand"
import "github.com/neurlang/cnntrain/layer"

type MaxPool2DLayer struct {
	size, stride int
}

type MaxPool2D struct {
	size, stride int

	inShape []int
	argmax  []int32
}

// MustNew creates a new MaxPool2D layer with window size and stride
func MustNew(size, stride int) *MaxPool2DLayer {
	o, err := New(size, stride)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new MaxPool2D layer with window size and stride
func New(size, stride int) (o *MaxPool2DLayer, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("New MaxPool2D: size %d must be positive", size)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("New MaxPool2D: stride %d must be positive", stride)
	}
	o = new(MaxPool2DLayer)
	o.size = size
	o.stride = stride
	return
}

// Lay turns MaxPool2D layer into a combiner
func (i *MaxPool2DLayer) Lay(*rand.Rand) layer.Combiner {
	return &MaxPool2D{size: i.size, stride: i.stride}
}
