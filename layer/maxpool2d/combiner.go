package maxpool2d

import "errors"
import "fmt"
import "github.com/neurlang/cnntrain/layer"
import "github.com/neurlang/cnntrain/parallel"

// Params returns nil, pooling has no weights.
func (p *MaxPool2D) Params() []*layer.Param {
	return nil
}

// Forward pools every channel of a [N, C, H, W] batch. Trailing rows and
// columns that do not fill a window are dropped.
func (p *MaxPool2D) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	if err := x.CheckRank(4); err != nil {
		return nil, fmt.Errorf("maxpool2d: %w", err)
	}
	n, c, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	if h < p.size || w < p.size {
		return nil, fmt.Errorf("maxpool2d: input %dx%d smaller than window %d", h, w, p.size)
	}
	oh, ow := (h-p.size)/p.stride+1, (w-p.size)/p.stride+1
	y := layer.NewTensor(n, c, oh, ow)
	argmax := make([]int32, y.Len())

	parallel.ForEach(n*c, parallel.Threads(), func(j int) {
		base := j * h * w
		src := x.Data[base : base+h*w]
		for yi := 0; yi < oh; yi++ {
			for xj := 0; xj < ow; xj++ {
				best := (yi*p.stride)*w + xj*p.stride
				for di := 0; di < p.size; di++ {
					for dj := 0; dj < p.size; dj++ {
						at := (yi*p.stride+di)*w + xj*p.stride + dj
						if src[at] > src[best] {
							best = at
						}
					}
				}
				out := j*oh*ow + yi*ow + xj
				y.Data[out] = src[best]
				argmax[out] = int32(base + best)
			}
		}
	})
	p.inShape = append(p.inShape[:0], x.Shape...)
	p.argmax = argmax
	return y, nil
}

// Backward routes each output gradient to the input position that won the window.
func (p *MaxPool2D) Backward(grad *layer.Tensor) (*layer.Tensor, error) {
	if p.argmax == nil {
		return nil, errors.New("maxpool2d: backward before forward")
	}
	if grad.Len() != len(p.argmax) {
		return nil, fmt.Errorf("maxpool2d: gradient has %d elements, want %d", grad.Len(), len(p.argmax))
	}
	dx := layer.NewTensor(p.inShape...)
	// windows never overlap across channels, so every channel owns its slice of dx
	perChannel := len(p.argmax) / (p.inShape[0] * p.inShape[1])
	parallel.ForEach(p.inShape[0]*p.inShape[1], parallel.Threads(), func(j int) {
		for i := j * perChannel; i < (j+1)*perChannel; i++ {
			dx.Data[p.argmax[i]] += grad.Data[i]
		}
	})
	return dx, nil
}
