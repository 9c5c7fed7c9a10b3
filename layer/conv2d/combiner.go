package conv2d

import "errors"
import "fmt"
import "github.com/neurlang/cnntrain/layer"
import "github.com/neurlang/cnntrain/parallel"

// Params returns weight and bias.
func (c *Conv2D) Params() []*layer.Param {
	return []*layer.Param{c.weight, c.bias}
}

// Forward convolves a [N, in, H, W] batch into [N, out, H-k+1, W-k+1].
func (c *Conv2D) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	if err := x.CheckRank(4); err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	n, ic, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	k := c.kernel
	if ic != c.in {
		return nil, fmt.Errorf("conv2d: input has %d channels, want %d", ic, c.in)
	}
	if h < k || w < k {
		return nil, fmt.Errorf("conv2d: input %dx%d smaller than kernel %d", h, w, k)
	}
	oh, ow := h-k+1, w-k+1
	y := layer.NewTensor(n, c.out, oh, ow)
	wt, b := c.weight.Value, c.bias.Value

	parallel.ForEach(n*c.out, parallel.Threads(), func(j int) {
		s, o := j/c.out, j%c.out
		dst := y.Data[j*oh*ow : (j+1)*oh*ow]
		for i := range dst {
			dst[i] = b[o]
		}
		for ci := 0; ci < ic; ci++ {
			src := x.Data[(s*ic+ci)*h*w : (s*ic+ci+1)*h*w]
			ker := wt[(o*ic+ci)*k*k : (o*ic+ci+1)*k*k]
			for ki := 0; ki < k; ki++ {
				for kj := 0; kj < k; kj++ {
					wv := ker[ki*k+kj]
					for yi := 0; yi < oh; yi++ {
						row := src[(yi+ki)*w+kj : (yi+ki)*w+kj+ow]
						out := dst[yi*ow : (yi+1)*ow]
						for xj := range out {
							out[xj] += wv * row[xj]
						}
					}
				}
			}
		}
	})
	c.input = x
	return y, nil
}

// Backward accumulates weight and bias gradients and returns the input gradient.
func (c *Conv2D) Backward(grad *layer.Tensor) (*layer.Tensor, error) {
	x := c.input
	if x == nil {
		return nil, errors.New("conv2d: backward before forward")
	}
	n, ic, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	k := c.kernel
	oh, ow := h-k+1, w-k+1
	if err := grad.CheckRank(4); err != nil {
		return nil, fmt.Errorf("conv2d: %w", err)
	}
	if grad.Shape[0] != n || grad.Shape[1] != c.out || grad.Shape[2] != oh || grad.Shape[3] != ow {
		return nil, fmt.Errorf("conv2d: gradient shape %v, want [%d %d %d %d]", grad.Shape, n, c.out, oh, ow)
	}
	wt := c.weight.Value
	dw, db := c.weight.Grad, c.bias.Grad

	// each output channel owns its slice of dw and db
	parallel.ForEach(c.out, parallel.Threads(), func(o int) {
		for s := 0; s < n; s++ {
			g := grad.Data[(s*c.out+o)*oh*ow : (s*c.out+o+1)*oh*ow]
			var sum float32
			for _, v := range g {
				sum += v
			}
			db[o] += sum
			for ci := 0; ci < ic; ci++ {
				src := x.Data[(s*ic+ci)*h*w : (s*ic+ci+1)*h*w]
				dker := dw[(o*ic+ci)*k*k : (o*ic+ci+1)*k*k]
				for ki := 0; ki < k; ki++ {
					for kj := 0; kj < k; kj++ {
						var acc float32
						for yi := 0; yi < oh; yi++ {
							row := src[(yi+ki)*w+kj : (yi+ki)*w+kj+ow]
							gr := g[yi*ow : (yi+1)*ow]
							for xj := range gr {
								acc += gr[xj] * row[xj]
							}
						}
						dker[ki*k+kj] += acc
					}
				}
			}
		}
	})

	dx := layer.NewTensor(x.Shape...)
	// each sample owns its slice of dx
	parallel.ForEach(n, parallel.Threads(), func(s int) {
		for o := 0; o < c.out; o++ {
			g := grad.Data[(s*c.out+o)*oh*ow : (s*c.out+o+1)*oh*ow]
			for ci := 0; ci < ic; ci++ {
				dst := dx.Data[(s*ic+ci)*h*w : (s*ic+ci+1)*h*w]
				ker := wt[(o*ic+ci)*k*k : (o*ic+ci+1)*k*k]
				for ki := 0; ki < k; ki++ {
					for kj := 0; kj < k; kj++ {
						wv := ker[ki*k+kj]
						for yi := 0; yi < oh; yi++ {
							row := dst[(yi+ki)*w+kj : (yi+ki)*w+kj+ow]
							gr := g[yi*ow : (yi+1)*ow]
							for xj := range gr {
								row[xj] += wv * gr[xj]
							}
						}
					}
				}
			}
		}
	})
	return dx, nil
}
