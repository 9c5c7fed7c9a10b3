package full

import "errors"
import "fmt"
import "github.com/neurlang/cnntrain/layer"
import "github.com/neurlang/cnntrain/parallel"

// Params returns weight and bias.
func (f *Full) Params() []*layer.Param {
	return []*layer.Param{f.weight, f.bias}
}

// Forward flattens every sample and maps it to [N, out].
func (f *Full) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	if x == nil || len(x.Shape) < 2 {
		return nil, errors.New("full: input needs a batch dimension")
	}
	n := x.Batch()
	if x.SampleLen() != f.in {
		return nil, fmt.Errorf("full: sample has %d features, want %d", x.SampleLen(), f.in)
	}
	y := layer.NewTensor(n, f.out)
	wt, b := f.weight.Value, f.bias.Value

	parallel.ForEach(n, parallel.Threads(), func(s int) {
		src := x.Data[s*f.in : (s+1)*f.in]
		dst := y.Data[s*f.out : (s+1)*f.out]
		for o := range dst {
			row := wt[o*f.in : (o+1)*f.in]
			acc := b[o]
			for i, v := range src {
				acc += row[i] * v
			}
			dst[o] = acc
		}
	})
	f.input = x
	return y, nil
}

// Backward accumulates weight and bias gradients and returns the input gradient
// in the shape of the last input.
func (f *Full) Backward(grad *layer.Tensor) (*layer.Tensor, error) {
	x := f.input
	if x == nil {
		return nil, errors.New("full: backward before forward")
	}
	n := x.Batch()
	if grad.Len() != n*f.out {
		return nil, fmt.Errorf("full: gradient shape %v, want [%d %d]", grad.Shape, n, f.out)
	}
	wt := f.weight.Value
	dw, db := f.weight.Grad, f.bias.Grad

	parallel.ForEach(f.out, parallel.Threads(), func(o int) {
		row := dw[o*f.in : (o+1)*f.in]
		for s := 0; s < n; s++ {
			g := grad.Data[s*f.out+o]
			db[o] += g
			src := x.Data[s*f.in : (s+1)*f.in]
			for i, v := range src {
				row[i] += g * v
			}
		}
	})

	dx := layer.NewTensor(x.Shape...)
	parallel.ForEach(n, parallel.Threads(), func(s int) {
		dst := dx.Data[s*f.in : (s+1)*f.in]
		for o := 0; o < f.out; o++ {
			g := grad.Data[s*f.out+o]
			row := wt[o*f.in : (o+1)*f.in]
			for i := range dst {
				dst[i] += g * row[i]
			}
		}
	})
	return dx, nil
}
