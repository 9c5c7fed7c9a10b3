package layer

import "fmt"

// Tensor is a dense float32 tensor in row-major order. Image batches use
// the NCHW layout.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor allocates a zero tensor of the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, v := range shape {
		n *= v
	}
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, n),
	}
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dim returns the size of dimension n, or 0 if the tensor has fewer dimensions.
func (t *Tensor) Dim(n int) int {
	if n < 0 || n >= len(t.Shape) {
		return 0
	}
	return t.Shape[n]
}

// Batch returns the leading dimension.
func (t *Tensor) Batch() int {
	return t.Dim(0)
}

// SampleLen returns the number of elements per sample.
func (t *Tensor) SampleLen() int {
	if len(t.Shape) == 0 || t.Shape[0] == 0 {
		return 0
	}
	return len(t.Data) / t.Shape[0]
}

// Reshape returns a view sharing the data with a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n := 1
	for _, v := range shape {
		n *= v
	}
	if n != len(t.Data) {
		return nil, fmt.Errorf("reshape %v to %v: element count mismatch", t.Shape, shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: t.Data}, nil
}

// CheckRank verifies the tensor rank.
func (t *Tensor) CheckRank(rank int) error {
	if t == nil {
		return fmt.Errorf("nil tensor, want rank %d", rank)
	}
	if len(t.Shape) != rank {
		return fmt.Errorf("tensor shape %v, want rank %d", t.Shape, rank)
	}
	return nil
}

// SameShape reports whether both tensors have identical shapes.
func SameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}
