package full

import "math"
import "math/rand"
import "testing"

import "github.com/neurlang/cnntrain/layer"

func TestFullForwardKnownValues(t *testing.T) {
	f := MustNew(3, 2).Lay(rand.New(rand.NewSource(1))).(*Full)
	copy(f.weight.Value, []float32{1, 2, 3, -1, 0, 1})
	copy(f.bias.Value, []float32{0.5, -0.5})

	// a [1, 3, 1, 1] input gets flattened
	x := &layer.Tensor{Shape: []int{1, 3, 1, 1}, Data: []float32{1, 1, 2}}
	y, err := f.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if y.Data[0] != 9.5 || y.Data[1] != 0.5 {
		t.Errorf("got %v, want [9.5 0.5]", y.Data)
	}

	dx, err := f.Backward(&layer.Tensor{Shape: []int{1, 2}, Data: []float32{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(dx.Shape) != 4 {
		t.Errorf("input gradient shape %v, want the input shape", dx.Shape)
	}
	want := []float32{-1, 2, 5}
	for i := range want {
		if dx.Data[i] != want[i] {
			t.Errorf("dx = %v, want %v", dx.Data, want)
			break
		}
	}
	if f.bias.Grad[0] != 1 || f.bias.Grad[1] != 2 {
		t.Errorf("bias grad = %v", f.bias.Grad)
	}
	if f.weight.Grad[5] != 4 {
		t.Errorf("weight grad = %v", f.weight.Grad)
	}
}

func TestFullGradientAccumulates(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	f := MustNew(4, 3).Lay(rng)
	x := layer.NewTensor(2, 4)
	for i := range x.Data {
		x.Data[i] = float32(rng.NormFloat64())
	}
	g := layer.NewTensor(2, 3)
	for i := range g.Data {
		g.Data[i] = 1
	}
	for i := 0; i < 2; i++ {
		if _, err := f.Forward(x); err != nil {
			t.Fatal(err)
		}
		if _, err := f.Backward(g); err != nil {
			t.Fatal(err)
		}
	}
	bias := f.Params()[1]
	for _, v := range bias.Grad {
		if math.Abs(float64(v)-4) > 1e-6 {
			t.Fatalf("bias grad %v, want 4 after two backward passes", bias.Grad)
		}
	}
	bias.ZeroGrad()
	for _, v := range bias.Grad {
		if v != 0 {
			t.Fatal("ZeroGrad left a non-zero value")
		}
	}
}

func TestFullRejectsWrongWidth(t *testing.T) {
	f := MustNew(4, 3).Lay(rand.New(rand.NewSource(1)))
	if _, err := f.Forward(layer.NewTensor(2, 5)); err == nil {
		t.Error("expected feature count error")
	}
}
