package trainer

import "context"
import "encoding/binary"
import "errors"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/datasets"
import "github.com/neurlang/cnntrain/layer"

// counterModel counts backward passes; its parameters are that count.
type counterModel struct {
	updates    uint64
	failImport bool
}

func (m *counterModel) Forward(x *layer.Tensor) (*layer.Tensor, error) {
	return layer.NewTensor(1, 1), nil
}

func (m *counterModel) Backward(grad *layer.Tensor) error {
	m.updates++
	return nil
}

func (m *counterModel) ExportParameters() ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, m.updates), nil
}

func (m *counterModel) ImportParameters(blob []byte) error {
	if m.failImport || len(blob) != 8 {
		return errors.New("bad parameters")
	}
	m.updates = binary.LittleEndian.Uint64(blob)
	return nil
}

// counterOptimizer records the order of calls and counts steps.
type counterOptimizer struct {
	steps uint64
	calls []string
}

func (o *counterOptimizer) ZeroGradients() { o.calls = append(o.calls, "zero") }

func (o *counterOptimizer) Step() {
	o.steps++
	o.calls = append(o.calls, "step")
}

func (o *counterOptimizer) ExportState() ([]byte, error) {
	return binary.LittleEndian.AppendUint64(nil, o.steps), nil
}

func (o *counterOptimizer) ImportState(blob []byte) error {
	if len(blob) != 8 {
		return errors.New("bad state")
	}
	o.steps = binary.LittleEndian.Uint64(blob)
	return nil
}

// scriptedLoss returns the scripted losses in order.
type scriptedLoss struct {
	losses []float64
	calls  int
	hook   func(call int)
}

func (s *scriptedLoss) Compute(p *layer.Tensor, labels []int) (float64, *layer.Tensor, error) {
	if s.calls >= len(s.losses) {
		return 0, nil, errors.New("loss script exhausted")
	}
	if s.hook != nil {
		s.hook(s.calls)
	}
	l := s.losses[s.calls]
	s.calls++
	return l, layer.NewTensor(1, 1), nil
}

// fixedSource yields n batches per epoch and records the epochs iterated.
type fixedSource struct {
	n      int
	epochs []int
}

func (f *fixedSource) Len() int { return f.n }

func (f *fixedSource) Iterate(ctx context.Context, epoch int, yield func(datasets.Batch) error) error {
	f.epochs = append(f.epochs, epoch)
	for i := 0; i < f.n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(datasets.Batch{Index: i, Inputs: layer.NewTensor(1, 1), Labels: []int{0}}); err != nil {
			return err
		}
	}
	return nil
}

// recorder is an observer that keeps the events.
type recorder struct {
	NopObserver
	running []float64
	epochs  []float64
	best    []bool
}

func (r *recorder) BatchDone(epoch, batch int, loss float64) { r.running = append(r.running, loss) }
func (r *recorder) EpochDone(epoch int, loss float64)        { r.epochs = append(r.epochs, loss) }
func (r *recorder) Checkpointed(_ *checkpoint.TrainingState, best bool) {
	r.best = append(r.best, best)
}

// labelSource yields one single-sample batch per label.
type labelSource struct {
	labels []int
}

func (l *labelSource) Len() int { return len(l.labels) }

func (l *labelSource) Iterate(ctx context.Context, epoch int, yield func(datasets.Batch) error) error {
	for i, label := range l.labels {
		if err := yield(datasets.Batch{Index: i, Inputs: layer.NewTensor(1, 1), Labels: []int{label}}); err != nil {
			return err
		}
	}
	return nil
}
