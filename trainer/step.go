package trainer

import "context"
import "fmt"

import "github.com/neurlang/cnntrain/datasets"

// Executor performs single optimization steps.
type Executor struct {
	Model     Model
	Optimizer Optimizer
	Criterion Criterion
}

// Step zeroes the gradients, runs the forward pass, computes the loss,
// backpropagates it and updates the parameters. It returns the batch loss.
func (x *Executor) Step(ctx context.Context, b datasets.Batch) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x.Optimizer.ZeroGradients()
	out, err := x.Model.Forward(b.Inputs)
	if err != nil {
		return 0, fmt.Errorf("batch %d: forward: %w", b.Index, err)
	}
	loss, grad, err := x.Criterion.Compute(out, b.Labels)
	if err != nil {
		return 0, fmt.Errorf("batch %d: loss: %w", b.Index, err)
	}
	if err := x.Model.Backward(grad); err != nil {
		return 0, fmt.Errorf("batch %d: backward: %w", b.Index, err)
	}
	x.Optimizer.Step()
	return loss, nil
}
