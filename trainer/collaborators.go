package trainer

import "context"

import "github.com/neurlang/cnntrain/datasets"
import "github.com/neurlang/cnntrain/layer"

// Model is the network being trained.
type Model interface {
	Forward(x *layer.Tensor) (*layer.Tensor, error)
	Backward(grad *layer.Tensor) error
	ExportParameters() ([]byte, error)
	ImportParameters(blob []byte) error
}

// Optimizer updates the model parameters from their gradients.
type Optimizer interface {
	ZeroGradients()
	Step()
	ExportState() ([]byte, error)
	ImportState(blob []byte) error
}

// Criterion computes the scalar loss and its gradient with respect to the
// predictions.
type Criterion interface {
	Compute(predictions *layer.Tensor, labels []int) (float64, *layer.Tensor, error)
}

// DataSource yields the batches of one epoch. Every epoch is a fresh, finite
// pass; the batch order may depend on the epoch.
type DataSource interface {
	Len() int
	Iterate(ctx context.Context, epoch int, yield func(datasets.Batch) error) error
}
