package trainer

import "fmt"

import "github.com/neurlang/cnntrain/checkpoint"

// Restore loads a checkpoint into the model and the optimizer. Both imports
// must succeed before any epoch runs.
func Restore(model Model, optimizer Optimizer, state *checkpoint.TrainingState) error {
	if state == nil {
		return nil
	}
	if err := model.ImportParameters(state.ModelParameters); err != nil {
		return fmt.Errorf("restore model parameters: %w", err)
	}
	if err := optimizer.ImportState(state.OptimizerState); err != nil {
		return fmt.Errorf("restore optimizer state: %w", err)
	}
	return nil
}

// Snapshot captures the model and the optimizer after the last step of epoch.
func Snapshot(model Model, optimizer Optimizer, epoch int, loss float64) (*checkpoint.TrainingState, error) {
	params, err := model.ExportParameters()
	if err != nil {
		return nil, fmt.Errorf("export model parameters: %w", err)
	}
	optim, err := optimizer.ExportState()
	if err != nil {
		return nil, fmt.Errorf("export optimizer state: %w", err)
	}
	return &checkpoint.TrainingState{
		Epoch:           epoch,
		ModelParameters: params,
		OptimizerState:  optim,
		Loss:            loss,
	}, nil
}
