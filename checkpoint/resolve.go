package checkpoint

import "context"
import "fmt"
import "math"

// Resume is where a run starts.
type Resume struct {
	// Epoch is the first epoch to run.
	Epoch int

	// BestLoss seeds the best loss so far. It comes from the latest
	// checkpoint, not from the best one.
	BestLoss float64

	// State is the decoded latest checkpoint, nil for a fresh run.
	State *TrainingState
}

// Fresh reports whether no checkpoint was found.
func (r Resume) Fresh() bool {
	return r.State == nil
}

// Resolve reads the latest checkpoint and decides where to start. A missing
// checkpoint starts a fresh run at epoch 0 with an infinite best loss. A
// corrupt one is an error wrapping ErrCorrupt.
func Resolve(ctx context.Context, store Store) (Resume, error) {
	blob, ok, err := store.Read(ctx, Latest)
	if err != nil {
		return Resume{}, err
	}
	if !ok {
		return Resume{Epoch: 0, BestLoss: math.Inf(1)}, nil
	}
	state, err := Decode(blob)
	if err != nil {
		return Resume{}, fmt.Errorf("resume from %s: %w", Latest, err)
	}
	// TODO: seed BestLoss from the best checkpoint once the product decision
	// on resumed runs overwriting a better earlier best is made.
	return Resume{Epoch: state.Epoch, BestLoss: state.Loss, State: state}, nil
}
