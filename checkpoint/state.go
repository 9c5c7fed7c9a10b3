// Package checkpoint persists resumable training progress: the TrainingState
// record, its binary codec, an atomic directory store and the resume resolver.
package checkpoint

import "bytes"
import "math"

// Names of the two checkpoints kept per run.
const (
	Latest = "latest_checkpoint"
	Best   = "best_checkpoint"
)

// TrainingState is the unit of persistence. It is never modified after being
// written; every epoch produces a new one.
type TrainingState struct {
	// Epoch is the number of completed epochs, i.e. the next epoch to run.
	Epoch int

	// ModelParameters and OptimizerState are opaque snapshots taken from the
	// model and the optimizer at the same point of training.
	ModelParameters []byte
	OptimizerState  []byte

	// Loss is the mean training loss of the epoch that produced this state.
	Loss float64
}

// Equal reports whether two states are identical. Blobs compare by content,
// losses by their bits so that NaN equals itself.
func (s *TrainingState) Equal(o *TrainingState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Epoch == o.Epoch &&
		math.Float64bits(s.Loss) == math.Float64bits(o.Loss) &&
		bytes.Equal(s.ModelParameters, o.ModelParameters) &&
		bytes.Equal(s.OptimizerState, o.OptimizerState)
}
