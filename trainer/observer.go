package trainer

import "github.com/neurlang/cnntrain/checkpoint"

// Observer is told about the progress of the loop. Calls come from the loop
// goroutine and must not block for long.
type Observer interface {
	EpochStarted(epoch, batches int)
	BatchDone(epoch, batch int, runningLoss float64)
	EpochDone(epoch int, loss float64)
	Checkpointed(state *checkpoint.TrainingState, best bool)
}

// NopObserver ignores everything. Embed it to implement a part of Observer.
type NopObserver struct{}

func (NopObserver) EpochStarted(int, int)                        {}
func (NopObserver) BatchDone(int, int, float64)                  {}
func (NopObserver) EpochDone(int, float64)                       {}
func (NopObserver) Checkpointed(*checkpoint.TrainingState, bool) {}

// Observers fans out to every observer in order.
type Observers []Observer

func (o Observers) EpochStarted(epoch, batches int) {
	for _, x := range o {
		x.EpochStarted(epoch, batches)
	}
}

func (o Observers) BatchDone(epoch, batch int, runningLoss float64) {
	for _, x := range o {
		x.BatchDone(epoch, batch, runningLoss)
	}
}

func (o Observers) EpochDone(epoch int, loss float64) {
	for _, x := range o {
		x.EpochDone(epoch, loss)
	}
}

func (o Observers) Checkpointed(state *checkpoint.TrainingState, best bool) {
	for _, x := range o {
		x.Checkpointed(state, best)
	}
}
