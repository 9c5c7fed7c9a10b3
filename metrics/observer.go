package metrics

import "context"

import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/trainer"

// Observer writes the epoch loss under LossTag. A failed write is logged and
// does not stop training.
type Observer struct {
	trainer.NopObserver
	Log    *Log
	Logger *zap.Logger
}

func (o Observer) EpochDone(epoch int, loss float64) {
	if err := o.Log.AddScalar(context.Background(), LossTag, epoch, loss); err != nil && o.Logger != nil {
		o.Logger.Warn("metric not recorded", zap.Error(err))
	}
}
