package main

import "context"

import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/trainer"

// mirror copies every new checkpoint of the run to a second store. A failed
// copy is logged; the primary store stays authoritative.
type mirror struct {
	trainer.NopObserver
	ctx    context.Context
	src    checkpoint.Store
	dst    checkpoint.Store
	logger *zap.Logger
}

func (m mirror) Checkpointed(state *checkpoint.TrainingState, best bool) {
	res, err := checkpoint.Sync(m.ctx, m.src, m.dst, false)
	if err != nil {
		m.logger.Warn("checkpoint mirror failed", zap.Int("epoch", state.Epoch), zap.Error(err))
		return
	}
	m.logger.Debug("checkpoint mirrored", zap.Int("epoch", state.Epoch), zap.Strings("copied", res.Copied))
}

// seed fills primary from the mirror when primary has no latest checkpoint.
func seed(ctx context.Context, primary, mirror checkpoint.Store, logger *zap.Logger) error {
	ok, err := primary.Exists(ctx, checkpoint.Latest)
	if err != nil || ok {
		return err
	}
	res, err := checkpoint.Sync(ctx, mirror, primary, false)
	if err != nil {
		return err
	}
	if len(res.Copied) > 0 {
		logger.Info("checkpoints restored from mirror", zap.Strings("names", res.Copied))
	}
	return nil
}
