package trainer

import "context"
import "errors"
import "fmt"
import "math"

import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/datasets"

// ErrNoBatches is returned when an epoch yields no batch, as its mean loss
// would be undefined.
var ErrNoBatches = errors.New("trainer: epoch produced no batches")

// Controller runs epochs until Epochs are completed, resuming from the
// latest checkpoint in Store. After every epoch the state is written to the
// latest checkpoint, and to the best one when its loss is strictly lower
// than the best loss of the run.
type Controller struct {
	Store     checkpoint.Store
	Model     Model
	Optimizer Optimizer
	Criterion Criterion
	Data      DataSource

	// Epochs is the total number of epochs of the run, including those
	// completed before a resume.
	Epochs int

	Logger   *zap.Logger // may be nil
	Observer Observer    // may be nil

	state State
	epoch int
}

// Result summarizes a finished run.
type Result struct {
	Start    int                       // first epoch run by this process
	Epochs   int                       // epochs run by this process
	Final    *checkpoint.TrainingState // last state written, or the resumed one
	BestLoss float64
}

// State returns the current state and the epoch it refers to.
func (c *Controller) State() (State, int) {
	return c.state, c.epoch
}

func (c *Controller) enter(s State, epoch int) {
	c.state, c.epoch = s, epoch
	c.Logger.Debug("state", zap.Stringer("state", s), zap.Int("epoch", epoch))
}

// Run drives the loop to Terminated. Cancelling ctx aborts the running epoch;
// the store then still holds the last completed one. A checkpoint already
// being written is finished before the cancellation is reported.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	c.enter(Resuming, 0)
	resume, err := checkpoint.Resolve(ctx, c.Store)
	if err != nil {
		c.enter(Terminated, 0)
		return Result{}, err
	}
	if err := Restore(c.Model, c.Optimizer, resume.State); err != nil {
		c.enter(Terminated, resume.Epoch)
		return Result{}, err
	}
	if resume.Fresh() {
		c.Logger.Info("starting fresh run", zap.Int("epochs", c.Epochs))
	} else {
		c.Logger.Info("resumed from checkpoint",
			zap.Int("epoch", resume.Epoch),
			zap.Float64("loss", resume.BestLoss))
	}

	res := Result{Start: resume.Epoch, Final: resume.State, BestLoss: resume.BestLoss}
	exec := &Executor{Model: c.Model, Optimizer: c.Optimizer, Criterion: c.Criterion}
	best := resume.BestLoss

	for e := resume.Epoch; e < c.Epochs; e++ {
		if err := ctx.Err(); err != nil {
			c.enter(Terminated, e)
			return res, fmt.Errorf("epoch %d: %w", e, err)
		}
		c.enter(Running, e)
		loss, err := c.runEpoch(ctx, exec, e)
		if err != nil {
			c.enter(Terminated, e)
			return res, err
		}

		c.enter(Checkpointing, e)
		var state *checkpoint.TrainingState
		state, best, err = c.checkpoint(context.WithoutCancel(ctx), e, loss, best)
		if err != nil {
			c.enter(Terminated, e)
			return res, err
		}
		res.Epochs++
		res.Final = state
		res.BestLoss = best
	}
	c.enter(Terminated, c.Epochs)
	return res, nil
}

// runEpoch makes one pass over the data and returns the mean batch loss.
func (c *Controller) runEpoch(ctx context.Context, exec *Executor, e int) (float64, error) {
	c.Observer.EpochStarted(e, c.Data.Len())
	var sum float64
	var count int
	err := c.Data.Iterate(ctx, e, func(b datasets.Batch) error {
		loss, err := exec.Step(ctx, b)
		if err != nil {
			return err
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			c.Logger.Warn("non-finite batch loss",
				zap.Int("epoch", e), zap.Int("batch", b.Index), zap.Float64("loss", loss))
		}
		sum += loss
		count++
		c.Observer.BatchDone(e, b.Index, sum/float64(count))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("epoch %d: %w", e, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("epoch %d: %w", e, ErrNoBatches)
	}
	loss := sum / float64(count)
	c.Observer.EpochDone(e, loss)
	c.Logger.Info("epoch done", zap.Int("epoch", e+1), zap.Int("of", c.Epochs), zap.Float64("loss", loss))
	return loss, nil
}

// checkpoint persists the state after epoch e and returns the best loss
// including this epoch.
func (c *Controller) checkpoint(ctx context.Context, e int, loss, best float64) (*checkpoint.TrainingState, float64, error) {
	state, err := Snapshot(c.Model, c.Optimizer, e+1, loss)
	if err != nil {
		return nil, best, fmt.Errorf("epoch %d: %w", e, err)
	}
	blob, err := checkpoint.Encode(state)
	if err != nil {
		return nil, best, fmt.Errorf("epoch %d: %w", e, err)
	}
	if err := c.Store.Write(ctx, checkpoint.Latest, blob); err != nil {
		return nil, best, fmt.Errorf("epoch %d: %w", e, err)
	}
	improved := loss < best
	if improved {
		best = loss
		if err := c.Store.Write(ctx, checkpoint.Best, blob); err != nil {
			return nil, best, fmt.Errorf("epoch %d: %w", e, err)
		}
		c.Logger.Info("new best checkpoint", zap.Int("epoch", state.Epoch), zap.Float64("loss", loss))
	}
	c.Observer.Checkpointed(state, improved)
	return state, best, nil
}
