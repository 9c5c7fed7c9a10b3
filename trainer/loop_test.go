package trainer

import "context"
import "errors"
import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/cnntrain/checkpoint"

func newStore(t *testing.T) *checkpoint.DirStore {
	t.Helper()
	s, err := checkpoint.NewDirStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func read(t *testing.T, s checkpoint.Store, name string) *checkpoint.TrainingState {
	t.Helper()
	blob, ok, err := s.Read(context.Background(), name)
	require.NoError(t, err)
	require.True(t, ok, "%s missing", name)
	st, err := checkpoint.Decode(blob)
	require.NoError(t, err)
	return st
}

func exists(t *testing.T, s checkpoint.Store, name string) bool {
	t.Helper()
	ok, err := s.Exists(context.Background(), name)
	require.NoError(t, err)
	return ok
}

func controller(store checkpoint.Store, epochs, batches int, losses ...float64) (*Controller, *counterModel, *counterOptimizer, *fixedSource) {
	m := &counterModel{}
	o := &counterOptimizer{}
	src := &fixedSource{n: batches}
	return &Controller{
		Store:     store,
		Model:     m,
		Optimizer: o,
		Criterion: &scriptedLoss{losses: losses},
		Data:      src,
		Epochs:    epochs,
	}, m, o, src
}

func TestThreeEpochScenario(t *testing.T) {
	store := newStore(t)
	c, _, _, _ := controller(store, 3, 1, 0.9, 0.5, 0.7)
	rec := &recorder{}
	c.Observer = rec

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Epochs)
	assert.Equal(t, 0.5, res.BestLoss)

	latest := read(t, store, checkpoint.Latest)
	assert.Equal(t, 3, latest.Epoch)
	assert.Equal(t, 0.7, latest.Loss)
	best := read(t, store, checkpoint.Best)
	assert.Equal(t, 2, best.Epoch)
	assert.Equal(t, 0.5, best.Loss)

	assert.Equal(t, []bool{true, true, false}, rec.best)
	assert.Equal(t, []float64{0.9, 0.5, 0.7}, rec.epochs)
	assert.True(t, latest.Equal(res.Final))

	s, e := c.State()
	assert.Equal(t, Terminated, s)
	assert.Equal(t, 3, e)
}

func TestResumeRunsOnlyRemainingEpochs(t *testing.T) {
	store := newStore(t)
	first, _, _, _ := controller(store, 2, 1, 0.9, 0.5)
	_, err := first.Run(context.Background())
	require.NoError(t, err)

	c, m, o, src := controller(store, 3, 1, 0.7)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, src.epochs)
	assert.Equal(t, 2, res.Start)
	assert.Equal(t, 1, res.Epochs)
	assert.Equal(t, uint64(3), m.updates, "parameters continue from the checkpoint")
	assert.Equal(t, uint64(3), o.steps, "optimizer continues from the checkpoint")

	latest := read(t, store, checkpoint.Latest)
	assert.Equal(t, 3, latest.Epoch)
	assert.Equal(t, 0.7, latest.Loss)
	best := read(t, store, checkpoint.Best)
	assert.Equal(t, 2, best.Epoch)
}

func TestResumeAfterFinishIsIdempotent(t *testing.T) {
	store := newStore(t)
	first, _, _, _ := controller(store, 2, 2, 0.9, 0.8, 0.5, 0.4)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	before := read(t, store, checkpoint.Latest)
	beforeBest := read(t, store, checkpoint.Best)

	c, _, o, src := controller(store, 2, 2)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src.epochs)
	assert.Empty(t, o.calls)
	assert.Equal(t, 0, res.Epochs)
	assert.True(t, before.Equal(read(t, store, checkpoint.Latest)))
	assert.True(t, beforeBest.Equal(read(t, store, checkpoint.Best)))
}

func TestBestIsMonotone(t *testing.T) {
	store := newStore(t)
	losses := []float64{1.0, 1.2, 0.8, 0.8, 0.9, 0.3, math.NaN(), 0.4}
	c, _, _, _ := controller(store, len(losses), 1, losses...)
	rec := &recorder{}
	c.Observer = rec
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false, false, true, false, false}, rec.best)
	assert.Equal(t, 0.3, read(t, store, checkpoint.Best).Loss)
	assert.Equal(t, 0.4, read(t, store, checkpoint.Latest).Loss)
}

func TestEpochLossIsMeanOfBatches(t *testing.T) {
	store := newStore(t)
	c, _, _, _ := controller(store, 1, 4, 1, 2, 3, 6)
	rec := &recorder{}
	c.Observer = rec
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2, 3}, rec.running)
	assert.Equal(t, 3.0, read(t, store, checkpoint.Latest).Loss)
}

func TestStepOrder(t *testing.T) {
	c, m, o, _ := controller(newStore(t), 1, 2, 0.1, 0.2)
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "step", "zero", "step"}, o.calls)
	assert.Equal(t, uint64(2), m.updates)
}

func TestSnapshotsTakenTogether(t *testing.T) {
	store := newStore(t)
	c, _, _, _ := controller(store, 2, 3, 1, 1, 1, 2, 2, 2)
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	st := read(t, store, checkpoint.Latest)
	assert.Equal(t, st.ModelParameters, st.OptimizerState)
}

func TestCancelMidEpochKeepsPreviousLatest(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _, _, _ := controller(store, 3, 3, 0.9, 0.9, 0.9, 0.5, 0.5, 0.5)
	c.Criterion.(*scriptedLoss).hook = func(call int) {
		if call == 4 {
			cancel()
		}
	}
	res, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Epochs)

	latest := read(t, store, checkpoint.Latest)
	assert.Equal(t, 1, latest.Epoch)
	assert.InDelta(t, 0.9, latest.Loss, 1e-12)

	s, _ := c.State()
	assert.Equal(t, Terminated, s)
}

// cancelAfterLatest cancels the run as soon as the latest checkpoint is on disk.
type cancelAfterLatest struct {
	*checkpoint.DirStore
	cancel context.CancelFunc
}

func (s cancelAfterLatest) Write(ctx context.Context, name string, blob []byte) error {
	err := s.DirStore.Write(ctx, name, blob)
	if name == checkpoint.Latest {
		s.cancel()
	}
	return err
}

func TestCancelDuringCheckpointWritesBest(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _, _, src := controller(cancelAfterLatest{store, cancel}, 3, 1, 0.9, 0.8, 0.7)
	res, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Epochs)
	assert.Equal(t, []int{0}, src.epochs)

	latest := read(t, store, checkpoint.Latest)
	assert.Equal(t, 1, latest.Epoch)
	assert.Equal(t, 0.9, latest.Loss)
	best := read(t, store, checkpoint.Best)
	assert.True(t, latest.Equal(best))
}

func TestEmptyEpoch(t *testing.T) {
	store := newStore(t)
	c, _, _, _ := controller(store, 2, 0)
	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoBatches)
	assert.False(t, exists(t, store, checkpoint.Latest))
}

func TestCorruptLatestIsFatal(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Write(context.Background(), checkpoint.Latest, []byte("garbage")))
	c, _, _, src := controller(store, 2, 1, 0.1, 0.1)
	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, checkpoint.ErrCorrupt)
	assert.Empty(t, src.epochs)
}

func TestRestoreFailureIsFatal(t *testing.T) {
	store := newStore(t)
	first, _, _, _ := controller(store, 1, 1, 0.5)
	_, err := first.Run(context.Background())
	require.NoError(t, err)

	c, m, _, src := controller(store, 2, 1, 0.4)
	m.failImport = true
	_, err = c.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, src.epochs)
}

// storeFailing fails every write
type storeFailing struct {
	checkpoint.Store
}

func (s storeFailing) Write(ctx context.Context, name string, blob []byte) error {
	return &checkpoint.StorageError{Op: "write", Name: name, Err: errors.New("disk full")}
}

func TestWriteFailureSurfaces(t *testing.T) {
	c, _, _, _ := controller(storeFailing{newStore(t)}, 2, 1, 0.5, 0.4)
	res, err := c.Run(context.Background())
	var se *checkpoint.StorageError
	assert.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, 0, res.Epochs)
}

func TestBestSeededFromLatestOnResume(t *testing.T) {
	store := newStore(t)
	first, _, _, _ := controller(store, 3, 1, 0.5, 0.3, 0.9)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.3, read(t, store, checkpoint.Best).Loss)

	// 0.6 beats the resumed 0.9 but not the stored best 0.3
	c, _, _, _ := controller(store, 4, 1, 0.6)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, res.BestLoss)
	best := read(t, store, checkpoint.Best)
	assert.Equal(t, 4, best.Epoch)
	assert.Equal(t, 0.6, best.Loss)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "resuming", Resuming.String())
	assert.Equal(t, "checkpointing", Checkpointing.String())
	assert.Equal(t, "unknown", State(42).String())
}
