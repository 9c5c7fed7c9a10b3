package checkpoint

import "context"
import "errors"
import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

type failingStore struct {
	Store
	err error
}

func (f failingStore) Read(ctx context.Context, name string) ([]byte, bool, error) {
	return nil, false, f.err
}

func TestResolveFreshRun(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	r, err := Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Epoch)
	assert.True(t, math.IsInf(r.BestLoss, 1))
	assert.True(t, r.Fresh())
}

func TestResolveSeedsBestLossFromLatest(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	latest := &TrainingState{Epoch: 4, ModelParameters: []byte{1}, OptimizerState: []byte{2}, Loss: 0.8}
	best := &TrainingState{Epoch: 2, ModelParameters: []byte{3}, OptimizerState: []byte{4}, Loss: 0.3}
	for name, st := range map[string]*TrainingState{Latest: latest, Best: best} {
		blob, err := Encode(st)
		require.NoError(t, err)
		require.NoError(t, s.Write(ctx, name, blob))
	}

	r, err := Resolve(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Epoch)
	assert.Equal(t, 0.8, r.BestLoss, "best loss must come from the latest checkpoint")
	assert.True(t, latest.Equal(r.State))
	assert.False(t, r.Fresh())
}

func TestResolveCorruptIsFatal(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, Latest, []byte("not a checkpoint")))

	_, err = Resolve(ctx, s)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestResolveStorageError(t *testing.T) {
	want := &StorageError{Op: "read", Name: Latest, Err: errors.New("device gone")}
	_, err := Resolve(context.Background(), failingStore{err: want})
	var se *StorageError
	assert.True(t, errors.As(err, &se))
}
