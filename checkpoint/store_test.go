package checkpoint

import "context"
import "errors"
import "os"
import "path/filepath"
import "sync"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestDirStoreWriteRead(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "mnt", "ckpt", "run")
	s, err := NewDirStore(dir)
	require.NoError(t, err)

	blob, ok, err := s.Read(ctx, Latest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, blob)
	exists, err := s.Exists(ctx, Latest)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Write(ctx, Latest, []byte("first")))
	require.NoError(t, s.Write(ctx, Latest, []byte("second")))

	blob, ok, err = s.Read(ctx, Latest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), blob)
	exists, err = s.Exists(ctx, Latest)
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files left behind")
	assert.Equal(t, Latest, entries[0].Name())
}

func TestDirStoreNamesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, Latest, []byte("l")))
	require.NoError(t, s.Write(ctx, Best, []byte("b")))
	l, _, _ := s.Read(ctx, Latest)
	b, _, _ := s.Read(ctx, Best)
	assert.Equal(t, "l", string(l))
	assert.Equal(t, "b", string(b))
}

func TestDirStoreRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", ".", "..", "../escape", "a/b", `a\b`, ".tmp-latest"} {
		err := s.Write(ctx, name, []byte("x"))
		var se *StorageError
		require.True(t, errors.As(err, &se), "name %q: %v", name, err)
		assert.True(t, errors.Is(err, ErrInvalidName), "name %q: %v", name, err)
	}
	_, err = NewDirStore(" ")
	assert.Error(t, err)
}

func TestDirStoreStorageError(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// a regular file where the directory should be
	s, err := NewDirStore(filepath.Join(file, "ckpt"))
	require.NoError(t, err)

	var se *StorageError
	err = s.Write(ctx, Latest, []byte("x"))
	require.True(t, errors.As(err, &se), "write: %v", err)
	assert.Equal(t, "write", se.Op)
	assert.Equal(t, Latest, se.Name)

	_, _, err = s.Read(ctx, Latest)
	require.True(t, errors.As(err, &se), "read: %v", err)
	assert.Equal(t, "read", se.Op)
}

func TestDirStoreIgnoresStaleTemporaryFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewDirStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, Latest, []byte("complete")))

	// a write interrupted after creating its temporary file
	stale := filepath.Join(dir, tmpPrefix+Latest+"-123")
	require.NoError(t, os.WriteFile(stale, []byte("parti"), 0o644))

	blob, ok, err := s.Read(ctx, Latest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "complete", string(blob))

	removed, err := s.RemoveStale()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestDirStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Write(ctx, Latest, []byte("x")), context.Canceled)
	_, _, err = s.Read(ctx, Latest)
	assert.ErrorIs(t, err, context.Canceled)
}

// readers running next to a writer only ever see complete blobs
func TestDirStoreConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	blobs := make([][]byte, 20)
	valid := make(map[string]bool)
	for i := range blobs {
		st := &TrainingState{Epoch: i + 1, ModelParameters: make([]byte, 64*1024), Loss: float64(i)}
		blobs[i], err = Encode(st)
		require.NoError(t, err)
		valid[string(blobs[i])] = true
	}
	require.NoError(t, s.Write(ctx, Latest, blobs[0]))

	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan error, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				blob, ok, err := s.Read(ctx, Latest)
				if err != nil {
					errs <- err
					return
				}
				if !ok || !valid[string(blob)] {
					errs <- errors.New("reader observed a partial checkpoint")
					return
				}
			}
		}()
	}
	for _, b := range blobs[1:] {
		require.NoError(t, s.Write(ctx, Latest, b))
	}
	close(done)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
