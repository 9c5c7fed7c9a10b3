package checkpoint

import "bufio"
import "context"
import "errors"
import "fmt"
import "io/fs"
import "os"
import "path/filepath"
import "strings"

// Store keeps named checkpoint blobs.
type Store interface {
	// Write replaces the blob stored under name. A concurrent or later reader
	// sees either the previous blob or the new one, never a partial write.
	Write(ctx context.Context, name string, blob []byte) error

	// Read returns the blob stored under name. A missing blob is reported
	// with ok == false and a nil error.
	Read(ctx context.Context, name string) (blob []byte, ok bool, err error)

	// Exists reports whether a blob is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
}

const tmpPrefix = ".tmp-"

// DirStore is a Store keeping one file per name in a directory.
type DirStore struct {
	dir     string
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a store rooted at dir. The directory is created on the
// first write, together with all missing ancestors.
func NewDirStore(dir string) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("checkpoint store: empty directory")
	}
	return &DirStore{dir: dir, permF: 0o644, permD: 0o755, bufSize: 256 * 1024}, nil
}

// Dir returns the store directory.
func (d *DirStore) Dir() string {
	return d.dir
}

// Path maps a checkpoint name to its file.
func (d *DirStore) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) ||
		filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.dir, name), nil
}

// Write stores blob under name: temporary file in the same directory, fsync,
// rename over the destination, then a best effort fsync of the directory.
func (d *DirStore) Write(ctx context.Context, name string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := d.Path(name)
	if err != nil {
		return &StorageError{Op: "write", Name: name, Err: err}
	}
	if err := os.MkdirAll(d.dir, d.permD); err != nil {
		return &StorageError{Op: "write", Name: name, Err: err}
	}
	if err := d.writeAtomic(dest, name, blob); err != nil {
		return &StorageError{Op: "write", Name: name, Err: err}
	}
	return nil
}

func (d *DirStore) writeAtomic(dest, name string, blob []byte) error {
	tmp, err := os.CreateTemp(d.dir, tmpPrefix+name+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, d.permF)

	bw := bufio.NewWriterSize(tmp, d.bufSize)
	if _, err := bw.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// persist the rename itself; not supported on every platform
	_ = syncDir(d.dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// Read returns the blob stored under name, or ok == false if there is none.
func (d *DirStore) Read(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := d.Path(name)
	if err != nil {
		return nil, false, &StorageError{Op: "read", Name: name, Err: err}
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "read", Name: name, Err: err}
	}
	return blob, true, nil
}

// Exists reports whether a regular file is stored under name.
func (d *DirStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.Path(name)
	if err != nil {
		return false, &StorageError{Op: "exists", Name: name, Err: err}
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "exists", Name: name, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return false, &StorageError{Op: "exists", Name: name, Err: fmt.Errorf("%s is not a regular file", path)}
	}
	return true, nil
}

// RemoveStale deletes temporary files left behind by writes that were
// interrupted by a crash. It must not run concurrently with Write.
func (d *DirStore) RemoveStale() (removed int, err error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, &StorageError{Op: "clean", Name: tmpPrefix + "*", Err: err}
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, &StorageError{Op: "clean", Name: e.Name(), Err: err}
		}
		removed++
	}
	return removed, nil
}
