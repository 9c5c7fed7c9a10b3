package checkpoint

import "bytes"
import "context"
import "errors"
import "fmt"
import "io/fs"
import "os"

// Remover is a Store that can delete a blob.
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// SyncResult counts what Sync did, per blob.
type SyncResult struct {
	Copied    []string
	Unchanged []string
	Deleted   []string
}

// Sync makes dst hold the best and latest blobs of src. A blob missing from
// dst or different from the one in src is copied. With prune, a blob missing
// from src is removed from dst, which must then be a Remover.
//
// Best is copied before latest. Blobs of src are decoded first and a corrupt
// one is not copied.
func Sync(ctx context.Context, src, dst Store, prune bool) (SyncResult, error) {
	var res SyncResult
	rm, canRemove := dst.(Remover)
	if prune && !canRemove {
		return res, fmt.Errorf("checkpoint sync: destination %T cannot remove blobs", dst)
	}
	for _, name := range []string{Best, Latest} {
		blob, ok, err := src.Read(ctx, name)
		if err != nil {
			return res, err
		}
		if !ok {
			if !prune {
				continue
			}
			present, err := dst.Exists(ctx, name)
			if err != nil {
				return res, err
			}
			if present {
				if err := rm.Remove(ctx, name); err != nil {
					return res, err
				}
				res.Deleted = append(res.Deleted, name)
			}
			continue
		}
		if _, err := Decode(blob); err != nil {
			return res, fmt.Errorf("checkpoint sync %s: %w", name, err)
		}
		have, ok, err := dst.Read(ctx, name)
		if err != nil {
			return res, err
		}
		if ok && bytes.Equal(have, blob) {
			res.Unchanged = append(res.Unchanged, name)
			continue
		}
		if err := dst.Write(ctx, name, blob); err != nil {
			return res, err
		}
		res.Copied = append(res.Copied, name)
	}
	return res, nil
}

var _ Remover = (*DirStore)(nil)

// Remove deletes the blob stored under name. Removing a missing blob is not
// an error.
func (d *DirStore) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.Path(name)
	if err != nil {
		return &StorageError{Op: "remove", Name: name, Err: err}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "remove", Name: name, Err: err}
	}
	_ = syncDir(d.dir)
	return nil
}
