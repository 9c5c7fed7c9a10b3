package checkpoint

import "errors"
import "fmt"

var (
	// ErrCorrupt: a present checkpoint could not be decoded.
	ErrCorrupt = errors.New("corrupt checkpoint")
	// ErrInvalidName: the checkpoint name cannot be mapped to a file in the store directory.
	ErrInvalidName = errors.New("invalid checkpoint name")
)

// StorageError is an I/O or permission failure of the checkpoint store.
// It is never retried by the store.
type StorageError struct {
	Op   string // "write", "read", "exists", "remove", "clean"
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("checkpoint store %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
