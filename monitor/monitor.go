// Package monitor follows the checkpoints of a running training from the
// outside. It relies on the store replacing checkpoints atomically, so every
// read returns a complete checkpoint.
package monitor

import "context"
import "errors"
import "fmt"
import "os"
import "path/filepath"
import "time"

import "github.com/fsnotify/fsnotify"
import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"

// Event reports a checkpoint that appeared or was replaced.
type Event struct {
	Name  string                    // checkpoint.Latest or checkpoint.Best
	State *checkpoint.TrainingState // nil when Err is set
	Err   error
}

// Watcher watches the directory of a checkpoint.DirStore.
type Watcher struct {
	store    *checkpoint.DirStore
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
}

// New watches the directory of store, creating it when missing.
func New(store *checkpoint.DirStore, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	if err := fw.Add(store.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("monitor: watch %s: %w", store.Dir(), err)
	}
	return &Watcher{store: store, watcher: fw, logger: logger, debounce: 100 * time.Millisecond}, nil
}

// SetDebounce sets how long a checkpoint must stay quiet before it is read.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run reports the existing checkpoints and then every replacement to fn
// until ctx is done or the watcher is closed. fn runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	for _, name := range []string{checkpoint.Latest, checkpoint.Best} {
		if ok, err := w.store.Exists(ctx, name); err == nil && ok {
			fn(w.load(ctx, name))
		}
	}

	interval := w.debounce / 2
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if name != checkpoint.Latest && name != checkpoint.Best {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.logger.Debug("checkpoint changed", zap.String("name", name), zap.Stringer("op", event.Op))
			pending[name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case now := <-tick.C:
			for name, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, name)
				fn(w.load(ctx, name))
			}
		}
	}
}

func (w *Watcher) load(ctx context.Context, name string) Event {
	blob, ok, err := w.store.Read(ctx, name)
	if err == nil && !ok {
		err = errors.New("checkpoint disappeared")
	}
	if err != nil {
		return Event{Name: name, Err: err}
	}
	state, err := checkpoint.Decode(blob)
	if err != nil {
		return Event{Name: name, Err: err}
	}
	return Event{Name: name, State: state}
}

// Close stops watching. A running Run returns.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
