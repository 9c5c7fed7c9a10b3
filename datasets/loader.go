package datasets

import "context"
import "errors"
import "fmt"
import "math/rand"

import "golang.org/x/sync/errgroup"

import "github.com/neurlang/cnntrain/hash"
import "github.com/neurlang/cnntrain/layer"

// Loader cuts Samples into mini-batches. Batches are assembled by Workers
// goroutines and delivered strictly in order. The sample order and the
// augmentation of every batch depend only on Seed and the epoch, so an epoch
// replays identically after a restart.
type Loader struct {
	Samples   Samples
	BatchSize int
	Workers   int  // batch assembling goroutines (default: 1)
	Shuffle   bool // reshuffle every epoch
	Seed      int64
}

// Len returns the number of batches per epoch, including a final partial batch.
func (l *Loader) Len() int {
	if l.Samples == nil || l.BatchSize <= 0 {
		return 0
	}
	return (l.Samples.Len() + l.BatchSize - 1) / l.BatchSize
}

// Order returns the sample order for the epoch.
func (l *Loader) Order(epoch int) []int {
	n := l.Samples.Len()
	if !l.Shuffle {
		o := make([]int, n)
		for i := range o {
			o[i] = i
		}
		return o
	}
	return rand.New(rand.NewSource(hash.Seed(l.Seed, epoch))).Perm(n)
}

func (l *Loader) validate() error {
	if l.Samples == nil {
		return errors.New("loader: no samples")
	}
	if l.BatchSize <= 0 {
		return fmt.Errorf("loader: batch size %d must be positive", l.BatchSize)
	}
	return nil
}

// Iterate calls yield with every batch of the epoch, in order. It stops at
// the first error returned by yield and returns it. Worker goroutines are
// always finished when Iterate returns.
func (l *Loader) Iterate(ctx context.Context, epoch int, yield func(Batch) error) error {
	if err := l.validate(); err != nil {
		return err
	}
	n := l.Len()
	if n == 0 {
		return nil
	}
	workers := l.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	order := l.Order(epoch)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)

	// worker w assembles batches w, w+workers, w+2*workers, ...
	chans := make([]chan Batch, workers)
	for w := range chans {
		chans[w] = make(chan Batch, 1)
		w := w
		g.Go(func() error {
			defer close(chans[w])
			for i := w; i < n; i += workers {
				b := l.batch(epoch, i, order)
				select {
				case chans[w] <- b:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var yieldErr error
	for i := 0; i < n; i++ {
		b, ok := <-chans[i%workers]
		if !ok || ctx.Err() != nil {
			break
		}
		if err := yield(b); err != nil {
			yieldErr = err
			break
		}
	}
	cancel()
	werr := g.Wait()
	if yieldErr != nil {
		return yieldErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	return nil
}

func (l *Loader) batch(epoch, i int, order []int) Batch {
	lo := i * l.BatchSize
	hi := lo + l.BatchSize
	if hi > len(order) {
		hi = len(order)
	}
	shape := append([]int{hi - lo}, l.Samples.Shape()...)
	x := layer.NewTensor(shape...)
	per := x.SampleLen()
	labels := make([]int, hi-lo)
	rng := rand.New(rand.NewSource(hash.Seed(l.Seed, epoch, i)))
	for j := lo; j < hi; j++ {
		k := j - lo
		labels[k] = l.Samples.Sample(order[j], rng, x.Data[k*per:(k+1)*per])
	}
	return Batch{Index: i, Inputs: x, Labels: labels}
}
