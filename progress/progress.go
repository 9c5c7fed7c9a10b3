// Package progress draws the per-epoch training progress bar
package progress

import "fmt"
import "io"
import "time"

import "github.com/charmbracelet/bubbles/progress"
import "github.com/charmbracelet/lipgloss"

import "github.com/neurlang/cnntrain/trainer"

// Bar renders one line per epoch, redrawn in place while batches complete.
// It implements trainer.Observer.
type Bar struct {
	trainer.NopObserver

	w      io.Writer
	bar    progress.Model
	epochs int

	// Interval limits how often the line is redrawn.
	Interval time.Duration

	label lipgloss.Style
	value lipgloss.Style

	batches int
	done    int
	started time.Time
	drawn   time.Time
}

// New creates a bar for a run of epochs writing to w.
func New(w io.Writer, epochs int) *Bar {
	return &Bar{
		w:        w,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		epochs:   epochs,
		Interval: 100 * time.Millisecond,
		label:    lipgloss.NewStyle().Bold(true),
		value:    lipgloss.NewStyle().Faint(true),
	}
}

// EpochStarted resets the bar.
func (b *Bar) EpochStarted(epoch, batches int) {
	b.batches = batches
	b.done = 0
	b.started = time.Now()
	b.drawn = time.Time{}
}

// BatchDone redraws the line with the running loss.
func (b *Bar) BatchDone(epoch, batch int, loss float64) {
	b.done++
	now := time.Now()
	if b.done < b.batches && now.Sub(b.drawn) < b.Interval {
		return
	}
	b.drawn = now
	fmt.Fprint(b.w, "\r"+b.Line(epoch, loss))
}

// EpochDone draws the final line of the epoch and moves to the next line.
func (b *Bar) EpochDone(epoch int, loss float64) {
	fmt.Fprintln(b.w, "\r"+b.Line(epoch, loss))
}

// Line renders the bar for the current state.
func (b *Bar) Line(epoch int, loss float64) string {
	var percent float64
	if b.batches > 0 {
		percent = float64(b.done) / float64(b.batches)
	}
	if percent > 1 {
		percent = 1
	}
	elapsed := time.Since(b.started).Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%s %s %s %s",
		b.label.Render(fmt.Sprintf("Epoch %d/%d", epoch+1, b.epochs)),
		b.bar.ViewAs(percent),
		fmt.Sprintf("%d/%d", b.done, b.batches),
		b.value.Render(fmt.Sprintf("loss=%.4f %s", loss, elapsed)),
	)
}
