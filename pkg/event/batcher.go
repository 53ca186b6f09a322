package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/willbeason/deepzoom/pkg/logging"
)

const (
	DefaultMaxCapacity = 1000
	DefaultMaxInterval = 50 * time.Millisecond
)

// Batcher turns a stream of single cell changes into MultiChange batches.
//
// A batch is flushed once it holds MaxCapacity changes or MaxInterval after
// its first change arrived, whichever comes first. State changes are never
// batched.
type Batcher struct {
	MaxCapacity int
	MaxInterval time.Duration
}

// NewBatcher returns a Batcher, replacing non-positive limits by the defaults.
func NewBatcher(maxCapacity int, maxInterval time.Duration) Batcher {
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	return Batcher{MaxCapacity: maxCapacity, MaxInterval: maxInterval}
}

// batch is the single open batch together with the timer tracking its
// oldest change.
type batch struct {
	changes []Change
	timer   *time.Timer
}

// Run forwards events from in to out until in is closed, a terminal state
// passes through, or ctx is cancelled. out is closed when Run returns.
func (b Batcher) Run(ctx context.Context, in, out *Queue) {
	defer out.Close()

	log := logging.Logger()
	var open *batch
	flushes := 0

	// A nil channel never fires, which disarms the timer case.
	timerC := func() <-chan time.Time {
		if open == nil {
			return nil
		}
		return open.timer.C
	}

	flush := func() {
		if open == nil {
			return
		}
		open.timer.Stop()
		out.Send(MultiChange{Changes: open.changes})
		flushes++
		if log.Enabled(ctx, slog.LevelDebug) {
			log.Debug("flushed change batch", "changes", len(open.changes))
		}
		open = nil
	}

	push := func(c Change) {
		if open == nil {
			open = &batch{
				changes: make([]Change, 0, b.MaxCapacity),
				timer:   time.NewTimer(b.MaxInterval),
			}
		}
		open.changes = append(open.changes, c)
		if len(open.changes) >= b.MaxCapacity {
			flush()
		}
	}

	for {
		select {
		case <-ctx.Done():
			if open != nil {
				open.timer.Stop()
			}
			log.Debug("batcher aborted", "batches", flushes)
			return

		case <-timerC():
			flush()

		case <-in.Ready():
			e, ok, closed := in.TryRecv()
			if !ok {
				if closed {
					flush()
					log.Debug("batcher input closed", "batches", flushes)
					return
				}
				continue
			}

			switch e := e.(type) {
			case Change:
				push(e)
			case MultiChange:
				for _, c := range e.Changes {
					push(c)
				}
			case StateChange:
				out.Send(e)
				if e.State.IsTerminal() {
					flush()
					log.Debug("batcher saw terminal state", "state", e.State, "batches", flushes)
					return
				}
			}
		}
	}
}
