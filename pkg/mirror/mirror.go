package mirror

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/event"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/region"
	"github.com/willbeason/deepzoom/pkg/storage"
)

// Mirror follows one storage. It is not safe for concurrent use; the
// goroutine that renders owns it.
type Mirror struct {
	Properties region.Properties
	Stage      *Stage

	seenState cell.StageState
	storage   *storage.Storage
	receiver  *event.Queue
	dropped   bool
	log       *slog.Logger
}

type options struct {
	maxCapacity int
	maxInterval time.Duration
}

type Option func(*options)

// WithBatching sets the batch limits requested from the storage.
func WithBatching(maxCapacity int, maxInterval time.Duration) Option {
	return func(o *options) {
		o.maxCapacity = maxCapacity
		o.maxInterval = maxInterval
	}
}

// New connects to the events of s and copies its grid. The receiver is
// requested before the copy so that no change falls between the two.
//
// New fails with storage.ErrAlreadyActive if another consumer follows s. A
// grid that is already Stalled or Completed is copied and the receiver is
// given back at once, so the mirror starts disconnected.
func New(s *storage.Storage, opts ...Option) (*Mirror, error) {
	o := options{
		maxCapacity: event.DefaultMaxCapacity,
		maxInterval: event.DefaultMaxInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	receiver, err := s.EventReceiver(o.maxCapacity, o.maxInterval)
	if err != nil {
		return nil, fmt.Errorf("connecting mirror: %w", err)
	}

	m := &Mirror{
		Properties: s.Properties,
		storage:    s,
		receiver:   receiver,
		log:        logging.Logger().With("run", s.ID),
	}
	m.seenState = s.Grid.State()
	m.Stage = NewStage(s.Grid)

	if m.seenState.IsTerminal() {
		m.Close()
	}
	return m, nil
}

// SeenState is the last grid state received.
func (m *Mirror) SeenState() cell.StageState { return m.seenState }

// Connected reports whether more events may arrive.
func (m *Mirror) Connected() bool { return m.receiver != nil }

func (m *Mirror) Get(x, y int) (cell.Value, bool) { return m.Stage.Get(x, y) }
func (m *Mirror) ComputedRatio() float64          { return m.Stage.ComputedRatio() }
func (m *Mirror) IsFullyComputed() bool           { return m.Stage.IsFullyComputed() }

// ProcessEvents applies every event available right now and returns
// without waiting for more. It reports whether anything was applied.
//
// Once a terminal state is seen the storage is asked to drop the receiver.
// Events already batched keep being applied until the receiver is closed.
func (m *Mirror) ProcessEvents() bool {
	handled := false
	for m.receiver != nil {
		e, ok, closed := m.receiver.TryRecv()
		if closed {
			m.receiver = nil
			m.log.Debug("mirror disconnected", "state", m.seenState, "computed", m.Stage.SetCount())
			break
		}
		if !ok {
			break
		}
		handled = true

		switch e := e.(type) {
		case event.Change:
			m.Stage.apply(e)
		case event.MultiChange:
			for _, c := range e.Changes {
				m.Stage.apply(c)
			}
		case event.StateChange:
			m.seenState = e.State
			if e.State.IsTerminal() {
				m.drop()
			}
		}
	}
	return handled
}

func (m *Mirror) drop() {
	if m.dropped {
		return
	}
	m.dropped = true
	if err := m.storage.DropEventReceiver(); err != nil && !errors.Is(err, storage.ErrNotActive) {
		m.log.Warn("dropping event receiver", "err", err)
	}
}

// Close disconnects from the storage. Events not yet applied are lost.
func (m *Mirror) Close() {
	if m.receiver == nil {
		return
	}
	m.drop()
	m.receiver = nil
}
