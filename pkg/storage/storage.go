// Package storage ties the computation side of a run together: the region
// being computed, the grid written by the engine and the event pipeline that
// feeds consumers.
package storage

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/willbeason/deepzoom/pkg/event"
	"github.com/willbeason/deepzoom/pkg/grid"
	"github.com/willbeason/deepzoom/pkg/logging"
	"github.com/willbeason/deepzoom/pkg/region"
)

var (
	// ErrAlreadyActive is returned when an event receiver is requested while
	// another one is still connected.
	ErrAlreadyActive = errors.New("event receiver already active")
	// ErrNotActive is returned when dropping a receiver that does not exist.
	ErrNotActive = errors.New("no event receiver active")
)

// eventSystem is the running batcher between the grid and a consumer. Both
// fields are nil while inactive.
type eventSystem struct {
	input  *event.Queue
	cancel context.CancelFunc
	done   chan struct{}
}

// Storage is the computation side of one run. It never changes its
// properties; navigation creates a new Storage.
type Storage struct {
	ID string

	// Original is what was asked for. Properties is the same area with
	// square cells, which is what is actually computed.
	Original   region.Properties
	Properties region.Properties

	Grid *grid.Grid

	mu     sync.Mutex
	events eventSystem
}

// New allocates an empty grid for properties.
func New(original region.Properties) *Storage {
	return newStorage(original, original.Rectified(false), nil)
}

func newStorage(original, properties region.Properties, g *grid.Grid) *Storage {
	if g == nil {
		g = grid.New(properties.Stage.Width, properties.Stage.Height)
	}
	s := &Storage{
		ID:         uuid.New().String(),
		Original:   original,
		Properties: properties,
		Grid:       g,
	}
	s.log().Debug("storage created",
		"area", properties.Stage,
		"max_iteration", properties.MaxIteration)
	return s
}

func (s *Storage) log() *slog.Logger {
	return logging.Logger().With("run", s.ID)
}

// EventReceiver connects a batcher to the grid and returns its output.
// Changes are coalesced into batches of at most maxCapacity changes, each
// sent no later than maxInterval after its first change. Non-positive
// limits select the defaults.
//
// Only one receiver may be active. The receiver is closed once the grid
// reaches a terminal state or DropEventReceiver is called.
func (s *Storage) EventReceiver(maxCapacity int, maxInterval time.Duration) (*event.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events.input != nil {
		s.log().Warn("event receiver requested twice")
		return nil, ErrAlreadyActive
	}

	input := event.NewQueue()
	output := event.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	b := event.NewBatcher(maxCapacity, maxInterval)
	go func() {
		defer close(done)
		b.Run(ctx, input, output)
	}()

	s.Grid.SetSink(input)
	s.events = eventSystem{input: input, cancel: cancel, done: done}

	s.log().Debug("event receiver connected",
		"max_capacity", b.MaxCapacity,
		"max_interval", b.MaxInterval)
	return output, nil
}

// DropEventReceiver disconnects the grid from the batcher and stops it.
// Events not yet batched are discarded.
func (s *Storage) DropEventReceiver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events.input == nil {
		return ErrNotActive
	}

	s.Grid.SetSink(nil)
	s.events.cancel()
	s.events.input.Close()
	s.events = eventSystem{}

	s.log().Debug("event receiver dropped")
	return nil
}

// Wait blocks until the batcher of the active receiver has stopped, or
// returns at once if there is none.
func (s *Storage) Wait() {
	s.mu.Lock()
	done := s.events.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// ShiftedByPixels returns a storage for the area moved so that cell p shows
// what cell p+offset shows now. Cells still visible are kept.
func (s *Storage) ShiftedByPixels(offset image.Point) *Storage {
	return newStorage(
		s.Original.ShiftedByMath(s.Properties.PixelToMathOffset(offset)),
		s.Properties.ShiftedByPixels(offset),
		s.Grid.ShiftedClone(offset),
	)
}

// ZoomedByPixels returns an empty storage for the area scaled by 1/factor
// around the cell origin.
func (s *Storage) ZoomedByPixels(origin image.Point, factor float64) *Storage {
	p := s.Properties.ZoomedByPixels(origin, factor)
	return newStorage(p, p, nil)
}

// MaxIterationChanged returns a storage for the same area computed up to
// maxIteration, keeping every cell whose value is still valid.
func (s *Storage) MaxIterationChanged(maxIteration uint32) *Storage {
	return newStorage(
		s.Original.WithMaxIteration(maxIteration),
		s.Properties.WithMaxIteration(maxIteration),
		s.Grid.MaxIterationChangedClone(s.Properties.MaxIteration, maxIteration),
	)
}
