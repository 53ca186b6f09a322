// Package grid is the computation side cell store: a fixed size grid where
// every cell has its own lock, so that many workers can write unrelated cells
// without contending.
package grid

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/event"
)

// Sink receives change notifications. *event.Queue implements it.
type Sink interface {
	Send(event.Event) bool
}

var _ Sink = (*event.Queue)(nil)

type gridCell struct {
	mu   sync.RWMutex
	slot cell.Slot
}

// Grid stores optional cell values for width*height positions in row-major
// order.
type Grid struct {
	width, height int
	cells         []gridCell

	stateMu sync.RWMutex
	state   cell.StageState

	// sink is swapped atomically so that Set never takes a grid wide lock.
	sink atomic.Pointer[sinkRef]
}

type sinkRef struct {
	Sink
}

// New returns an empty grid in state Initialized.
func New(width, height uint32) *Grid {
	return newWithState(int(width), int(height), cell.Initialized)
}

func newWithState(width, height int, state cell.StageState) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]gridCell, width*height),
		state:  state,
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Len is the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// index panics on coordinates outside the grid: they can only come from a
// broken coordinate transformation.
func (g *Grid) index(x, y uint32) int {
	if int(x) >= g.width || int(y) >= g.height {
		panic(fmt.Sprintf("grid: coordinates (%d,%d) out of bounds for grid of size %d*%d",
			x, y, g.width, g.height))
	}
	return int(y)*g.width + int(x)
}

func (g *Grid) slotAt(i int) cell.Slot {
	c := &g.cells[i]
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot
}

// Get returns the value at (x, y) and whether there is one.
func (g *Grid) Get(x, y uint32) (cell.Value, bool) {
	s := g.slotAt(g.index(x, y))
	return s.Value, s.Valid
}

// IsComputed reports whether (x, y) holds a Computed value.
func (g *Grid) IsComputed(x, y uint32) bool {
	return g.slotAt(g.index(x, y)).IsComputed()
}

// Set stores v at (x, y) and notifies the sink, if any.
func (g *Grid) Set(x, y uint32, v cell.Value) {
	c := &g.cells[g.index(x, y)]
	c.mu.Lock()
	c.slot = cell.Filled(v)
	c.mu.Unlock()

	if ref := g.sink.Load(); ref != nil {
		ref.Send(event.Change{X: x, Y: y, Value: v})
	}
}

// SetSink installs the change sink. nil removes it.
func (g *Grid) SetSink(s Sink) {
	if s == nil {
		g.sink.Store(nil)
		return
	}
	g.sink.Store(&sinkRef{Sink: s})
}

func (g *Grid) State() cell.StageState {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.state
}

// SetState changes the lifecycle state. Setting the current state again is a
// no-op and sends nothing.
func (g *Grid) SetState(s cell.StageState) {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()

	if g.state == s {
		return
	}
	g.state = s

	// Sent under the state lock so that notifications keep the order of the
	// transitions.
	if ref := g.sink.Load(); ref != nil {
		ref.Send(event.StateChange{State: s})
	}
}

// FullData copies every cell. Each cell is locked on its own while read, so
// the copy is not an atomic snapshot of the whole grid.
func (g *Grid) FullData() []cell.Slot {
	data := make([]cell.Slot, len(g.cells))
	for i := range g.cells {
		data[i] = g.slotAt(i)
	}
	return data
}

// ShiftedClone returns a grid for the same area panned by offset pixels:
// new(x, y) = old(x+offset.X, y+offset.Y). Cells that scroll in are empty.
// The clone is Stalled and has no sink.
func (g *Grid) ShiftedClone(offset image.Point) *Grid {
	clone := newWithState(g.width, g.height, cell.Stalled)
	if abs(offset.X) >= g.width || abs(offset.Y) >= g.height {
		return clone
	}

	for y := range g.height {
		oy := y + offset.Y
		if oy < 0 || oy >= g.height {
			continue
		}
		for x := range g.width {
			ox := x + offset.X
			if ox < 0 || ox >= g.width {
				continue
			}
			clone.cells[y*g.width+x].slot = g.slotAt(oy*g.width + ox)
		}
	}
	return clone
}

// MaxIterationChangedClone returns a Stalled copy adapted to a new maximum
// iteration count. Cells that need a new computation are emptied.
func (g *Grid) MaxIterationChangedClone(oldMax, newMax uint32) *Grid {
	clone := newWithState(g.width, g.height, cell.Stalled)
	for i := range g.cells {
		s := g.slotAt(i)
		if !s.Valid {
			continue
		}
		if v, ok := s.Value.ForNewMaxIteration(oldMax, newMax); ok {
			clone.cells[i].slot = cell.Filled(v)
		}
	}
	return clone
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
