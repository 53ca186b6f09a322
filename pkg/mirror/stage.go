// Package mirror is the consumer side copy of a computation: a plain grid
// kept current from the change batches of a storage, read by renderers
// without taking any lock.
package mirror

import (
	"fmt"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/event"
	"github.com/willbeason/deepzoom/pkg/grid"
)

// Stage is a grid of optional cell values owned by a single goroutine.
type Stage struct {
	width, height int
	data          []cell.Slot

	// counted marks the cells that have held a Computed value, setCount is
	// the number of marks.
	counted  []bool
	setCount int
}

// NewStage copies the current content of g.
func NewStage(g *grid.Grid) *Stage {
	s := &Stage{
		width:   g.Width(),
		height:  g.Height(),
		data:    g.FullData(),
		counted: make([]bool, g.Len()),
	}
	for i, slot := range s.data {
		if slot.IsComputed() {
			s.counted[i] = true
			s.setCount++
		}
	}
	return s
}

func (s *Stage) Width() int  { return s.width }
func (s *Stage) Height() int { return s.height }

// SetCount is the number of cells that hold a computed value.
func (s *Stage) SetCount() int { return s.setCount }

// ComputedRatio is the computed share of the grid, in [0, 1].
func (s *Stage) ComputedRatio() float64 {
	if len(s.data) == 0 {
		return 1
	}
	return min(max(float64(s.setCount)/float64(len(s.data)), 0), 1)
}

func (s *Stage) IsFullyComputed() bool {
	return s.setCount >= len(s.data)
}

func (s *Stage) index(x, y int) int {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		panic(fmt.Sprintf("mirror: coordinates (%d,%d) out of bounds for stage of size %d*%d",
			x, y, s.width, s.height))
	}
	return y*s.width + x
}

// Get returns the value at (x, y) and whether there is one.
func (s *Stage) Get(x, y int) (cell.Value, bool) {
	slot := s.data[s.index(x, y)]
	return slot.Value, slot.Valid
}

// Set stores v at (x, y). Overwriting a cell never counts it twice.
func (s *Stage) Set(x, y int, v cell.Value) {
	i := s.index(x, y)
	s.data[i] = cell.Filled(v)
	if v.IsComputed() && !s.counted[i] {
		s.counted[i] = true
		s.setCount++
	}
}

func (s *Stage) apply(c event.Change) {
	s.Set(int(c.X), int(c.Y), c.Value)
}

// Guess estimates an empty cell from the cell at the corner of the smallest
// enclosing power-of-two block that has a value. The result has Guessed
// quality. ok is false if no such cell exists.
func (s *Stage) Guess(x, y int) (v cell.Value, ok bool) {
	s.index(x, y)
	for block := 2; ; block *= 2 {
		gx, gy := x-x%block, y-y%block
		if slot := s.data[gy*s.width+gx]; slot.Valid {
			return slot.Value.AsGuessed(), true
		}
		if gx == 0 && gy == 0 {
			return cell.Value{}, false
		}
	}
}

// GetOrGuess returns the value at (x, y), or a guess if it is empty.
func (s *Stage) GetOrGuess(x, y int) (cell.Value, bool) {
	if v, ok := s.Get(x, y); ok {
		return v, true
	}
	return s.Guess(x, y)
}
