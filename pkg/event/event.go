// Package event carries cell changes from the computation side to the
// consumer side and coalesces them into batches on the way.
package event

import (
	"github.com/willbeason/deepzoom/pkg/cell"
)

// Event is one of Change, MultiChange or StateChange.
type Event interface {
	isEvent()
}

// Change is a single cell update.
type Change struct {
	X, Y  uint32
	Value cell.Value
}

// MultiChange is an ordered batch of cell updates.
type MultiChange struct {
	Changes []Change
}

func (m MultiChange) Len() int {
	return len(m.Changes)
}

// StateChange announces a lifecycle transition of the whole grid.
type StateChange struct {
	State cell.StageState
}

func (Change) isEvent()      {}
func (MultiChange) isEvent() {}
func (StateChange) isEvent() {}

var (
	_ Event = Change{}
	_ Event = MultiChange{}
	_ Event = StateChange{}
)
