// Package cell defines the values stored per grid position and the lifecycle
// state of a whole grid.
package cell

import (
	"fmt"

	"github.com/willbeason/deepzoom/pkg/geometry"
)

// Quality tells how trustworthy a value is. The order is meaningful:
// Unknown < Guessed < Derived < Computed.
type Quality uint8

const (
	Unknown Quality = iota
	// Guessed values are borrowed from a neighbouring cell for display.
	Guessed
	// Derived values were transformed from an earlier computation.
	Derived
	Computed
)

func (q Quality) String() string {
	switch q {
	case Unknown:
		return "unknown"
	case Guessed:
		return "guessed"
	case Derived:
		return "derived"
	case Computed:
		return "computed"
	}
	return fmt.Sprintf("Quality(%d)", uint8(q))
}

// Value is the result of the escape-time iteration for one cell.
type Value struct {
	IterationCount   uint32
	IterationQuality Quality

	// Final is the orbit position one iteration past the escape, used for
	// smooth coloring.
	Final        geometry.XY
	FinalQuality Quality
}

// ComputedValue returns a Value whose fields both carry Computed quality.
func ComputedValue(iterationCount uint32, final geometry.XY) Value {
	return Value{
		IterationCount:   iterationCount,
		IterationQuality: Computed,
		Final:            final,
		FinalQuality:     Computed,
	}
}

// IsComputed reports whether the iteration count is authoritative.
func (v Value) IsComputed() bool {
	return v.IterationQuality == Computed
}

// AsGuessed returns a copy of v downgraded to Guessed quality.
func (v Value) AsGuessed() Value {
	v.IterationQuality = Guessed
	v.FinalQuality = Guessed
	return v
}

// ForNewMaxIteration adapts a value computed with maximum iteration oldMax to
// a run with maximum iteration newMax. ok is false if the cell has to be
// computed again.
func (v Value) ForNewMaxIteration(oldMax, newMax uint32) (adapted Value, ok bool) {
	switch {
	case oldMax == newMax:
		return v, true
	case v.IterationCount < oldMax && v.IterationCount < newMax:
		// Escaped before either limit, nothing changes.
		return v, true
	case v.IterationCount >= newMax:
		// Lowered limit: the point now counts as not escaped.
		return Value{
			IterationCount:   newMax,
			IterationQuality: min(v.IterationQuality, Derived),
			FinalQuality:     Unknown,
		}, true
	default:
		// Raised limit and the point did not escape before: unknown again.
		return Value{}, false
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%d(%s) %v(%s)", v.IterationCount, v.IterationQuality, v.Final, v.FinalQuality)
}

// Slot is a grid position which may or may not hold a Value.
type Slot struct {
	Value Value
	Valid bool
}

// Filled returns a valid Slot holding v.
func Filled(v Value) Slot {
	return Slot{Value: v, Valid: true}
}

// IsComputed reports whether the slot holds a Computed value.
func (s Slot) IsComputed() bool {
	return s.Valid && s.Value.IsComputed()
}

// StageState is the lifecycle of a grid of cells.
//
// Initialized -> Evolving -> Stalled | Completed. Evolving and Stalled may
// alternate; Completed is final.
type StageState uint8

const (
	Initialized StageState = iota
	Evolving
	Stalled
	Completed
)

// IsTerminal reports whether no further content changes follow this state.
func (s StageState) IsTerminal() bool {
	return s == Stalled || s == Completed
}

func (s StageState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Evolving:
		return "evolving"
	case Stalled:
		return "stalled"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("StageState(%d)", uint8(s))
}
