package mirror

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/engine"
	"github.com/willbeason/deepzoom/pkg/geometry"
	"github.com/willbeason/deepzoom/pkg/grid"
	"github.com/willbeason/deepzoom/pkg/region"
	"github.com/willbeason/deepzoom/pkg/storage"
)

func newStorage(width, height, maxIteration uint32) *storage.Storage {
	rect := geometry.RectFromCorners(geometry.XY{X: -2, Y: -1}, geometry.XY{X: 1, Y: 1})
	return storage.New(region.NewProperties(region.NewStage(rect, width, height), maxIteration))
}

func TestStage_SetCount(t *testing.T) {
	const width, height = 7, 5
	s := NewStage(grid.New(width, height))
	rng := rand.New(rand.NewPCG(1, 2))

	everComputed := make(map[[2]int]bool)
	for range 500 {
		x, y := rng.IntN(width), rng.IntN(height)
		v := cell.ComputedValue(uint32(rng.IntN(100)), geometry.XY{})
		if rng.IntN(3) == 0 {
			v = v.AsGuessed()
		}
		s.Set(x, y, v)
		if v.IsComputed() {
			everComputed[[2]int{x, y}] = true
		}

		if s.SetCount() != len(everComputed) {
			t.Fatalf("got count %d, want %d", s.SetCount(), len(everComputed))
		}
	}

	if s.SetCount() > width*height {
		t.Errorf("count %d exceeds the %d cells", s.SetCount(), width*height)
	}
}

func TestStage_ComputedRatio(t *testing.T) {
	s := NewStage(grid.New(2, 2))
	if s.ComputedRatio() != 0 || s.IsFullyComputed() {
		t.Fatalf("empty stage: got ratio %v, full %v", s.ComputedRatio(), s.IsFullyComputed())
	}

	s.Set(0, 0, cell.ComputedValue(1, geometry.XY{}))
	s.Set(0, 0, cell.ComputedValue(2, geometry.XY{}))
	s.Set(1, 0, cell.ComputedValue(1, geometry.XY{}).AsGuessed())
	if got := s.ComputedRatio(); got != 0.25 {
		t.Errorf("got ratio %v, want 0.25", got)
	}

	for y := range 2 {
		for x := range 2 {
			s.Set(x, y, cell.ComputedValue(3, geometry.XY{}))
		}
	}
	if s.ComputedRatio() != 1 || !s.IsFullyComputed() {
		t.Errorf("full stage: got ratio %v, full %v", s.ComputedRatio(), s.IsFullyComputed())
	}
}

func TestStage_SnapshotCounts(t *testing.T) {
	g := grid.New(3, 3)
	g.Set(1, 1, cell.ComputedValue(5, geometry.XY{}))
	g.Set(2, 2, cell.ComputedValue(5, geometry.XY{}).AsGuessed())

	s := NewStage(g)
	if s.SetCount() != 1 {
		t.Errorf("got count %d, want 1", s.SetCount())
	}

	g.Set(0, 0, cell.ComputedValue(1, geometry.XY{}))
	if _, ok := s.Get(0, 0); ok {
		t.Error("snapshot follows the grid")
	}
}

func TestStage_OutOfBounds(t *testing.T) {
	s := NewStage(grid.New(3, 2))
	tcs := []struct {
		name string
		x, y int
	}{
		{name: "x", x: 3, y: 0},
		{name: "y", x: 0, y: 2},
		{name: "negative", x: -1, y: 0},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			s.Get(tc.x, tc.y)
		})
	}
}

func TestStage_Guess(t *testing.T) {
	s := NewStage(grid.New(8, 8))
	if _, ok := s.Guess(5, 3); ok {
		t.Fatal("guessed from an empty stage")
	}

	origin := cell.ComputedValue(10, geometry.XY{})
	s.Set(0, 0, origin)
	block := cell.ComputedValue(20, geometry.XY{})
	s.Set(4, 2, block)

	tcs := []struct {
		name string
		x, y int
		want uint32
	}{
		{name: "same 2-block", x: 5, y: 3, want: 20},
		{name: "4-block", x: 3, y: 3, want: 10},
		{name: "8-block", x: 7, y: 7, want: 10},
		{name: "origin", x: 1, y: 0, want: 10},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := s.Guess(tc.x, tc.y)
			if !ok {
				t.Fatal("no guess")
			}
			if got.IterationCount != tc.want {
				t.Errorf("got %d iterations, want %d", got.IterationCount, tc.want)
			}
			if got.IterationQuality != cell.Guessed {
				t.Errorf("got quality %v, want %v", got.IterationQuality, cell.Guessed)
			}
		})
	}

	if v, ok := s.GetOrGuess(4, 2); !ok || v != block {
		t.Errorf("got %v, want the stored %v", v, block)
	}
}

// drain processes events until the mirror is disconnected.
func drain(t *testing.T, m *Mirror) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for m.Connected() {
		if time.Now().After(deadline) {
			t.Fatalf("mirror still connected in state %v with %d cells", m.SeenState(), m.Stage.SetCount())
		}
		m.ProcessEvents()
		time.Sleep(time.Millisecond)
	}
}

func TestMirror_FollowsComputation(t *testing.T) {
	s := newStorage(4, 4, 50)
	m, err := New(s, WithBatching(3, 10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Connected() {
		t.Fatal("mirror not connected")
	}

	e := engine.New(s)
	e.Start()
	e.Wait()
	drain(t, m)

	if m.SeenState() != cell.Completed {
		t.Errorf("got state %v, want %v", m.SeenState(), cell.Completed)
	}
	if !m.IsFullyComputed() || m.ComputedRatio() != 1 {
		t.Errorf("got ratio %v, full %v", m.ComputedRatio(), m.IsFullyComputed())
	}
	for y := range 4 {
		for x := range 4 {
			v, ok := m.Get(x, y)
			if !ok || !v.IsComputed() || v.IterationCount > 50 {
				t.Errorf("(%d,%d): got %v, %v", x, y, v, ok)
			}
			want, _ := s.Grid.Get(uint32(x), uint32(y))
			if v != want {
				t.Errorf("(%d,%d): got %v, grid has %v", x, y, v, want)
			}
		}
	}

	// The receiver was dropped, so a new consumer may connect.
	if _, err := s.EventReceiver(0, 0); err != nil {
		t.Errorf("storage still busy: %v", err)
	}
	_ = s.DropEventReceiver()
}

func TestMirror_SnapshotOfFinishedRun(t *testing.T) {
	s := newStorage(4, 4, 50)
	e := engine.New(s, engine.WithAlgorithm(engine.Linear))
	e.Start()
	e.Wait()

	m, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsFullyComputed() {
		t.Errorf("got ratio %v, want a full snapshot", m.ComputedRatio())
	}
	if m.SeenState() != cell.Completed {
		t.Errorf("got state %v, want %v", m.SeenState(), cell.Completed)
	}
	if m.Connected() {
		t.Error("connected to a completed run")
	}
	if m.ProcessEvents() {
		t.Error("events arrived after completion")
	}

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batcher still running")
	}

	// The receiver was given back.
	if _, err := s.EventReceiver(0, 0); err != nil {
		t.Errorf("storage still busy: %v", err)
	}
	_ = s.DropEventReceiver()
}

func TestMirror_SnapshotOfStalledRun(t *testing.T) {
	s := newStorage(4, 4, 50)
	s.Grid.Set(1, 2, cell.ComputedValue(7, geometry.XY{}))
	s.Grid.SetState(cell.Stalled)

	m, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if m.Connected() {
		t.Error("connected to a stalled run")
	}
	if v, ok := m.Get(1, 2); !ok || v.IterationCount != 7 {
		t.Errorf("got %v, %v, want the stored value", v, ok)
	}
	m.Close()
}

func TestMirror_SecondConsumer(t *testing.T) {
	s := newStorage(4, 4, 50)
	first, err := New(s)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Connected() {
		t.Error("first mirror not connected")
	}

	if _, err := New(s); !errors.Is(err, storage.ErrAlreadyActive) {
		t.Errorf("got error %v, want %v", err, storage.ErrAlreadyActive)
	}

	first.Close()
	if first.Connected() {
		t.Error("connected after Close")
	}
	second, err := New(s)
	if err != nil {
		t.Fatalf("reconnecting after Close: %v", err)
	}
	second.Close()
}
