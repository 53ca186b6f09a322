package engine

import (
	"cmp"
	"math/bits"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/storage"
	"github.com/willbeason/deepzoom/pkg/transforms"
)

// chunkSize is the number of cells handed to a worker at once.
const chunkSize = 64

type point struct {
	X, Y uint32
}

// coarseness is higher for cells on coarser power-of-two grid lines. Cell
// (0, 0) is the coarsest of all.
func coarseness(p point) int {
	return min(bits.TrailingZeros32(p.X), bits.TrailingZeros32(p.Y))
}

// fillOrder lists every cell of a width*height grid once, coarse grid lines
// first and in random order within the same coarseness.
func fillOrder(width, height uint32) []point {
	order := make([]point, 0, int(width)*int(height))
	for y := range height {
		for x := range width {
			order = append(order, point{X: x, Y: y})
		}
	}

	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	slices.SortStableFunc(order, func(a, b point) int {
		return cmp.Compare(coarseness(b), coarseness(a))
	})
	return order
}

// coordinates precomputes the mathematical coordinates of every column and
// row.
func coordinates(s *storage.Storage) (xs, ys []float64) {
	stage := s.Properties.Stage
	xs = make([]float64, stage.Width)
	for x := range stage.Width {
		xs[x] = stage.X(x)
	}
	ys = make([]float64, stage.Height)
	for y := range stage.Height {
		ys[y] = stage.Y(y)
	}
	return xs, ys
}

// FillShuffled computes every cell of s not yet computed, using workers
// goroutines. The token is checked before every cell.
//
// The grid ends Stalled if the token was cancelled and Completed otherwise.
// FillShuffled always returns true: stopping is reported through the grid
// state only. A Completed grid is left untouched.
func FillShuffled(s *storage.Storage, esc transforms.Escaper, workers int, token *Token) bool {
	g := s.Grid
	if g.State() == cell.Completed {
		return true
	}
	maxIteration := s.Properties.MaxIteration
	xs, ys := coordinates(s)
	order := fillOrder(s.Properties.Stage.Width, s.Properties.Stage.Height)

	workers = max(workers, 1)
	g.SetState(cell.Evolving)

	chunks := make(chan []point)
	go func() {
		defer close(chunks)
		for start := 0; start < len(order); start += chunkSize {
			if token.Cancelled() {
				return
			}
			chunks <- order[start:min(start+chunkSize, len(order))]
		}
	}()

	wg := sync.WaitGroup{}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				for _, p := range chunk {
					if token.Cancelled() {
						break
					}
					if g.IsComputed(p.X, p.Y) {
						continue
					}
					g.Set(p.X, p.Y, esc.Escape(xs[p.X], ys[p.Y], maxIteration))
				}
			}
		}()
	}
	wg.Wait()

	if token.Cancelled() {
		g.SetState(cell.Stalled)
	} else {
		g.SetState(cell.Completed)
	}
	return true
}

// FillLinear computes s row by row on the calling goroutine, checking the
// token before every row. It returns false, leaving the grid Stalled, as
// soon as the token is cancelled. A Completed grid is left untouched.
func FillLinear(s *storage.Storage, esc transforms.Escaper, token *Token) bool {
	g := s.Grid
	if g.State() == cell.Completed {
		return true
	}
	maxIteration := s.Properties.MaxIteration
	xs, ys := coordinates(s)

	g.SetState(cell.Evolving)
	for y, ci := range ys {
		if token.Cancelled() {
			g.SetState(cell.Stalled)
			return false
		}
		for x, cr := range xs {
			if g.IsComputed(uint32(x), uint32(y)) {
				continue
			}
			g.Set(uint32(x), uint32(y), esc.Escape(cr, ci, maxIteration))
		}
	}
	g.SetState(cell.Completed)
	return true
}
