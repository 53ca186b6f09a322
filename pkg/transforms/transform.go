// Package transforms holds the escape-time iterations that fill a grid.
package transforms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/geometry"
)

// Bailout is the squared radius beyond which an orbit has escaped.
const Bailout = 4.0

var ErrUnknownFractal = errors.New("unknown fractal")

// An Escaper computes the value of the cell at (x, y) in mathematical
// coordinates. Implementations are pure and safe for concurrent use.
type Escaper interface {
	Escape(x, y float64, maxIteration uint32) cell.Value
}

// escape iterates z <- z^2 + c from z = x + iy.
//
// The count is the number of iterations performed while |z|^2 <= Bailout.
// Final is one iteration past the last tested point. The recurrence uses
// w = (x+y)^2, so that 2xy = w - x^2 - y^2 needs no extra multiplication.
func escape(x, y, cr, ci float64, maxIteration uint32) cell.Value {
	x2, y2 := x*x, y*y
	w := (x + y) * (x + y)

	var i uint32
	for i < maxIteration && x2+y2 <= Bailout {
		x = x2 - y2 + cr
		y = w - x2 - y2 + ci
		x2 = x * x
		y2 = y * y
		w = (x + y) * (x + y)
		i++
	}

	return cell.ComputedValue(i, geometry.XY{
		X: x2 - y2 + cr,
		Y: w - x2 - y2 + ci,
	})
}

// New returns the escaper called name. c is the Julia constant; for
// mandelbrot it offsets every point. n is the exponent of julia-n.
func New(name string, c complex128, n float64) (Escaper, error) {
	switch strings.ToLower(name) {
	case "", "mandelbrot":
		return Mandelbrot{C: c}, nil
	case "julia", "julia2":
		return Julia2{C: c}, nil
	case "julia-n", "julian":
		if n < 2 {
			return nil, fmt.Errorf("julia-n exponent %g: must be at least 2", n)
		}
		return JuliaN{N: complex(n, 0), C: c}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFractal, name)
}
