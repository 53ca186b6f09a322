package transforms

import "github.com/willbeason/deepzoom/pkg/cell"

// Mandelbrot iterates from z = 0 with c being the cell coordinate shifted
// by C.
type Mandelbrot struct {
	C complex128
}

func (m Mandelbrot) Escape(x, y float64, maxIteration uint32) cell.Value {
	return escape(0, 0, x+real(m.C), y+imag(m.C), maxIteration)
}

var _ Escaper = Mandelbrot{}
