package transforms

import (
	"math/cmplx"

	"github.com/willbeason/deepzoom/pkg/cell"
	"github.com/willbeason/deepzoom/pkg/geometry"
)

// Julia2 iterates z^2 + C starting at the cell coordinate.
type Julia2 struct {
	C complex128
}

func (j Julia2) Escape(x, y float64, maxIteration uint32) cell.Value {
	return escape(x, y, real(j.C), imag(j.C), maxIteration)
}

// JuliaN iterates z^N + C starting at the cell coordinate.
type JuliaN struct {
	N complex128
	C complex128
}

func (j JuliaN) Next(z complex128) complex128 {
	return cmplx.Pow(z, j.N) + j.C
}

func (j JuliaN) Escape(x, y float64, maxIteration uint32) cell.Value {
	z := complex(x, y)

	var i uint32
	for i < maxIteration && real(z)*real(z)+imag(z)*imag(z) <= Bailout {
		z = j.Next(z)
		i++
	}

	z = j.Next(z)
	return cell.ComputedValue(i, geometry.XY{X: real(z), Y: imag(z)})
}

var (
	_ Escaper = Julia2{}
	_ Escaper = JuliaN{}
)
