// Package region maps a pixel raster onto a rectangle of the complex plane in
// double precision.
package region

import (
	"fmt"
	"image"
	"math"

	"github.com/willbeason/deepzoom/pkg/geometry"
)

// squareTolerance is the relative difference between the two cell sizes
// below which cells count as square.
const squareTolerance = 1e-5

// Stage is a rectangle in mathematical space rastered into Width*Height
// cells. Pixel y grows downward while mathematical y grows upward, so pixel
// row 0 is the top of the rectangle.
//
// A Stage is a value: all transformations return a new Stage.
type Stage struct {
	Rect          geometry.Rect
	Width, Height uint32

	// dot is the size of one cell, always Rect.Size divided by the pixel
	// dimensions.
	dot geometry.XY
	// base is the mathematical coordinate of the center of cell (0, 0).
	base geometry.XY
}

// NewStage rasters rect into width*height cells.
func NewStage(rect geometry.Rect, width, height uint32) Stage {
	dot := geometry.XY{
		X: rect.Size.X / float64(width),
		Y: rect.Size.Y / float64(height),
	}
	return Stage{
		Rect:   rect,
		Width:  width,
		Height: height,
		dot:    dot,
		base: geometry.XY{
			X: rect.Origin.X + dot.X/2,
			Y: rect.Max().Y - dot.Y/2,
		},
	}
}

// DotSize is the mathematical size of one cell.
func (s Stage) DotSize() geometry.XY {
	return s.dot
}

// Bounds is the pixel rectangle of the stage.
func (s Stage) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(s.Width), int(s.Height))
}

// X is the real part of the center of cell column px.
func (s Stage) X(px uint32) float64 {
	return s.base.X + float64(px)*s.dot.X
}

// Y is the imaginary part of the center of cell row py.
func (s Stage) Y(py uint32) float64 {
	return s.base.Y - float64(py)*s.dot.Y
}

// PixelToMath returns the mathematical coordinate of the center of cell p.
// p may lie outside the raster.
func (s Stage) PixelToMath(p image.Point) geometry.XY {
	return geometry.XY{
		X: s.base.X + float64(p.X)*s.dot.X,
		Y: s.base.Y - float64(p.Y)*s.dot.Y,
	}
}

// PixelToMathOffset converts a pixel vector into a mathematical vector.
func (s Stage) PixelToMathOffset(v image.Point) geometry.XY {
	return geometry.XY{
		X: float64(v.X) * s.dot.X,
		Y: -float64(v.Y) * s.dot.Y,
	}
}

// ShiftedByMath moves the rectangle by v. The cell size does not change.
func (s Stage) ShiftedByMath(v geometry.XY) Stage {
	s.Rect = s.Rect.Translate(v)
	s.base = s.base.Add(v)
	return s
}

// ShiftedByPixels moves the rectangle so that cell p of the result shows
// what cell p+v shows now.
func (s Stage) ShiftedByPixels(v image.Point) Stage {
	return s.ShiftedByMath(s.PixelToMathOffset(v))
}

// ZoomedByPixels scales the cell size by 1/factor keeping the mathematical
// coordinate of origin fixed. factor > 1 zooms in.
func (s Stage) ZoomedByPixels(origin image.Point, factor float64) Stage {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		panic(fmt.Sprintf("region: invalid zoom factor %g", factor))
	}

	fixed := s.PixelToMath(origin)
	dot := s.dot.Scale(1 / factor)

	base := geometry.XY{
		X: fixed.X - float64(origin.X)*dot.X,
		Y: fixed.Y + float64(origin.Y)*dot.Y,
	}
	size := geometry.XY{X: dot.X * float64(s.Width), Y: dot.Y * float64(s.Height)}
	top := base.Y + dot.Y/2

	return NewStage(geometry.Rect{
		Origin: geometry.XY{X: base.X - dot.X/2, Y: top - size.Y},
		Size:   size,
	}, s.Width, s.Height)
}

// IsSquare reports whether cells are square within tolerance.
func (s Stage) IsSquare() bool {
	return math.Abs(1-s.dot.X/s.dot.Y) < squareTolerance
}

// Rectified returns a stage of the same pixel size whose cells are square,
// centered on the same point. With inner the new rectangle fits inside the
// old one, otherwise it covers it.
func (s Stage) Rectified(inner bool) Stage {
	if s.IsSquare() {
		return s
	}

	var dot float64
	if inner {
		dot = min(s.dot.X, s.dot.Y)
	} else {
		dot = max(s.dot.X, s.dot.Y)
	}

	center := s.Rect.Center()
	half := geometry.XY{X: dot * float64(s.Width) / 2, Y: dot * float64(s.Height) / 2}
	return NewStage(geometry.RectFromCorners(center.Sub(half), center.Add(half)), s.Width, s.Height)
}

func (s Stage) String() string {
	return fmt.Sprintf("%s @ %dx%d", s.Rect, s.Width, s.Height)
}
