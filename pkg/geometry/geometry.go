// Package geometry holds the small value types shared by the pixel and
// mathematical coordinate systems.
package geometry

import "fmt"

// XY is a point or vector in the complex plane, X being the real part.
type XY struct {
	X, Y float64
}

func (p XY) Add(q XY) XY {
	return XY{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p XY) Sub(q XY) XY {
	return XY{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale multiplies both components by f.
func (p XY) Scale(f float64) XY {
	return XY{X: p.X * f, Y: p.Y * f}
}

func (p XY) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle in mathematical space.
// Origin is the corner with the smallest coordinates, so mathematically it is
// the bottom left corner.
type Rect struct {
	Origin XY
	Size   XY
}

// RectFromCorners builds a Rect from two opposite corners in any order.
func RectFromCorners(a, b XY) Rect {
	minX, maxX := min(a.X, b.X), max(a.X, b.X)
	minY, maxY := min(a.Y, b.Y), max(a.Y, b.Y)
	return Rect{
		Origin: XY{X: minX, Y: minY},
		Size:   XY{X: maxX - minX, Y: maxY - minY},
	}
}

func (r Rect) Min() XY {
	return r.Origin
}

func (r Rect) Max() XY {
	return r.Origin.Add(r.Size)
}

func (r Rect) Center() XY {
	return r.Origin.Add(r.Size.Scale(0.5))
}

// Translate moves the rectangle by v without touching its size.
func (r Rect) Translate(v XY) Rect {
	return Rect{Origin: r.Origin.Add(v), Size: r.Size}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g, %g]x[%g, %g]", r.Origin.X, r.Max().X, r.Origin.Y, r.Max().Y)
}
