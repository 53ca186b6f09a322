package precision

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/willbeason/deepzoom/pkg/geometry"
)

// Area is a rectangle of the complex plane given by its center, the radius
// of its shorter half axis and the ratio width/height.
//
// Areas are immutable. Every operation returns a new Area, and the decimals
// handed out by accessors are copies.
type Area struct {
	centerX, centerY *apd.Decimal
	radius           *apd.Decimal
	ratio            *apd.Decimal

	radiusMagnitude int64
	precision       uint32
}

// NewArea derives the precision for radius and rounds the center to it.
// radius and ratio must be positive. The arguments are not retained.
func NewArea(centerX, centerY, radius, ratio *apd.Decimal) (*Area, error) {
	for _, d := range []*apd.Decimal{centerX, centerY, radius, ratio} {
		if d == nil || d.Form != apd.Finite {
			return nil, fmt.Errorf("%w: values must be finite", ErrInvalidArea)
		}
	}
	if radius.Sign() <= 0 {
		return nil, fmt.Errorf("%w: radius %s is not positive", ErrInvalidArea, radius)
	}
	if ratio.Sign() <= 0 {
		return nil, fmt.Errorf("%w: ratio %s is not positive", ErrInvalidArea, ratio)
	}

	a := &Area{
		radius:          reduced(radius),
		ratio:           reduced(ratio),
		radiusMagnitude: Magnitude(radius),
		precision:       PrecisionFor(radius),
	}
	a.centerX = a.round(centerX)
	a.centerY = a.round(centerY)
	return a, nil
}

// ParseArea is NewArea for decimal strings.
func ParseArea(centerX, centerY, radius, ratio string) (*Area, error) {
	cx, err := parse("center x", centerX)
	if err != nil {
		return nil, err
	}
	cy, err := parse("center y", centerY)
	if err != nil {
		return nil, err
	}
	r, err := parse("radius", radius)
	if err != nil {
		return nil, err
	}
	q, err := parse("ratio", ratio)
	if err != nil {
		return nil, err
	}
	return NewArea(cx, cy, r, q)
}

func reduced(d *apd.Decimal) *apd.Decimal {
	r, _ := new(apd.Decimal).Reduce(d)
	return r
}

// round cuts d after a.precision decimal places.
func (a *Area) round(d *apd.Decimal) *apd.Decimal {
	exp := int32(1) - int32(a.precision)
	if d.Exponent >= exp {
		return reduced(d)
	}
	r := new(apd.Decimal)
	must(workingContext(a.precision, d).Quantize(r, d, exp))
	return reduced(r)
}

func (a *Area) context() *apd.Context {
	return workingContext(a.precision, a.centerX, a.centerY, a.radius, a.ratio)
}

func (a *Area) CenterX() *apd.Decimal { return new(apd.Decimal).Set(a.centerX) }
func (a *Area) CenterY() *apd.Decimal { return new(apd.Decimal).Set(a.centerY) }
func (a *Area) Radius() *apd.Decimal  { return new(apd.Decimal).Set(a.radius) }
func (a *Area) Ratio() *apd.Decimal   { return new(apd.Decimal).Set(a.ratio) }

// Precision is the number of significant digits relevant at this zoom depth.
func (a *Area) Precision() uint32 { return a.precision }

func (a *Area) RadiusMagnitude() int64 { return a.radiusMagnitude }

// halfWidth and halfHeight: the radius is the shorter of the two.
func (a *Area) halfWidth() *apd.Decimal {
	if a.ratio.Cmp(decimalOne) <= 0 {
		return a.Radius()
	}
	d := new(apd.Decimal)
	must(exact.Mul(d, a.radius, a.ratio))
	return d
}

func (a *Area) halfHeight() *apd.Decimal {
	if a.ratio.Cmp(decimalOne) >= 0 {
		return a.Radius()
	}
	d := new(apd.Decimal)
	must(a.context().Quo(d, a.radius, a.ratio))
	return d
}

var (
	decimalOne = apd.New(1, 0)
	decimalTwo = apd.New(2, 0)
)

// Rect is an axis-aligned rectangle with decimal bounds. MinX, MinY is the
// bottom left corner.
type Rect struct {
	MinX, MinY    *apd.Decimal
	Width, Height *apd.Decimal
}

// Rect returns the bounding rectangle of a.
func (a *Area) Rect() Rect {
	hw, hh := a.halfWidth(), a.halfHeight()
	r := Rect{
		MinX:   new(apd.Decimal),
		MinY:   new(apd.Decimal),
		Width:  new(apd.Decimal),
		Height: new(apd.Decimal),
	}
	must(exact.Sub(r.MinX, a.centerX, hw))
	must(exact.Sub(r.MinY, a.centerY, hh))
	must(exact.Mul(r.Width, hw, decimalTwo))
	must(exact.Mul(r.Height, hh, decimalTwo))
	return r
}

// RectFloat64 is Rect converted to float64.
func (a *Area) RectFloat64() (geometry.Rect, error) {
	r := a.Rect()
	vals := make([]float64, 4)
	for i, d := range []*apd.Decimal{r.MinX, r.MinY, r.Width, r.Height} {
		f, err := toFloat(d)
		if err != nil {
			return geometry.Rect{}, err
		}
		vals[i] = f
	}
	return geometry.Rect{
		Origin: geometry.XY{X: vals[0], Y: vals[1]},
		Size:   geometry.XY{X: vals[2], Y: vals[3]},
	}, nil
}

// FromRect returns the area covering r exactly.
func FromRect(r Rect) (*Area, error) {
	for _, d := range []*apd.Decimal{r.MinX, r.MinY, r.Width, r.Height} {
		if d == nil || d.Form != apd.Finite {
			return nil, fmt.Errorf("%w: rectangle bounds must be finite", ErrInvalidArea)
		}
	}
	if r.Width.Sign() <= 0 || r.Height.Sign() <= 0 {
		return nil, fmt.Errorf("%w: rectangle %sx%s is empty", ErrInvalidArea, r.Width, r.Height)
	}

	// Halving a decimal needs at most one more digit.
	half := func(d *apd.Decimal) *apd.Decimal {
		h := new(apd.Decimal)
		must(apd.BaseContext.WithPrecision(uint32(d.NumDigits())+1).Quo(h, d, decimalTwo))
		return h
	}
	hw, hh := half(r.Width), half(r.Height)

	radius := hw
	if hh.Cmp(hw) < 0 {
		radius = hh
	}

	ctx := workingContext(PrecisionFor(radius), r.MinX, r.MinY, hw, hh)
	ratio := new(apd.Decimal)
	must(ctx.Quo(ratio, hw, hh))

	cx, cy := new(apd.Decimal), new(apd.Decimal)
	must(exact.Add(cx, r.MinX, hw))
	must(exact.Add(cy, r.MinY, hh))
	return NewArea(cx, cy, radius, ratio)
}

// FromRectFloat64 is FromRect for a float64 rectangle.
func FromRectFloat64(r geometry.Rect) (*Area, error) {
	for _, f := range []float64{r.Origin.X, r.Origin.Y, r.Size.X, r.Size.Y} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: rectangle %v is not finite", ErrInvalidArea, r)
		}
	}
	minX, err := fromFloat("min x", r.Origin.X)
	if err != nil {
		return nil, err
	}
	minY, err := fromFloat("min y", r.Origin.Y)
	if err != nil {
		return nil, err
	}
	width, err := fromFloat("width", r.Size.X)
	if err != nil {
		return nil, err
	}
	height, err := fromFloat("height", r.Size.Y)
	if err != nil {
		return nil, err
	}
	return FromRect(Rect{MinX: minX, MinY: minY, Width: width, Height: height})
}

// Shift moves the center by (dx, dy).
func (a *Area) Shift(dx, dy *apd.Decimal) *Area {
	cx, cy := new(apd.Decimal), new(apd.Decimal)
	must(exact.Add(cx, a.centerX, dx))
	must(exact.Add(cy, a.centerY, dy))
	shifted, err := NewArea(cx, cy, a.radius, a.ratio)
	if err != nil {
		panic(fmt.Sprintf("precision: shifting by (%s, %s): %v", dx, dy, err))
	}
	return shifted
}

// Fitted returns the smallest area with the aspect ratio of a width*height
// raster that has the center of a and contains it.
func (a *Area) Fitted(width, height uint32) (*Area, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrInvalidArea, width, height)
	}

	ctx := a.context()
	ratio := new(apd.Decimal)
	must(ctx.Quo(ratio, apd.New(int64(width), 0), apd.New(int64(height), 0)))

	hw, hh := a.halfWidth(), a.halfHeight()
	radius := new(apd.Decimal)
	if ratio.Cmp(decimalOne) >= 0 {
		// half extents become radius*ratio by radius
		must(ctx.Quo(radius, hw, ratio))
		if hh.Cmp(radius) > 0 {
			radius.Set(hh)
		}
	} else {
		// radius by radius/ratio
		must(ctx.Mul(radius, hh, ratio))
		if hw.Cmp(radius) > 0 {
			radius.Set(hw)
		}
	}
	return NewArea(a.centerX, a.centerY, radius, ratio)
}

func (a *Area) String() string {
	return fmt.Sprintf("center=(%s, %s) radius=%s ratio=%s precision=%d",
		a.centerX.Text('f'), a.centerY.Text('f'), a.radius.Text('g'), a.ratio.Text('g'), a.precision)
}
