package precision

import (
	"fmt"
	"image"

	"github.com/cockroachdb/apd/v3"

	"github.com/willbeason/deepzoom/pkg/region"
)

// RasteredArea lays a width*height pixel raster over an Area. Like
// region.Stage, pixel (0, 0) is the top left cell and pixel y grows downward.
type RasteredArea struct {
	area          *Area
	width, height uint32

	// left and top are the mathematical coordinates of the top left corner
	// of pixel (0, 0).
	left, top    *apd.Decimal
	pixW, pixH   *apd.Decimal
	halfW, halfH *apd.Decimal
}

// NewRasteredArea panics on an empty raster.
func NewRasteredArea(area *Area, width, height uint32) *RasteredArea {
	if width == 0 || height == 0 {
		panic(fmt.Sprintf("precision: empty raster %dx%d", width, height))
	}

	r := area.Rect()
	ctx := area.context()

	ra := &RasteredArea{
		area:   area,
		width:  width,
		height: height,
		left:   r.MinX,
		top:    new(apd.Decimal),
		pixW:   new(apd.Decimal),
		pixH:   new(apd.Decimal),
		halfW:  new(apd.Decimal),
		halfH:  new(apd.Decimal),
	}
	must(exact.Add(ra.top, r.MinY, r.Height))
	must(ctx.Quo(ra.pixW, r.Width, new(apd.Decimal).SetInt64(int64(width))))
	must(ctx.Quo(ra.pixH, r.Height, new(apd.Decimal).SetInt64(int64(height))))
	must(ctx.Quo(ra.halfW, ra.pixW, decimalTwo))
	must(ctx.Quo(ra.halfH, ra.pixH, decimalTwo))
	return ra
}

func (ra *RasteredArea) Area() *Area { return ra.area }

func (ra *RasteredArea) Size() (width, height uint32) { return ra.width, ra.height }

// PixelSize is the mathematical width and height of one pixel.
func (ra *RasteredArea) PixelSize() (w, h *apd.Decimal) {
	return new(apd.Decimal).Set(ra.pixW), new(apd.Decimal).Set(ra.pixH)
}

// CooX is the real part of the left edge of pixel column x.
func (ra *RasteredArea) CooX(x int64) *apd.Decimal {
	d := new(apd.Decimal)
	must(exact.Mul(d, ra.pixW, new(apd.Decimal).SetInt64(x)))
	must(exact.Add(d, ra.left, d))
	return d
}

// CooY is the imaginary part of the top edge of pixel row y.
func (ra *RasteredArea) CooY(y int64) *apd.Decimal {
	d := new(apd.Decimal)
	must(exact.Mul(d, ra.pixH, new(apd.Decimal).SetInt64(y)))
	must(exact.Sub(d, ra.top, d))
	return d
}

// Coo is the top left corner of pixel p.
func (ra *RasteredArea) Coo(p image.Point) (x, y *apd.Decimal) {
	return ra.CooX(int64(p.X)), ra.CooY(int64(p.Y))
}

// CenterCoo is the center of pixel p, the point the engine computes.
func (ra *RasteredArea) CenterCoo(p image.Point) (x, y *apd.Decimal) {
	x, y = ra.Coo(p)
	must(exact.Add(x, x, ra.halfW))
	must(exact.Sub(y, y, ra.halfH))
	return x, y
}

// ShiftByPixels moves the area so that pixel p of the result shows what
// pixel p+v shows now.
func (ra *RasteredArea) ShiftByPixels(v image.Point) *RasteredArea {
	dx, dy := new(apd.Decimal), new(apd.Decimal)
	must(exact.Mul(dx, ra.pixW, new(apd.Decimal).SetInt64(int64(v.X))))
	must(exact.Mul(dy, ra.pixH, new(apd.Decimal).SetInt64(int64(-v.Y))))
	return NewRasteredArea(ra.area.Shift(dx, dy), ra.width, ra.height)
}

// ZoomAtPixel divides the radius by factor keeping the center of pixel p in
// place. factor > 1 zooms in.
func (ra *RasteredArea) ZoomAtPixel(p image.Point, factor *apd.Decimal) (*RasteredArea, error) {
	if factor == nil || factor.Form != apd.Finite || factor.Sign() <= 0 {
		return nil, fmt.Errorf("%w: zoom factor %v", ErrInvalidArea, factor)
	}

	mx, my := ra.CenterCoo(p)
	a := ra.area

	// Precision of the zoomed area, so that the new center is not rounded
	// more coarsely than it will be stored.
	radius := new(apd.Decimal)
	must(a.context().Quo(radius, a.radius, factor))
	ctx := workingContext(PrecisionFor(radius), mx, my, a.centerX, a.centerY)

	// center' = m + (center - m) / factor
	cx, cy := new(apd.Decimal), new(apd.Decimal)
	must(exact.Sub(cx, a.centerX, mx))
	must(ctx.Quo(cx, cx, factor))
	must(exact.Add(cx, mx, cx))
	must(exact.Sub(cy, a.centerY, my))
	must(ctx.Quo(cy, cy, factor))
	must(exact.Add(cy, my, cy))

	zoomed, err := NewArea(cx, cy, radius, a.ratio)
	if err != nil {
		return nil, err
	}
	return NewRasteredArea(zoomed, ra.width, ra.height), nil
}

// ZoomAtPixelFloat64 is ZoomAtPixel with a float64 factor.
func (ra *RasteredArea) ZoomAtPixelFloat64(p image.Point, factor float64) (*RasteredArea, error) {
	f, err := fromFloat("zoom factor", factor)
	if err != nil {
		return nil, err
	}
	return ra.ZoomAtPixel(p, f)
}

// Properties converts the area into the float64 description used to run a
// computation.
func (ra *RasteredArea) Properties(maxIteration uint32) (region.Properties, error) {
	rect, err := ra.area.RectFloat64()
	if err != nil {
		return region.Properties{}, err
	}
	return region.NewProperties(region.NewStage(rect, ra.width, ra.height), maxIteration), nil
}
