package precision

import (
	"errors"
	"fmt"
	"image"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"

	"github.com/willbeason/deepzoom/pkg/geometry"
)

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func quo(t *testing.T, a, b string) *apd.Decimal {
	t.Helper()
	d := new(apd.Decimal)
	if _, err := apd.BaseContext.WithPrecision(40).Quo(d, dec(t, a), dec(t, b)); err != nil {
		t.Fatal(err)
	}
	return d
}

func equal(t *testing.T, name string, got, want *apd.Decimal) {
	t.Helper()
	if got.Cmp(want) != 0 {
		t.Errorf("%s: got %s, want %s", name, got, want)
	}
}

func area(t *testing.T, cx, cy, radius, ratio string) *Area {
	t.Helper()
	a, err := ParseArea(cx, cy, radius, ratio)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestMagnitude(t *testing.T) {
	tcs := []struct {
		in   string
		want int64
	}{
		{in: "12345.6789", want: 4},
		{in: "100", want: 2},
		{in: "1", want: 0},
		{in: "1.0", want: 0},
		{in: "0.01", want: -2},
		{in: "0.00785637", want: -3},
		{in: "-250", want: 2},
		{in: "1e-13", want: -13},
		{in: "0", want: 0},
	}

	for _, tc := range tcs {
		t.Run(tc.in, func(t *testing.T) {
			if got := Magnitude(dec(t, tc.in)); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPrecisionFor_Monotonic(t *testing.T) {
	prev := PrecisionFor(apd.New(1, 5))
	if prev != RelevanceConstant {
		t.Fatalf("got precision %d for radius 1e5, want %d", prev, RelevanceConstant)
	}

	for exp := int32(4); exp >= -40; exp-- {
		got := PrecisionFor(apd.New(1, exp))
		want := prev
		if exp < 0 {
			want = prev + 1
		}
		if got != want {
			t.Fatalf("radius 1e%d: got precision %d, want %d", exp, got, want)
		}
		prev = got
	}

	if got := PrecisionFor(apd.New(1, -13)); got != 21 {
		t.Errorf("got precision %d for radius 1e-13, want 21", got)
	}
}

func TestNewArea(t *testing.T) {
	a := area(t, "5.2", "3.9", "0.7", "1.0")

	equal(t, "center x", a.CenterX(), dec(t, "5.2"))
	equal(t, "center y", a.CenterY(), dec(t, "3.9"))
	equal(t, "radius", a.Radius(), dec(t, "0.7"))
	equal(t, "ratio", a.Ratio(), dec(t, "1"))
	if a.RadiusMagnitude() != -1 || a.Precision() != 9 {
		t.Errorf("got magnitude %d precision %d, want -1 and 9", a.RadiusMagnitude(), a.Precision())
	}

	// Accessors hand out copies.
	a.CenterX().SetInt64(0)
	equal(t, "center x after modifying a copy", a.CenterX(), dec(t, "5.2"))
}

func TestNewArea_ReducesRadius(t *testing.T) {
	a := area(t, "0", "0", "1.500", "2.000")
	if got := a.Radius().String(); got != "1.5" {
		t.Errorf("got radius %s, want 1.5", got)
	}
	if got := a.Ratio().String(); got != "2" {
		t.Errorf("got ratio %s, want 2", got)
	}
}

func TestNewArea_RoundsCenter(t *testing.T) {
	const center = "-0.74364388703715870475219"

	tcs := []struct {
		radius string
		want   string
	}{
		{radius: "1", want: "-0.7436439"},
		{radius: "0.01", want: "-0.743643887"},
		{radius: "1e-13", want: "-0.74364388703715870475"},
		{radius: "1e-30", want: center},
	}

	for _, tc := range tcs {
		t.Run(tc.radius, func(t *testing.T) {
			a := area(t, center, "0.5", tc.radius, "1")
			equal(t, "center x", a.CenterX(), dec(t, tc.want))
		})
	}
}

func TestParseArea_Invalid(t *testing.T) {
	tcs := []struct {
		name                  string
		cx, cy, radius, ratio string
	}{
		{name: "garbage", cx: "one", cy: "0", radius: "1", ratio: "1"},
		{name: "empty", cx: "0", cy: "", radius: "1", ratio: "1"},
		{name: "zero radius", cx: "0", cy: "0", radius: "0", ratio: "1"},
		{name: "negative ratio", cx: "0", cy: "0", radius: "1", ratio: "-1"},
		{name: "infinite", cx: "Infinity", cy: "0", radius: "1", ratio: "1"},
		{name: "nan", cx: "0", cy: "0", radius: "NaN", ratio: "1"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ParseArea(tc.cx, tc.cy, tc.radius, tc.ratio)
			if a != nil {
				t.Errorf("got area %v, want nil", a)
			}
			if !errors.Is(err, ErrInvalidArea) {
				t.Errorf("got error %v, want %v", err, ErrInvalidArea)
			}
		})
	}
}

func TestArea_Rect(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		r := area(t, "5.2", "3.9", "0.7", "1.0").Rect()
		equal(t, "min x", r.MinX, dec(t, "4.5"))
		equal(t, "min y", r.MinY, dec(t, "3.2"))
		equal(t, "width", r.Width, dec(t, "1.4"))
		equal(t, "height", r.Height, dec(t, "1.4"))
	})

	t.Run("wide", func(t *testing.T) {
		r := area(t, "6", "8", "2", "1.5").Rect()
		equal(t, "min x", r.MinX, dec(t, "3"))
		equal(t, "min y", r.MinY, dec(t, "6"))
		equal(t, "width", r.Width, dec(t, "6"))
		equal(t, "height", r.Height, dec(t, "4"))
	})

	t.Run("tall", func(t *testing.T) {
		r := area(t, "6", "8", "2", "0.5").Rect()
		equal(t, "min x", r.MinX, dec(t, "4"))
		equal(t, "min y", r.MinY, dec(t, "4"))
		equal(t, "width", r.Width, dec(t, "4"))
		equal(t, "height", r.Height, dec(t, "8"))
	})
}

func TestArea_RectFloat64(t *testing.T) {
	got, err := area(t, "5.2", "3.9", "0.7", "1.0").RectFloat64()
	if err != nil {
		t.Fatal(err)
	}
	want := geometry.Rect{Origin: geometry.XY{X: 4.5, Y: 3.2}, Size: geometry.XY{X: 1.4, Y: 1.4}}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromRect(t *testing.T) {
	tcs := []struct {
		name                  string
		width, height         string
		cx, cy, radius, ratio *apd.Decimal
	}{
		{
			name: "square", width: "4", height: "4",
			cx: apd.New(3, 0), cy: apd.New(3, 0), radius: apd.New(2, 0), ratio: apd.New(1, 0),
		},
		{
			name: "wide", width: "6", height: "4",
			cx: apd.New(4, 0), cy: apd.New(3, 0), radius: apd.New(2, 0), ratio: apd.New(15, -1),
		},
		{
			name: "tall", width: "4", height: "6",
			cx: apd.New(3, 0), cy: apd.New(4, 0), radius: apd.New(2, 0), ratio: nil,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a, err := FromRect(Rect{MinX: dec(t, "1"), MinY: dec(t, "1"), Width: dec(t, tc.width), Height: dec(t, tc.height)})
			if err != nil {
				t.Fatal(err)
			}
			equal(t, "center x", a.CenterX(), tc.cx)
			equal(t, "center y", a.CenterY(), tc.cy)
			equal(t, "radius", a.Radius(), tc.radius)
			if tc.ratio != nil {
				equal(t, "ratio", a.Ratio(), tc.ratio)
				return
			}
			// 2/3 is rounded, compare loosely.
			diff := new(apd.Decimal)
			if _, err := apd.BaseContext.WithPrecision(40).Sub(diff, a.Ratio(), quo(t, "2", "3")); err != nil {
				t.Fatal(err)
			}
			if diff.Abs(diff).Cmp(apd.New(1, -8)) > 0 {
				t.Errorf("got ratio %s, want 2/3", a.Ratio())
			}
		})
	}

	if _, err := FromRect(Rect{MinX: dec(t, "0"), MinY: dec(t, "0"), Width: dec(t, "0"), Height: dec(t, "1")}); !errors.Is(err, ErrInvalidArea) {
		t.Errorf("empty rectangle: got error %v", err)
	}
}

func TestFromRectFloat64(t *testing.T) {
	a, err := FromRectFloat64(geometry.Rect{Origin: geometry.XY{X: 1, Y: 1}, Size: geometry.XY{X: 4, Y: 4}})
	if err != nil {
		t.Fatal(err)
	}
	equal(t, "center x", a.CenterX(), apd.New(3, 0))
	equal(t, "center y", a.CenterY(), apd.New(3, 0))
	equal(t, "radius", a.Radius(), apd.New(2, 0))
	equal(t, "ratio", a.Ratio(), apd.New(1, 0))

	for _, f := range []float64{math.NaN(), math.Inf(1)} {
		a, err := FromRectFloat64(geometry.Rect{Size: geometry.XY{X: f, Y: 1}})
		if a != nil || !errors.Is(err, ErrInvalidArea) {
			t.Errorf("width %g: got %v, %v", f, a, err)
		}
	}
}

func TestArea_Shift(t *testing.T) {
	a := area(t, "5", "1", "8", "9")
	shifted := a.Shift(apd.New(3, 0), apd.New(4, 0))

	equal(t, "center x", shifted.CenterX(), apd.New(8, 0))
	equal(t, "center y", shifted.CenterY(), apd.New(5, 0))
	equal(t, "radius", shifted.Radius(), apd.New(8, 0))
	equal(t, "ratio", shifted.Ratio(), apd.New(9, 0))
	equal(t, "original center x", a.CenterX(), apd.New(5, 0))
}

func TestArea_Fitted(t *testing.T) {
	tests := []struct {
		name          string
		radius, ratio string
		width, height uint32
		wantRadius    string
		wantRatio     string
	}{
		{name: "square to wide", radius: "1", ratio: "1", width: 200, height: 100, wantRadius: "1", wantRatio: "2"},
		{name: "square to tall", radius: "1", ratio: "1", width: 100, height: 200, wantRadius: "1", wantRatio: "0.5"},
		{name: "wider area", radius: "1", ratio: "4", width: 200, height: 100, wantRadius: "2", wantRatio: "2"},
		{name: "same ratio", radius: "0.25", ratio: "2", width: 20, height: 10, wantRadius: "0.25", wantRatio: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fitted, err := area(t, "-0.5", "0.25", tt.radius, tt.ratio).Fitted(tt.width, tt.height)
			if err != nil {
				t.Fatal(err)
			}
			equal(t, "radius", fitted.Radius(), dec(t, tt.wantRadius))
			equal(t, "ratio", fitted.Ratio(), dec(t, tt.wantRatio))
			equal(t, "center x", fitted.CenterX(), dec(t, "-0.5"))
		})
	}

	if _, err := area(t, "0", "0", "1", "1").Fitted(0, 10); !errors.Is(err, ErrInvalidArea) {
		t.Errorf("got %v, want %v", err, ErrInvalidArea)
	}
}

func TestRasteredArea_Coo(t *testing.T) {
	ra := NewRasteredArea(area(t, "3", "5", "1", "2"), 100, 200)

	if w, h := ra.Size(); w != 100 || h != 200 {
		t.Errorf("got size %dx%d", w, h)
	}
	equal(t, "x(0)", ra.CooX(0), dec(t, "1"))
	equal(t, "x(100)", ra.CooX(100), dec(t, "5"))
	equal(t, "x(1)", ra.CooX(1), dec(t, "1.04"))
	equal(t, "x(-1)", ra.CooX(-1), dec(t, "0.96"))
	equal(t, "y(0)", ra.CooY(0), dec(t, "6"))
	equal(t, "y(200)", ra.CooY(200), dec(t, "4"))
	equal(t, "y(1)", ra.CooY(1), dec(t, "5.99"))
	equal(t, "y(-1)", ra.CooY(-1), dec(t, "6.01"))

	x, y := ra.CenterCoo(image.Point{X: 1, Y: -1})
	equal(t, "center x", x, dec(t, "1.06"))
	equal(t, "center y", y, dec(t, "6.005"))
}

func TestRasteredArea_ShiftByPixels(t *testing.T) {
	ra := NewRasteredArea(area(t, "3", "5", "1", "2"), 100, 200)
	shifted := ra.ShiftByPixels(image.Point{X: 25, Y: -100})

	equal(t, "center x", shifted.Area().CenterX(), dec(t, "4"))
	equal(t, "center y", shifted.Area().CenterY(), dec(t, "6"))

	// Pixel p of the result shows pixel p+v of the original.
	gx, gy := shifted.CenterCoo(image.Point{X: 3, Y: 150})
	wx, wy := ra.CenterCoo(image.Point{X: 28, Y: 50})
	equal(t, "moved pixel x", gx, wx)
	equal(t, "moved pixel y", gy, wy)
}

func TestRasteredArea_ZoomAtPixel(t *testing.T) {
	areas := []*Area{
		area(t, "-0.5", "0", "1.5", "1.5"),
		area(t, "-0.743643887037158704752191506114774", "0.131825904205311970493132056385139", "1e-25", "1.25"),
	}
	points := []image.Point{{}, {X: 17, Y: 3}, {X: 79, Y: 59}, {X: -4, Y: 100}}
	factors := []string{"2", "10", "0.5", "2.5", "1000000"}

	for i, a := range areas {
		ra := NewRasteredArea(a, 80, 60)
		for _, p := range points {
			for _, f := range factors {
				t.Run(fmt.Sprintf("%d/%v/%s", i, p, f), func(t *testing.T) {
					zoomed, err := ra.ZoomAtPixel(p, dec(t, f))
					if err != nil {
						t.Fatal(err)
					}

					equal(t, "radius", zoomed.Area().Radius(), reduced(quo(t, a.Radius().String(), f)))

					bx, by := ra.CenterCoo(p)
					ax, ay := zoomed.CenterCoo(p)
					pixW, _ := zoomed.PixelSize()
					limit := new(apd.Decimal)
					if _, err := apd.BaseContext.WithPrecision(10).Mul(limit, pixW, apd.New(1, -4)); err != nil {
						t.Fatal(err)
					}

					for _, c := range [][2]*apd.Decimal{{bx, ax}, {by, ay}} {
						diff := new(apd.Decimal)
						if _, err := exact.Sub(diff, c[0], c[1]); err != nil {
							t.Fatal(err)
						}
						if diff.Abs(diff).Cmp(limit) > 0 {
							t.Errorf("pixel moved from %s to %s", c[0], c[1])
						}
					}
				})
			}
		}
	}

	if _, err := NewRasteredArea(areas[0], 8, 6).ZoomAtPixel(image.Point{}, apd.New(0, 0)); !errors.Is(err, ErrInvalidArea) {
		t.Errorf("zero factor: got error %v", err)
	}
}

func TestRasteredArea_Properties(t *testing.T) {
	ra := NewRasteredArea(area(t, "-0.5", "0", "1", "1.5"), 6, 4)
	p, err := ra.Properties(250)
	if err != nil {
		t.Fatal(err)
	}

	if p.MaxIteration != 250 {
		t.Errorf("got max iteration %d", p.MaxIteration)
	}
	want := geometry.Rect{Origin: geometry.XY{X: -2, Y: -1}, Size: geometry.XY{X: 3, Y: 2}}
	if p.Stage.Rect != want {
		t.Errorf("got rect %v, want %v", p.Stage.Rect, want)
	}
	if p.Stage.Width != 6 || p.Stage.Height != 4 {
		t.Errorf("got size %dx%d", p.Stage.Width, p.Stage.Height)
	}
}

func TestRasteredArea_DeepZoom(t *testing.T) {
	ra := NewRasteredArea(area(t, "-0.743643887037151", "0.13182590420533", "2", "1.5"), 96, 64)
	p := image.Pt(37, 11)
	ctx := apd.BaseContext.WithPrecision(60)

	for i := range 60 {
		wantX, wantY := ra.CenterCoo(p)
		var err error
		ra, err = ra.ZoomAtPixel(p, apd.New(2, 0))
		if err != nil {
			t.Fatal(err)
		}

		x, y := ra.CenterCoo(p)
		pw, ph := ra.PixelSize()
		for _, c := range []struct {
			name            string
			got, want, size *apd.Decimal
		}{
			{"x", x, wantX, pw},
			{"y", y, wantY, ph},
		} {
			diff, limit := new(apd.Decimal), new(apd.Decimal)
			must(ctx.Sub(diff, c.got, c.want))
			diff.Abs(diff)
			must(ctx.Mul(limit, c.size, apd.New(1, -3)))
			if diff.Cmp(limit) > 0 {
				t.Fatalf("zoom %d: %s moved by %s, more than a thousandth of a pixel (%s)", i+1, c.name, diff, c.size)
			}
		}
	}

	a := ra.Area()
	if a.RadiusMagnitude() != -18 || a.Precision() != 26 {
		t.Errorf("got magnitude %d precision %d, want -18 and 26", a.RadiusMagnitude(), a.Precision())
	}
}
