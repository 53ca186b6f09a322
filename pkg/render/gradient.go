// Package render turns computed cells into images.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/willbeason/deepzoom/pkg/cell"
)

var (
	ErrUnknownScheme     = errors.New("unknown color scheme")
	ErrUnknownAssignment = errors.New("unknown iteration assignment")
)

// Unknown is the color of cells with neither a value nor a guess.
var Unknown = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Scheme is a cyclic gradient through Anchors. Body colors the cells that
// never escaped.
type Scheme struct {
	Name    string
	Body    colorful.Color
	Anchors []colorful.Color
}

func rgb255(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

var bodyBlack = colorful.Color{}

var schemes = []Scheme{
	{Name: "sunrise", Body: bodyBlack, Anchors: []colorful.Color{
		{R: 0, G: 0.2, B: 0.7},
		{R: 1, G: 1, B: 1},
		{R: 1, G: 1, B: 0.2},
		{R: 0.8, G: 0.05, B: 0},
	}},
	{Name: "woods", Body: bodyBlack, Anchors: []colorful.Color{
		rgb255(59, 216, 17),
		rgb255(215, 179, 24),
		rgb255(83, 209, 218),
		rgb255(212, 212, 212),
	}},
	{Name: "moonlight", Body: bodyBlack, Anchors: []colorful.Color{
		rgb255(103, 103, 103),
		rgb255(166, 67, 167),
		rgb255(255, 252, 0),
		rgb255(111, 176, 255),
	}},
	{Name: "gray", Body: bodyBlack, Anchors: []colorful.Color{
		{R: 0, G: 0, B: 0},
		{R: 1, G: 1, B: 1},
	}},
	{Name: "ugly", Body: bodyBlack, Anchors: []colorful.Color{
		{R: 1, G: 0, B: 0},
		{R: 0.875, G: 0, B: 0.375},
		{R: 0, G: 0.5, B: 0.5},
		{R: 0, G: 0, B: 1},
		{R: 1, G: 1, B: 1},
	}},
}

func SchemeNames() []string {
	names := make([]string, len(schemes))
	for i, s := range schemes {
		names[i] = s.Name
	}
	return names
}

func SchemeByName(name string) (Scheme, error) {
	for _, s := range schemes {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Scheme{}, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// Assignment maps an iteration count to a position on the gradient.
// modulo is the number of stripes.
type Assignment func(it, modulo float64) float64

var assignments = map[string]Assignment{
	"cubic": func(it, modulo float64) float64 {
		m := math.Mod(it, modulo)
		return m * m * m
	},
	"squared": func(it, modulo float64) float64 {
		m := math.Mod(it, modulo)
		return m * m
	},
	"linear": func(it, _ float64) float64 { return it },
	"sqrt":   func(it, _ float64) float64 { return math.Sqrt(it) },
	"cbrt":   func(it, _ float64) float64 { return math.Cbrt(it) },
	"log": func(it, _ float64) float64 {
		if it <= 1 {
			return 0
		}
		return math.Log(it)
	},
	"loglog": func(it, _ float64) float64 {
		if it <= math.E {
			return 0
		}
		return math.Log(math.Log(it))
	},
}

func ParseAssignment(name string) (Assignment, error) {
	a, ok := assignments[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssignment, name)
	}
	return a, nil
}

// Gradient colors cell values.
type Gradient struct {
	body    color.RGBA
	stripes []color.RGBA
	assign  Assignment

	// Smooth interpolates between stripes using the distance the final
	// coordinate travelled past the bailout.
	Smooth bool
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// NewGradient spreads the anchors of s evenly over stripeCount stripes,
// blending in linear RGB. A nil assign is linear.
func NewGradient(s Scheme, stripeCount int, assign Assignment) *Gradient {
	stripeCount = max(stripeCount, len(s.Anchors), 1)
	if assign == nil {
		assign = assignments["linear"]
	}

	g := &Gradient{
		body:    toRGBA(s.Body),
		stripes: make([]color.RGBA, 0, stripeCount),
		assign:  assign,
		Smooth:  true,
	}
	if len(s.Anchors) == 0 {
		g.stripes = append(g.stripes, g.body)
		return g
	}

	n := len(s.Anchors)
	factor := float64(stripeCount) / float64(n)
	for i := range n {
		first, last := int(factor*float64(i)), int(factor*float64(i+1))
		if i == n-1 {
			last = stripeCount
		}
		from, to := s.Anchors[i], s.Anchors[(i+1)%n]
		for stripe := range last - first {
			t := float64(stripe) / float64(last-first)
			g.stripes = append(g.stripes, toRGBA(blendLinear(from, to, t)))
		}
	}
	return g
}

func blendLinear(from, to colorful.Color, t float64) colorful.Color {
	r1, g1, b1 := from.LinearRgb()
	r2, g2, b2 := to.LinearRgb()
	return colorful.LinearRgb(r1+t*(r2-r1), g1+t*(g2-g1), b1+t*(b2-b1))
}

func (g *Gradient) Stripes() int { return len(g.stripes) }

// smoothIteration is the continuous escape count of v.
func smoothIteration(v cell.Value) float64 {
	it := float64(v.IterationCount)
	modulus := math.Hypot(v.Final.X, v.Final.Y)
	if modulus <= 2 || math.IsInf(modulus, 0) || math.IsNaN(modulus) {
		return it
	}
	return it + 1 - math.Log2(math.Log(modulus))
}

// Color returns the color of v in a run of maxIteration iterations.
func (g *Gradient) Color(v cell.Value, maxIteration uint32) color.RGBA {
	if v.IterationCount >= maxIteration {
		return g.body
	}

	it := float64(v.IterationCount)
	if g.Smooth {
		it = max(smoothIteration(v), 0)
	}

	n := len(g.stripes)
	pos := g.assign(it, float64(n))
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		return g.stripes[0]
	}

	base := math.Floor(pos)
	i := int(math.Mod(base, float64(n)))
	if !g.Smooth {
		return g.stripes[i]
	}
	return lerp(g.stripes[i], g.stripes[(i+1)%n], pos-base)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
