package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/willbeason/deepzoom/pkg/cell"
)

// Source is a readable grid of cells, such as a mirror stage.
type Source interface {
	Width() int
	Height() int
	// GetOrGuess returns the value at (x, y) or an estimate of it.
	GetOrGuess(x, y int) (cell.Value, bool)
}

func pixel(src Source, x, y int, maxIteration uint32, g *Gradient) color.RGBA {
	v, ok := src.GetOrGuess(x, y)
	if !ok {
		return Unknown
	}
	return g.Color(v, maxIteration)
}

// Image draws src with one pixel per cell.
func Image(src Source, maxIteration uint32, g *Gradient) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, src.Width(), src.Height()))
	for y := range src.Height() {
		for x := range src.Width() {
			img.SetRGBA(x, y, pixel(src, x, y, maxIteration, g))
		}
	}
	return img
}

// Downscale shrinks img by factor in both directions.
func Downscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	factor = max(factor, 1)
	dst := image.NewRGBA(image.Rect(0, 0, max(b.Dx()/factor, 1), max(b.Dy()/factor, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG saves img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
