package region

import (
	"image"

	"github.com/willbeason/deepzoom/pkg/geometry"
)

// Properties is everything needed to start a computation run: where to
// compute and how far to iterate. A run never changes its Properties;
// navigation produces new ones.
type Properties struct {
	Stage        Stage
	MaxIteration uint32
}

func NewProperties(stage Stage, maxIteration uint32) Properties {
	return Properties{Stage: stage, MaxIteration: maxIteration}
}

func (p Properties) Rectified(inner bool) Properties {
	p.Stage = p.Stage.Rectified(inner)
	return p
}

func (p Properties) ShiftedByMath(v geometry.XY) Properties {
	p.Stage = p.Stage.ShiftedByMath(v)
	return p
}

func (p Properties) ShiftedByPixels(v image.Point) Properties {
	p.Stage = p.Stage.ShiftedByPixels(v)
	return p
}

func (p Properties) ZoomedByPixels(origin image.Point, factor float64) Properties {
	p.Stage = p.Stage.ZoomedByPixels(origin, factor)
	return p
}

func (p Properties) WithMaxIteration(maxIteration uint32) Properties {
	p.MaxIteration = maxIteration
	return p
}

// PixelToMathOffset converts a pixel vector using the cell size of p.
func (p Properties) PixelToMathOffset(v image.Point) geometry.XY {
	return p.Stage.PixelToMathOffset(v)
}
