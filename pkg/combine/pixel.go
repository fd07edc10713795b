package combine

import(
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// A PixelReport is everything we know about one output pixel: what was
// accumulated there, and which layers put it there.
type PixelReport struct {
	OutputPos      image.Point
	Science        float64   // accumulated, before finalizing
	Weight         float64
	Combined       float64
	Contributors []string    // layer filenames, in ordinal order
}

func (p PixelReport)String() string {
	str := fmt.Sprintf("----- Pixel @(%d,%d)-----\n", p.OutputPos.X, p.OutputPos.Y)
	str += fmt.Sprintf("Science            : %14.8g\n", p.Science)
	str += fmt.Sprintf("Weight             : %14.8g\n", p.Weight)
	str += fmt.Sprintf("Combined           : %14.8g\n", p.Combined)
	str += fmt.Sprintf("Contributors (%d)   :-\n", len(p.Contributors))
	for _, name := range p.Contributors {
		str += fmt.Sprintf("-- %s\n", name)
	}
	return str
}

func (ci *CombinedImage)PixelReport(x, y int) PixelReport {
	p := PixelReport{OutputPos: image.Point{x, y}}
	if ci.Canvas == nil || !ci.Canvas.Science.In(x, y) {
		return p
	}

	p.Science = ci.Canvas.Science.Get(x, y)
	p.Weight = ci.Canvas.Weight.Get(x, y)
	if ci.Combined.In(x, y) {
		p.Combined = ci.Combined.Get(x, y)
	}
	for _, ordinal := range ci.Canvas.Context.Contributors(x, y) {
		name := fmt.Sprintf("#%d", ordinal)
		if ordinal < len(ci.Layers) {
			name = ci.Layers[ordinal].Filename()
		}
		p.Contributors = append(p.Contributors, name)
	}
	return p
}

// ContextImage colors each output pixel by how many layers landed on it:
// blue for one, shading through to red for the most anywhere. Pixels
// nothing landed on are black.
func (ci *CombinedImage)ContextImage() image.Image {
	ctx := ci.Canvas.Context
	img := image.NewRGBA(image.Rect(0, 0, ctx.Dx(), ctx.Dy()))
	max := ctx.MaxCount()

	for y:=0; y<ctx.Dy(); y++ {
		for x:=0; x<ctx.Dx(); x++ {
			n := ctx.Count(x, y)
			if n == 0 {
				img.Set(x, y, color.Black)
				continue
			}
			frac := 0.0
			if max > 1 {
				frac = float64(n-1) / float64(max-1)
			}
			img.Set(x, y, colorful.Hsv(240.0 * (1.0 - frac), 1.0, 1.0).Clamped())
		}
	}
	return img
}
