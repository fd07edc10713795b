package combine

// A few helper routines for golang's image libraries

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// GridFromImage takes the 16bit luminance of each pixel, as raw counts.
func GridFromImage(img image.Image) emath.FloatGrid {
	b := img.Bounds()
	fg := emath.NewFloatGrid(b.Dx(), b.Dy())
	for y:=0; y<b.Dy(); y++ {
		for x:=0; x<b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			fg.Set(x, y, float64(g.Y))
		}
	}
	return fg
}

// Thumbnail shrinks an image so its longest side is at most maxDim pixels.
// Images already small enough come back as they are.
func Thumbnail(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest { longest = b.Dy() }
	if longest <= maxDim || maxDim <= 0 {
		return img
	}

	w := b.Dx() * maxDim / longest
	h := b.Dy() * maxDim / longest
	if w < 1 { w = 1 }
	if h < 1 { h = 1 }

	dst := image.NewRGBA64(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
