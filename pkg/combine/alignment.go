package combine

import(
	"fmt"
	"image"

	"golang.org/x/image/draw"      // replace by "image/draw" at some point
	"golang.org/x/image/math/f64"  // replace by "image/math/f64" at some point

	"github.com/SaOgaz/drizzlepac/pkg/emath"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

// An AlignmentTransform maps a pixel location in a layer to the pixel
// location on the reference grid (the first layer's pixels) that sees the
// same point in the sky. Working these out is somebody else's problem;
// they arrive via the config.
type AlignmentTransform struct {
	Name            string

	TranslateByX    float64
	TranslateByY    float64
	RotationCenterX float64
	RotationCenterY float64
	RotateByDeg     float64
	ScaleBy         float64  // about the rotation center; 0 means 1
}

func (xform AlignmentTransform)String() string {
	str := fmt.Sprintf("Align[%s (%6.2f,%6.2f)", xform.Name, xform.TranslateByX, xform.TranslateByY)
	if xform.RotateByDeg != 0.0 {
		str += fmt.Sprintf(", %5.2fdeg", xform.RotateByDeg)
	}
	if xform.ScaleBy != 0.0 && xform.ScaleBy != 1.0 {
		str += fmt.Sprintf(", x%.4f", xform.ScaleBy)
	}
	return str + "]"
}

func (at AlignmentTransform)ToMatrix() emath.Aff3 {
	// Step 1: translate
	m := emath.Identity().Translate(at.TranslateByX, at.TranslateByY)

	// Step 2: scale and rotate, about the center
	if at.ScaleBy != 0 && at.ScaleBy != 1 {
		cx, cy := at.RotationCenterX, at.RotationCenterY
		mS := emath.Identity().Translate(cx, cy).Scale(at.ScaleBy, at.ScaleBy).Translate(-1*cx, -1*cy)
		m = mS.Mult(m)
	}
	if at.RotateByDeg != 0 {
		mR := emath.RotateAbout(at.RotateByDeg, at.RotationCenterX, at.RotationCenterY)
		m = mR.Mult(m)
	}

	return m
}

// An OutputGrid places the reference grid onto the (maybe finer) output
// grid: reference point (MinX,MinY) is the outer corner of output pixel
// (0,0).
type OutputGrid struct {
	MinX, MinY float64
	Scale      float64
	Area       image.Rectangle
}

func (og OutputGrid)ToMatrix() emath.Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return emath.Identity().Translate(-0.5, -0.5).Scale(og.Scale, og.Scale).Translate(-1*og.MinX, -1*og.MinY)
}

// LayerToOutput maps layer pixels all the way onto the output grid.
func (og OutputGrid)LayerToOutput(at AlignmentTransform) emath.Aff3 {
	return og.ToMatrix().Mult(at.ToMatrix())
}

// Pixmap builds the dense mapping drizzle and blot need, for a layer of
// the given size.
func (og OutputGrid)Pixmap(at AlignmentTransform, bounds image.Rectangle) *pixmap.Map {
	return pixmap.NewFromAffine(bounds.Dy(), bounds.Dx(), og.LayerToOutput(at))
}

// XFormImage resamples a layer straight onto the output grid, with no
// flux bookkeeping at all. It is only used for eyeballing alignments.
func (og OutputGrid)XFormImage(at AlignmentTransform, src image.Image) image.Image {
	dst := image.NewRGBA64(og.Area)
	// draw puts pixel centers on the half-integers
	m := emath.Identity().Translate(0.5, 0.5).Mult(og.LayerToOutput(at)).Translate(-0.5, -0.5)
	draw.CatmullRom.Transform(dst, f64.Aff3(m), src, src.Bounds(), draw.Src, nil)
	return dst
}
