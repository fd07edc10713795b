package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"gonum.org/v1/gonum/floats"
)

// A FloatGrid is a row-major grid of floats, with some operations. It
// holds science, weight and resampled planes. Element (x,y) is column
// x, row y.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps `vals` (row-major, `w` columns) without copying.
func NewFloatGridFromValues(w, h int, vals []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 {
		return FloatGrid{}, fmt.Errorf("grid dimensions %dx%d not positive", w, h)
	} else if len(vals) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d needs %d values, got %d", w, h, w*h, len(vals))
	}
	return FloatGrid{stride: w, values: vals}, nil
}

// NewFilledFloatGrid is a grid with every value set to v.
func NewFilledFloatGrid(w, h int, v float64) FloatGrid {
	g := NewFloatGrid(w, h)
	g.Fill(v)
	return g
}

func (g1 *FloatGrid)NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid)Set(x, y int, v float64) { fg.values[fg.stride*y + x] = v }
func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Add(x, y int, v float64) { fg.values[fg.stride*y + x] += v }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Len() int                { return len(fg.values) }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}

// Values exposes the backing slice, row-major. Callers must not resize it.
func (fg *FloatGrid)Values() []float64 { return fg.values }

func (fg *FloatGrid)Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}}
}

func (fg *FloatGrid)In(x, y int) bool {
	return x >= 0 && y >= 0 && x < fg.Dx() && y < fg.Dy()
}

func (g1 *FloatGrid)SameSize(g2 FloatGrid) bool {
	return g1.Dx() == g2.Dx() && g1.Dy() == g2.Dy()
}

func (fg *FloatGrid)Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Sum adds up every value; NaNs propagate.
func (fg *FloatGrid)Sum() float64 { return floats.Sum(fg.values) }

// AddGrid accumulates g2 into g1, elementwise. Sizes must match.
func (g1 *FloatGrid)AddGrid(g2 FloatGrid) {
	floats.Add(g1.values, g2.values)
}

// Scale multiplies every value by f.
func (fg *FloatGrid)Scale(f float64) { floats.Scale(f, fg.values) }

func (fg *FloatGrid)Stats() string {
	min := math.MaxFloat64
	max := -1.0  * min

	for i:=0 ; i<len(fg.values) ; i++ {
		if math.IsNaN(fg.values[i]) { continue }
		if fg.values[i] > max { max = fg.values[i] }
		if fg.values[i] < min { min = fg.values[i] }
	}
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImage renders a simple grayscale, based on the range of values in the
// grid, and gamma scaling the gray to look normal for human vision. NaNs
// come out black.
func (fg *FloatGrid)ToImage() *image.RGBA64 {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for i:=0; i<len(fg.values); i++ {
		if math.IsNaN(fg.values[i]) { continue }
		if fg.values[i] > max { max = fg.values[i] }
		if fg.values[i] < min { min = fg.values[i] }
	}
	span := max - min
	if span <= 0 { span = 1 }

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{fg.Dx(), fg.Dy()}})
	for x:=0; x<fg.Dx(); x++ {
		for y:=0; y<fg.Dy(); y++ {
			lum := fg.Get(x,y)
			gray := 0.0
			if !math.IsNaN(lum) {
				gray = GammaExpand_F64 ((lum - min) / span)
			}
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}
	return img
}

// ToImg saves the grid as a grayscale PNG, with a title written in the top left corner.
func (fg *FloatGrid)ToImg(title, filename string) error {
	dc := gg.NewContextForImage(fg.ToImage())
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
