package pixmap

import(
	"errors"
	"fmt"
	"math"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

var ErrShapeMismatch = errors.New("shape mismatch")

// A Map is a dense pixel-to-pixel mapping, as supplied by whatever
// computed the geometry (astrometry, distortion models, alignment). For
// each pixel centre (col,row) of the source grid it holds the fractional
// (x,y) position of that point on the destination grid. We do no geometry
// of our own; we only interpolate between the supplied samples.
type Map struct {
	rows, cols int
	xy         []float64 // [row][col][2], x first
}

// New wraps `xy`, which must hold rows*cols*2 values.
func New(rows, cols int, xy []float64) (*Map, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("pixmap %dx%d: %w", cols, rows, ErrShapeMismatch)
	} else if len(xy) != rows*cols*2 {
		return nil, fmt.Errorf("pixmap %dx%d needs %d values, got %d: %w", cols, rows, rows*cols*2, len(xy), ErrShapeMismatch)
	}
	return &Map{rows: rows, cols: cols, xy: xy}, nil
}

// NewFromFunc samples f at every pixel centre.
func NewFromFunc(rows, cols int, f func(x, y float64) (float64, float64)) *Map {
	m := &Map{rows: rows, cols: cols, xy: make([]float64, rows*cols*2)}
	for row:=0; row<rows; row++ {
		for col:=0; col<cols; col++ {
			i := 2 * (row*cols + col)
			m.xy[i], m.xy[i+1] = f(float64(col), float64(row))
		}
	}
	return m
}

func NewIdentity(rows, cols int) *Map {
	return NewFromFunc(rows, cols, func(x, y float64) (float64, float64) { return x, y })
}

func NewFromAffine(rows, cols int, m emath.Aff3) *Map {
	return NewFromFunc(rows, cols, m.Apply)
}

func (m *Map)Rows() int { return m.rows }
func (m *Map)Cols() int { return m.cols }

func (m *Map)String() string { return fmt.Sprintf("pixmap[%dx%d]", m.cols, m.rows) }

// CheckShape returns ErrShapeMismatch unless the map is rows x cols.
func (m *Map)CheckShape(rows, cols int) error {
	if m == nil {
		return fmt.Errorf("nil pixmap: %w", ErrShapeMismatch)
	}
	if m.rows != rows || m.cols != cols {
		return fmt.Errorf("pixmap is %dx%d, image is %dx%d: %w", m.cols, m.rows, cols, rows, ErrShapeMismatch)
	}
	return nil
}

// At returns the destination position of the pixel centre (col,row).
func (m *Map)At(col, row int) (float64, float64) {
	i := 2 * (row*m.cols + col)
	return m.xy[i], m.xy[i+1]
}

// MapPoint maps a fractional source position, bilinearly interpolating
// between the surrounding pixel centres. Beyond the outermost centres it
// extrapolates linearly from the edge pair, which is how pixel corners on
// the image border get mapped. A grid only one pixel wide along an axis
// is assumed to have unit scale along it.
func (m *Map)MapPoint(x, y float64) (float64, float64) {
	i, fx := interpCell(x, m.cols)
	j, fy := interpCell(y, m.rows)

	i1, j1 := i+1, j+1
	if m.cols == 1 { i1 = i }
	if m.rows == 1 { j1 = j }

	x00, y00 := m.At(i,  j)
	x10, y10 := m.At(i1, j)
	x01, y01 := m.At(i,  j1)
	x11, y11 := m.At(i1, j1)

	ox := (1-fx)*(1-fy)*x00 + fx*(1-fy)*x10 + (1-fx)*fy*x01 + fx*fy*x11
	oy := (1-fx)*(1-fy)*y00 + fx*(1-fy)*y10 + (1-fx)*fy*y01 + fx*fy*y11

	if m.cols == 1 { ox += x - float64(i) }
	if m.rows == 1 { oy += y - float64(j) }

	return ox, oy
}

// interpCell picks the left-hand sample index (clamped so that it and its
// neighbour exist) and the fractional offset from it, which may be <0 or
// >1 when extrapolating.
func interpCell(v float64, n int) (int, float64) {
	if n == 1 {
		return 0, 0
	}
	i := int(math.Floor(v))
	if i < 0 { i = 0 }
	if i > n-2 { i = n-2 }
	return i, v - float64(i)
}

// Footprint maps the four corners of the source pixel (col,row), shrunk by
// `frac` about its centre, in winding order.
func (m *Map)Footprint(col, row int, frac float64) [4][2]float64 {
	h := frac / 2.0
	x, y := float64(col), float64(row)
	ret := [4][2]float64{}
	for k, c := range [4][2]float64{{-h, -h}, {h, -h}, {h, h}, {-h, h}} {
		ret[k][0], ret[k][1] = m.MapPoint(x+c[0], y+c[1])
	}
	return ret
}

// MeanScale is the average linear size of a source pixel on the
// destination grid, from the mapped outline of the whole source image.
func (m *Map)MeanScale() float64 {
	w, h := float64(m.cols), float64(m.rows)
	corners := [4][2]float64{{-0.5, -0.5}, {w-0.5, -0.5}, {w-0.5, h-0.5}, {-0.5, h-0.5}}
	area := 0.0
	for k := range corners {
		x0, y0 := m.MapPoint(corners[k][0], corners[k][1])
		x1, y1 := m.MapPoint(corners[(k+1)%4][0], corners[(k+1)%4][1])
		area += x0*y1 - x1*y0
	}
	return math.Sqrt(math.Abs(area / 2.0) / (w * h))
}

// OverlapRows returns the half-open range of source rows [lo,hi) that have
// at least one mapped pixel centre within the destination grid
// (width x height) grown by `margin` pixels on every side. Rows outside
// it can be skipped wholesale. An empty range comes back as lo == hi.
func (m *Map)OverlapRows(width, height int, margin float64) (int, int) {
	lo, hi := m.rows, 0
	minX, maxX := -0.5-margin, float64(width)-0.5+margin
	minY, maxY := -0.5-margin, float64(height)-0.5+margin

	for row:=0; row<m.rows; row++ {
		for col:=0; col<m.cols; col++ {
			x, y := m.At(col, row)
			if x >= minX && x <= maxX && y >= minY && y <= maxY {
				if row < lo   { lo = row }
				if row+1 > hi { hi = row+1 }
				break
			}
		}
	}
	if hi <= lo {
		return 0, 0
	}
	return lo, hi
}
