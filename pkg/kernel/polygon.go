package kernel

import "math"

// A Point is a position on the output grid.
type Point struct {
	X, Y float64
}

// A Quad is a mapped pixel footprint, corners in order around the edge.
type Quad [4]Point

// Area of the quad (always >= 0, whichever way the corners wind).
func (q Quad)Area() float64 {
	return math.Abs(shoelace(q[:]))
}

// Bounds returns the bounding box (minX, minY, maxX, maxY).
func (q Quad)Bounds() (float64, float64, float64, float64) {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := minX, minY
	for _, p := range q[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

func (q Quad)HasNaN() bool {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return true
		}
	}
	return false
}

// A Clipper computes exact overlaps between a quad and output cells. It
// keeps scratch buffers between calls, so is not safe for concurrent use;
// give each worker its own.
type Clipper struct {
	a, b []Point
}

// CellOverlap returns the exact area of the quad that falls in the unit
// cell centred on (cx,cy).
func (c *Clipper)CellOverlap(q Quad, cx, cy float64) float64 {
	poly := append(c.a[:0], q[:]...)
	spare := c.b
	poly, spare = clipEdge(poly, spare, func(p Point) float64 { return p.X - (cx - 0.5) })
	poly, spare = clipEdge(poly, spare, func(p Point) float64 { return (cx + 0.5) - p.X })
	poly, spare = clipEdge(poly, spare, func(p Point) float64 { return p.Y - (cy - 0.5) })
	poly, spare = clipEdge(poly, spare, func(p Point) float64 { return (cy + 0.5) - p.Y })
	c.a, c.b = poly, spare
	if len(poly) < 3 {
		return 0.0
	}
	return math.Abs(shoelace(poly))
}

// clipEdge is one Sutherland-Hodgman pass; `inside` is a signed distance,
// >= 0 on the kept side of the clip line. The two slices swap roles.
func clipEdge(in, out []Point, inside func(Point) float64) ([]Point, []Point) {
	out = out[:0]
	if len(in) == 0 {
		return out, in
	}
	prev := in[len(in)-1]
	dPrev := inside(prev)
	for _, cur := range in {
		dCur := inside(cur)
		if dCur >= 0 {
			if dPrev < 0 {
				out = append(out, intersect(prev, cur, dPrev, dCur))
			}
			out = append(out, cur)
		} else if dPrev >= 0 {
			out = append(out, intersect(prev, cur, dPrev, dCur))
		}
		prev, dPrev = cur, dCur
	}
	return out, in
}

func intersect(a, b Point, da, db float64) Point {
	t := da / (da - db)
	return Point{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)}
}

func shoelace(poly []Point) float64 {
	a := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return a / 2.0
}
