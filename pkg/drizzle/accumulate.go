package drizzle

import(
	"fmt"
	"math"
	"sync"

	"github.com/SaOgaz/drizzlepac/pkg/kernel"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

// Accumulate drizzles one exposure onto the canvas. The mapping gives, for
// each exposure pixel, its position on the canvas grid.
//
// Everything is validated before anything is touched: on error the canvas
// is unchanged. Individual pixels that can't contribute (no weight, bad
// value, unmapped, or landing off the canvas) are not errors, they are
// just counted in the returned Stats.
//
// The exposure is split into bands of rows, and a pool of workers
// drizzles each band onto its own partial canvas. The partials are then
// added into the canvas, in band order, while holding the canvas lock.
func (c *Canvas)Accumulate(e *Exposure, m *pixmap.Map, p Params) (Stats, error) {
	if e == nil {
		return Stats{}, fmt.Errorf("drizzle: nil exposure")
	}
	k, err := p.check()
	if err != nil {
		return Stats{}, fmt.Errorf("drizzle '%s': %w", e.Name, err)
	}
	if err := e.check(); err != nil {
		return Stats{}, err
	}
	if err := m.CheckShape(e.Science.Dy(), e.Science.Dx()); err != nil {
		return Stats{}, fmt.Errorf("drizzle '%s': %w", e.Name, err)
	}
	if c.IsFinalized() {
		return Stats{}, ErrFinalized
	}

	d := driz{w: c.Dx(), h: c.Dy(), e: e, m: m, p: p, k: k}
	partials := d.run(p.workers())

	stats := Stats{}
	for _, pt := range partials {
		stats.add(pt.stats)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return Stats{}, ErrFinalized
	}
	if stats.Deposited > 0 {
		if err := c.Context.Grow(e.Ordinal); err != nil {
			return Stats{}, err
		}
	}
	for _, pt := range partials {
		c.merge(pt, e.Ordinal)
	}

	return stats, nil
}

// merge adds a partial canvas into the real one; caller holds the lock.
func (c *Canvas)merge(pt *partial, ordinal int) {
	for y, row := range pt.sci {
		if row == nil { continue }
		for x := range row {
			if !pt.hit[y][x] { continue }
			c.Science.Add(x, y, row[x])
			c.Weight.Add(x, y, pt.wht[y][x])
			c.Context.SetBit(x, y, ordinal)
		}
	}
}

// A partial is one worker's private slice of the canvas. Output rows are
// only allocated once something lands in them.
type partial struct {
	w       int
	sci     [][]float64
	wht     [][]float64
	hit     [][]bool
	stats   Stats

	clip    kernel.Clipper
	scratch []float64
}

func newPartial(w, h int) *partial {
	return &partial{
		w:   w,
		sci: make([][]float64, h),
		wht: make([][]float64, h),
		hit: make([][]bool, h),
	}
}

func (pt *partial)add(x, y int, dsci, dwht float64) {
	if pt.sci[y] == nil {
		pt.sci[y] = make([]float64, pt.w)
		pt.wht[y] = make([]float64, pt.w)
		pt.hit[y] = make([]bool, pt.w)
	}
	pt.sci[y][x] += dsci
	pt.wht[y][x] += dwht
	pt.hit[y][x] = true
}

// driz holds everything one Accumulate call needs, read-only once built.
type driz struct {
	w, h   int  // canvas
	e      *Exposure
	m      *pixmap.Map
	p      Params
	k      kernel.Kernel

	rowLo  int  // exposure rows outside [rowLo,rowHi) can't reach the canvas
	rowHi  int
}

type bandJob struct {
	Index      int
	Row0, Row1 int
}

func (d *driz)run(nWorkers int) []*partial {
	rows := d.e.Science.Dy()

	d.rowLo, d.rowHi = 0, rows
	if scale := d.m.MeanScale(); !math.IsNaN(scale) && !math.IsInf(scale, 0) {
		margin := 2.0 * d.k.Radius(d.p.Pixfrac * scale) + 2.0
		d.rowLo, d.rowHi = d.m.OverlapRows(d.w, d.h, margin)
	}

	nBands := nWorkers
	if nBands > rows { nBands = rows }
	if nWorkers > nBands { nWorkers = nBands }

	var wg sync.WaitGroup
	jobsChan := make(chan bandJob, nBands)
	partials := make([]*partial, nBands)

	// Kick off worker pool; each band's result goes into its own slot
	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				partials[job.Index] = d.drizzleBand(job)
			}
		}()
	}

	for i:=0; i<nBands; i++ {
		jobsChan<- bandJob{Index: i, Row0: rows*i/nBands, Row1: rows*(i+1)/nBands}
	}
	close(jobsChan)
	wg.Wait()

	return partials
}

func (d *driz)drizzleBand(job bandJob) *partial {
	pt := newPartial(d.w, d.h)
	for row:=job.Row0; row<job.Row1; row++ {
		for col:=0; col<d.e.Science.Dx(); col++ {
			d.drizzlePixel(pt, col, row)
		}
	}
	return pt
}

// A footprint is where one exposure pixel lands on the canvas.
type footprint struct {
	cx, cy float64      // mapped pixel centre
	quad   kernel.Quad  // mapped corners, shrunk by pixfrac
	area   float64
	pf     float64      // pixfrac, scaled to canvas pixels
}

func (d *driz)footprintOf(col, row int) (footprint, bool) {
	fp := footprint{}
	fp.cx, fp.cy = d.m.At(col, row)
	if math.IsNaN(fp.cx) || math.IsNaN(fp.cy) {
		return fp, false
	}
	for i, corner := range d.m.Footprint(col, row, d.p.Pixfrac) {
		fp.quad[i] = kernel.Point{X: corner[0], Y: corner[1]}
	}
	if fp.quad.HasNaN() {
		return fp, false
	}
	fp.area = fp.quad.Area()
	fp.pf = math.Sqrt(fp.area)
	if fp.pf == 0 {
		fp.pf = d.p.Pixfrac
	}
	return fp, true
}

func (d *driz)drizzlePixel(pt *partial, col, row int) {
	w := d.e.Weight.Get(col, row)
	if !(w > 0) || math.IsInf(w, 1) || d.p.isBad(d.e.Science.Get(col, row)) {
		pt.stats.Skipped++
		return
	}
	if row < d.rowLo || row >= d.rowHi {
		pt.stats.OutOfBounds++
		return
	}
	fp, ok := d.footprintOf(col, row)
	if !ok {
		pt.stats.Skipped++
		return
	}

	flux := d.e.rate(col, row) * w * d.p.WeightScale

	n := 0
	switch {
	case d.k.ExactArea && fp.area > 0: n = d.depositExact(pt, fp, flux, w)
	case d.k.ExactArea:                n = d.depositNearest(pt, fp, flux, w)
	case d.k.Normalize:                n = d.depositNormalized(pt, fp, flux, w)
	default:                           n = d.depositDirect(pt, fp, flux, w)
	}

	if n == 0 {
		pt.stats.OutOfBounds++
	} else {
		pt.stats.Deposited++
	}
}

// deposit adds one cell's share, if it is on the canvas and non-negligible.
// Returns 1 if anything was added.
func (d *driz)deposit(pt *partial, i, j int, kw, flux, w float64) int {
	if !(kw > kernel.MinWeight) || i < 0 || j < 0 || i >= d.w || j >= d.h {
		return 0
	}
	dw := w * kw
	if !(dw > 0) {
		return 0
	}
	pt.add(i, j, flux*kw, dw)
	return 1
}

// cellRange is the range of cells within r of (cx,cy), clipped to the canvas.
func (d *driz)cellRange(cx, cy, r float64) (int, int, int, int) {
	return d.clipRange(math.Floor(cx-r+0.5), math.Floor(cy-r+0.5), math.Ceil(cx+r-0.5), math.Ceil(cy+r-0.5))
}

func (d *driz)clipRange(fi0, fj0, fi1, fj1 float64) (int, int, int, int) {
	fi0, fj0 = math.Max(fi0, 0), math.Max(fj0, 0)
	fi1, fj1 = math.Min(fi1, float64(d.w-1)), math.Min(fj1, float64(d.h-1))
	if fi0 > fi1 || fj0 > fj1 {
		return 0, 0, -1, -1
	}
	return int(fi0), int(fj0), int(fi1), int(fj1)
}

// depositExact shares the flux by the exact overlap area of the mapped
// footprint with each cell.
func (d *driz)depositExact(pt *partial, fp footprint, flux, w float64) int {
	minX, minY, maxX, maxY := fp.quad.Bounds()
	i0, j0, i1, j1 := d.clipRange(math.Floor(minX+0.5), math.Floor(minY+0.5), math.Ceil(maxX-0.5), math.Ceil(maxY-0.5))
	n := 0
	for j:=j0; j<=j1; j++ {
		for i:=i0; i<=i1; i++ {
			kw := pt.clip.CellOverlap(fp.quad, float64(i), float64(j)) / fp.area
			n += d.deposit(pt, i, j, kw, flux, w)
		}
	}
	return n
}

func (d *driz)depositDirect(pt *partial, fp footprint, flux, w float64) int {
	i0, j0, i1, j1 := d.cellRange(fp.cx, fp.cy, d.k.Radius(fp.pf))
	n := 0
	for j:=j0; j<=j1; j++ {
		for i:=i0; i<=i1; i++ {
			kw := d.k.Weight(float64(i)-fp.cx, float64(j)-fp.cy, fp.pf)
			n += d.deposit(pt, i, j, kw, flux, w)
		}
	}
	return n
}

// depositNormalized divides each weight by the sum over the kernel's whole
// support, including the parts that hang off the canvas. If the support
// holds no weight at all (a footprint smaller than a cell, falling between
// cell centres), all the flux goes to the nearest cell.
func (d *driz)depositNormalized(pt *partial, fp footprint, flux, w float64) int {
	r := d.k.Radius(fp.pf)
	if _, _, ci1, _ := d.cellRange(fp.cx, fp.cy, math.Max(r, 0.5)); ci1 < 0 {
		return 0
	}
	i0, i1 := int(math.Floor(fp.cx-r+0.5)), int(math.Ceil(fp.cx+r-0.5))
	j0, j1 := int(math.Floor(fp.cy-r+0.5)), int(math.Ceil(fp.cy+r-0.5))

	pt.scratch = pt.scratch[:0]
	sum := 0.0
	for j:=j0; j<=j1; j++ {
		for i:=i0; i<=i1; i++ {
			kw := d.k.Weight(float64(i)-fp.cx, float64(j)-fp.cy, fp.pf)
			if !(kw > kernel.MinWeight) { kw = 0 }
			pt.scratch = append(pt.scratch, kw)
			sum += kw
		}
	}
	if sum <= 0 {
		return d.depositNearest(pt, fp, flux, w)
	}

	n, idx := 0, 0
	for j:=j0; j<=j1; j++ {
		for i:=i0; i<=i1; i++ {
			if kw := pt.scratch[idx]; kw > 0 {
				n += d.deposit(pt, i, j, kw/sum, flux, w)
			}
			idx++
		}
	}
	return n
}

func (d *driz)depositNearest(pt *partial, fp footprint, flux, w float64) int {
	return d.deposit(pt, int(math.Floor(fp.cx+0.5)), int(math.Floor(fp.cy+0.5)), 1.0, flux, w)
}
