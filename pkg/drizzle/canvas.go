// Package drizzle spreads the pixels of many exposures onto one shared
// output grid, accumulating weighted flux, weight and provenance, and
// turns the result into a single combined image.
package drizzle

import(
	"fmt"
	"sync"

	"github.com/SaOgaz/drizzlepac/pkg/contextmap"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

// A Canvas is the output grid that exposures get drizzled onto. It is safe
// to call Accumulate from several goroutines; each call's updates land
// atomically with respect to the others.
type Canvas struct {
	Science emath.FloatGrid  // sum of value*weight*kernel*weightscale
	Weight  emath.FloatGrid  // sum of weight*kernel
	Context *contextmap.Map

	mu        sync.Mutex
	finalized bool
}

// Stats are the per-pixel outcomes of one Accumulate call.
type Stats struct {
	Skipped     int  // weight <= 0, NaN, bad value, or unmapped
	OutOfBounds int  // footprint entirely off the canvas
	Deposited   int
}

func (s Stats)String() string {
	return fmt.Sprintf("{deposited=%d skipped=%d outofbounds=%d}", s.Deposited, s.Skipped, s.OutOfBounds)
}

func (s *Stats)add(s2 Stats) {
	s.Skipped += s2.Skipped
	s.OutOfBounds += s2.OutOfBounds
	s.Deposited += s2.Deposited
}

func NewCanvas(w, h int) (*Canvas, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("canvas %dx%d: %w", w, h, ErrShapeMismatch)
	}
	return &Canvas{
		Science: emath.NewFloatGrid(w, h),
		Weight:  emath.NewFloatGrid(w, h),
		Context: contextmap.New(w, h),
	}, nil
}

func (c *Canvas)Dx() int { return c.Science.Dx() }
func (c *Canvas)Dy() int { return c.Science.Dy() }

func (c *Canvas)String() string {
	return fmt.Sprintf("canvas[%dx%d, %d context planes]", c.Dx(), c.Dy(), c.Context.NumPlanes())
}

// CheckShape errors unless the canvas is w x h.
func (c *Canvas)CheckShape(w, h int) error {
	if c.Dx() != w || c.Dy() != h {
		return fmt.Errorf("canvas is %dx%d, wanted %dx%d: %w", c.Dx(), c.Dy(), w, h, ErrShapeMismatch)
	}
	return nil
}

func (c *Canvas)IsFinalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

// Finalize divides the accumulated science by the accumulated weight,
// putting `fill` wherever no weight landed. It can only happen once, and
// no more exposures may be accumulated afterwards. The accumulators and
// the context map are left in place, for inspection.
func (c *Canvas)Finalize(fill float64) (emath.FloatGrid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return emath.FloatGrid{}, ErrFinalized
	}
	c.finalized = true

	out := c.Science.NewFromThis()
	sci, wht, vals := c.Science.Values(), c.Weight.Values(), out.Values()
	for i := range vals {
		if wht[i] > 0 {
			vals[i] = sci[i] / wht[i]
		} else {
			vals[i] = fill
		}
	}
	return out, nil
}
