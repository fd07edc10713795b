package drizzle

import(
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/SaOgaz/drizzlepac/pkg/kernel"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

var(
	ErrBadPixfrac    = errors.New("pixfrac must be in (0,1]")
	ErrFinalized     = errors.New("canvas already finalized")
	ErrShapeMismatch = pixmap.ErrShapeMismatch
)

// Params control how each exposure is spread onto the canvas.
type Params struct {
	Kernel      string
	Pixfrac     float64  // footprint size, as a fraction of an input pixel
	FillValue   float64  // for output pixels nobody covered
	WeightScale float64  // multiplies deposited flux
	BadValue    float64  // science values equal to this are skipped
	Workers     int      // <= 0 means one per CPU
}

func DefaultParams() Params {
	return Params{
		Kernel:      "square",
		Pixfrac:     1.0,
		FillValue:   0.0,
		WeightScale: 1.0,
		BadValue:    math.NaN(),
	}
}

func (p Params)String() string {
	return fmt.Sprintf("{kernel=%s pixfrac=%.3f wtscl=%.4g fill=%g}", p.Kernel, p.Pixfrac, p.WeightScale, p.FillValue)
}

// check validates the params and resolves the kernel.
func (p Params)check() (kernel.Kernel, error) {
	k, err := kernel.Lookup(p.Kernel)
	if err != nil {
		return kernel.Kernel{}, err
	}
	if !(p.Pixfrac > 0 && p.Pixfrac <= 1) {
		return kernel.Kernel{}, fmt.Errorf("pixfrac %v: %w", p.Pixfrac, ErrBadPixfrac)
	}
	if math.IsNaN(p.WeightScale) || math.IsInf(p.WeightScale, 0) {
		return kernel.Kernel{}, fmt.Errorf("weight scale %v is not finite", p.WeightScale)
	}
	return k, nil
}

func (p Params)workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

func (p Params)isBad(v float64) bool {
	return math.IsNaN(v) || v == p.BadValue
}
