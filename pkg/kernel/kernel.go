// Package kernel is the catalogue of resampling kernels: the footprint
// shapes and weight laws that decide how one input pixel's flux spreads
// across the output cells it lands on.
//
// All lengths are in output pixels. The pixfrac passed to Radius and Weight
// is the scale-corrected footprint size, i.e. the user's pixfrac multiplied
// by the linear size of an input pixel on the output grid.
package kernel

import(
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnknownKernel = errors.New("unknown kernel")

// Weights at or below this are treated as zero, so sin(pi) residue never
// counts as a contribution.
const MinWeight = 1e-12

// A Kernel is an immutable entry in the catalogue.
type Kernel struct {
	Name      string

	// Radius returns the half-extent of the footprint, along each axis.
	Radius    func(pixfrac float64) float64

	// Weight returns the weight of the output cell whose centre is offset
	// (dx,dy) from the footprint centre.
	Weight    func(dx, dy, pixfrac float64) float64

	// ExactArea kernels are deposited by exact polygon overlap between the
	// mapped pixel footprint and each output cell; Weight is only the
	// undistorted fallback.
	ExactArea bool

	// Normalize kernels have their weights divided by the discrete sum over
	// the full support, so each input pixel deposits exactly its weight.
	Normalize bool
}

func (k Kernel)String() string { return k.Name }

var catalog = map[string]Kernel{
	"point": {
		Name:   "point",
		Radius: func(float64) float64 { return 0.5 },
		Weight: pointWeight,
	},
	"square": {
		Name:      "square",
		Radius:    func(pf float64) float64 { return pf / 2.0 },
		Weight:    boxWeight,
		ExactArea: true,
	},
	"turbo": {
		Name:   "turbo",
		Radius: func(pf float64) float64 { return pf / 2.0 },
		Weight: boxWeight,
	},
	"gaussian": {
		Name:      "gaussian",
		Radius:    func(pf float64) float64 { return gaussianTruncation * gaussianSigma(pf) },
		Weight:    gaussianWeight,
		Normalize: true,
	},
	"lanczos3": {
		Name:      "lanczos3",
		Radius:    func(pf float64) float64 { return 3.0 * pf },
		Weight:    lanczosWeight(3),
		Normalize: true,
	},
	"lanczos5": {
		Name:      "lanczos5",
		Radius:    func(pf float64) float64 { return 5.0 * pf },
		Weight:    lanczosWeight(5),
		Normalize: true,
	},
	"tophat": {
		Name:      "tophat",
		Radius:    func(pf float64) float64 { return pf / 2.0 },
		Weight:    tophatWeight,
		Normalize: true,
	},
}

// Lookup returns the named kernel.
func Lookup(name string) (Kernel, error) {
	if k, exists := catalog[name]; exists {
		return k, nil
	}
	return Kernel{}, fmt.Errorf("%w '%s', wanted one of %v", ErrUnknownKernel, name, Names())
}

// Names lists the catalogue, sorted.
func Names() []string {
	ret := []string{}
	for name := range catalog {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// The cell nearest the footprint centre, with ties going up so that exactly
// one cell is hit.
func pointWeight(dx, dy, _ float64) float64 {
	if dx > -0.5 && dx <= 0.5 && dy > -0.5 && dy <= 0.5 {
		return 1.0
	}
	return 0.0
}

// overlap1D is the length of [-h,h] intersected with the unit cell centred at d.
func overlap1D(d, h float64) float64 {
	lo := math.Max(-h, d-0.5)
	hi := math.Min(h, d+0.5)
	if hi <= lo {
		return 0.0
	}
	return hi - lo
}

// boxWeight is the fraction of an axis-aligned square of side pf that falls
// in the cell; it integrates to 1 over all cells.
func boxWeight(dx, dy, pf float64) float64 {
	h := pf / 2.0
	return overlap1D(dx, h) * overlap1D(dy, h) / (pf * pf)
}

const gaussianTruncation = 3.0

// pixfrac is the FWHM
func gaussianSigma(pf float64) float64 { return pf / 2.3548 }

func gaussianWeight(dx, dy, pf float64) float64 {
	sigma := gaussianSigma(pf)
	r2 := dx*dx + dy*dy
	if r2 > gaussianTruncation*gaussianTruncation*sigma*sigma {
		return 0.0
	}
	return math.Exp(-r2 / (2.0 * sigma * sigma))
}

func tophatWeight(dx, dy, pf float64) float64 {
	r := pf / 2.0
	if dx*dx + dy*dy <= r*r {
		return 1.0
	}
	return 0.0
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1.0
	} else if x == math.Trunc(x) {
		return 0.0
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Lanczos returns the 1-D windowed sinc of order a at x.
func Lanczos(a int, x float64) float64 {
	fa := float64(a)
	if x <= -fa || x >= fa {
		return 0.0
	}
	return sinc(x) * sinc(x/fa)
}

// lanczosWeight clips the negative lobes; the weight accumulator may never go negative.
func lanczosWeight(a int) func(dx, dy, pf float64) float64 {
	return func(dx, dy, pf float64) float64 {
		w := Lanczos(a, dx/pf) * Lanczos(a, dy/pf)
		if w < MinWeight {
			return 0.0
		}
		return w
	}
}
