package drizzle

import(
	"fmt"
	"math"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

// Units says how an exposure's science values relate to time.
type Units string

const(
	UnitsRate   Units = "cps"    // already per second
	UnitsCounts Units = "counts" // integrated over ExposureTime
)

// An Exposure is one calibrated input image, as handed over by whatever
// loaded and calibrated it. Drizzle only ever reads it.
type Exposure struct {
	Name         string
	Science      emath.FloatGrid
	Weight       emath.FloatGrid  // inverse-variance like; <= 0 means "ignore this pixel"
	ExposureTime float64          // seconds
	Gain         float64
	ReadNoise    float64
	Units        Units
	Ordinal      int              // which context bit this exposure sets
}

func (e Exposure)String() string {
	return fmt.Sprintf("exposure[%s #%d, %dx%d, %.3fs %s]", e.Name, e.Ordinal, e.Science.Dx(), e.Science.Dy(), e.ExposureTime, e.Units)
}

func (e *Exposure)check() error {
	if e.Science.Len() == 0 {
		return fmt.Errorf("exposure '%s' has no pixels", e.Name)
	}
	if !e.Science.SameSize(e.Weight) {
		return fmt.Errorf("exposure '%s': weight is %dx%d, science is %dx%d: %w", e.Name,
			e.Weight.Dx(), e.Weight.Dy(), e.Science.Dx(), e.Science.Dy(), ErrShapeMismatch)
	}
	if e.Ordinal < 0 {
		return fmt.Errorf("exposure '%s': ordinal %d is negative", e.Name, e.Ordinal)
	}
	switch e.Units {
	case UnitsRate, "":
	case UnitsCounts:
		if !(e.ExposureTime > 0) || math.IsInf(e.ExposureTime, 0) {
			return fmt.Errorf("exposure '%s' is in counts, but has exposure time %v", e.Name, e.ExposureTime)
		}
	default:
		return fmt.Errorf("exposure '%s': unknown units '%s'", e.Name, e.Units)
	}
	return nil
}

// rate returns the science value at (x,y) as a rate.
func (e *Exposure)rate(x, y int) float64 {
	v := e.Science.Get(x, y)
	if e.Units == UnitsCounts {
		v /= e.ExposureTime
	}
	return v
}
