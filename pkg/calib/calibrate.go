package calib

import(
	"fmt"
	"math"

	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

// WeightType picks how the per-pixel weight map is built.
type WeightType string

const(
	WeightExp     WeightType = "exp"      // exposure time
	WeightErr     WeightType = "err"      // inverse variance, including the source's own noise
	WeightIVM     WeightType = "ivm"      // inverse variance of the background only
	WeightUniform WeightType = "uniform"
)

func WeightTypes() []WeightType {
	return []WeightType{WeightExp, WeightErr, WeightIVM, WeightUniform}
}

// A Request is what the header (and the user) say about one raw exposure.
type Request struct {
	Detector    string
	GainSetting int      // nominal setting from the header, looked up in the table
	Gain        float64  // user supplied; 0 means use the table
	ReadNoise   float64  // user supplied; 0 means use the table
	DarkTime    float64  // seconds; 0 means same as the exposure time
}

// Scalars are the resolved constants for one exposure, in electrons.
type Scalars struct {
	Gain        float64
	ReadNoise   float64
	DarkCurrent float64
}

func (s Scalars)String() string {
	return fmt.Sprintf("{gain=%.3f rn=%.3f dark=%.4f}", s.Gain, s.ReadNoise, s.DarkCurrent)
}

// Resolve works out the gain, read noise and dark current for an exposure.
// Users can override the table, but must give both gain and read noise,
// since the read noise depends on the gain.
func (dt DetectorTable)Resolve(req Request, exptime float64) (Scalars, error) {
	userGain, userRN := req.Gain != 0, req.ReadNoise != 0
	sc := Scalars{}
	darkRate := 0.0

	switch {
	case userGain && userRN:
		if !(req.Gain > 0) || math.IsInf(req.Gain, 0) {
			return sc, fmt.Errorf("user gain %v: %w", req.Gain, ErrInvalidGain)
		}
		if !(req.ReadNoise > 0) {
			return sc, fmt.Errorf("user read noise %v is not positive", req.ReadNoise)
		}
		sc.Gain, sc.ReadNoise = req.Gain, req.ReadNoise
		if det, exists := dt.Detectors[req.Detector]; exists {
			darkRate = det.DarkRate
		}

	case userGain:
		return sc, fmt.Errorf("gain given without read noise: %w", ErrMissingScalar)

	case userRN:
		return sc, fmt.Errorf("read noise given without gain: %w", ErrMissingScalar)

	default:
		gs, rate, err := dt.Lookup(req.Detector, req.GainSetting)
		if err != nil {
			return sc, err
		}
		sc.Gain, sc.ReadNoise, darkRate = gs.Gain, gs.ReadNoise, rate
	}

	darkTime := req.DarkTime
	if darkTime <= 0 {
		darkTime = exptime
	}
	sc.DarkCurrent = darkTime * darkRate

	return sc, nil
}

// Calibrate converts the exposure's science from counts to electrons, and
// builds its weight map. Any weight already present is treated as a mask:
// pixels with weight <= 0 stay at zero. On error the exposure is untouched.
func Calibrate(e *drizzle.Exposure, sc Scalars, wt WeightType) error {
	if !(sc.Gain > 0) || math.IsInf(sc.Gain, 0) {
		return fmt.Errorf("calibrate '%s': gain %v: %w", e.Name, sc.Gain, ErrInvalidGain)
	}
	if e.Weight.Len() != 0 && !e.Weight.SameSize(e.Science) {
		return fmt.Errorf("calibrate '%s': weight mask is %dx%d, science is %dx%d: %w", e.Name,
			e.Weight.Dx(), e.Weight.Dy(), e.Science.Dx(), e.Science.Dy(), drizzle.ErrShapeMismatch)
	}
	t := e.ExposureTime
	switch wt {
	case WeightUniform:
	case WeightExp, WeightErr, WeightIVM:
		if !(t > 0) {
			return fmt.Errorf("calibrate '%s': %s weights need an exposure time, got %v: %w", e.Name, wt, t, ErrMissingScalar)
		}
	default:
		return fmt.Errorf("calibrate '%s': unknown weight type '%s', wanted one of %v", e.Name, wt, WeightTypes())
	}

	e.Science.Scale(sc.Gain)
	e.Gain, e.ReadNoise = sc.Gain, sc.ReadNoise

	// Electrons actually collected by a pixel, for the noise model
	electrons := func(v float64) float64 {
		if e.Units != drizzle.UnitsCounts {
			v *= t
		}
		return math.Max(v, 0)
	}

	var weight func(v float64) float64
	switch wt {
	case WeightUniform:
		weight = func(float64) float64 { return 1.0 }
	case WeightExp:
		weight = func(float64) float64 { return t }
	case WeightErr:
		weight = func(v float64) float64 {
			return t * t / math.Max(electrons(v) + sc.DarkCurrent + sc.ReadNoise*sc.ReadNoise, 1.0)
		}
	case WeightIVM:
		sky := electrons(emath.Median(e.Science.Values()))
		if math.IsNaN(sky) { sky = 0 }
		ivm := t * t / math.Max(sky + sc.DarkCurrent + sc.ReadNoise*sc.ReadNoise, 1.0)
		weight = func(float64) float64 { return ivm }
	}

	mask := e.Weight
	out := e.Science.NewFromThis()
	for y:=0; y<out.Dy(); y++ {
		for x:=0; x<out.Dx(); x++ {
			v := e.Science.Get(x, y)
			if math.IsNaN(v) || (mask.Len() != 0 && !(mask.Get(x, y) > 0)) {
				continue
			}
			out.Set(x, y, weight(v))
		}
	}
	e.Weight = out

	return nil
}
