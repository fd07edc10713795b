package calib

import(
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

func TestDefaultTableLookup(t *testing.T) {
	dt := DefaultDetectorTable()
	require.Equal(t, []string{"PC", "WF2", "WF3", "WF4"}, dt.DetectorNames())

	gs, rate, err := dt.Lookup("WF3", 15)
	require.NoError(t, err)
	require.Equal(t, GainSetting{13.95, 6.99}, gs)
	require.Equal(t, 0.005, rate)

	_, _, err = dt.Lookup("WF3", 8)
	require.True(t, errors.Is(err, ErrInvalidGain))
	_, _, err = dt.Lookup("WF9", 7)
	require.True(t, errors.Is(err, ErrInvalidGain))
}

func TestParseDetectorTable(t *testing.T) {
	doc := `
instrument: TOY
detectors:
  A:
    darkrate: 0.1
    settings:
      1: {gain: 2.0, readnoise: 3.5}
`
	dt, err := ParseDetectorTable([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "TOY", dt.Instrument)
	gs, rate, err := dt.Lookup("A", 1)
	require.NoError(t, err)
	require.Equal(t, 2.0, gs.Gain)
	require.Equal(t, 3.5, gs.ReadNoise)
	require.Equal(t, 0.1, rate)
	require.Contains(t, dt.AsYaml(), "readnoise: 3.5")

	_, err = ParseDetectorTable([]byte("detectors:\n  A:\n    settings:\n      1: {gain: 0}\n"))
	require.True(t, errors.Is(err, ErrInvalidGain))

	_, err = ParseDetectorTable([]byte("detectors: [unclosed"))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	dt := DefaultDetectorTable()

	sc, err := dt.Resolve(Request{Detector: "PC", GainSetting: 7, DarkTime: 200}, 100)
	require.NoError(t, err)
	require.Equal(t, 7.12, sc.Gain)
	require.Equal(t, 5.24, sc.ReadNoise)
	require.InDelta(t, 1.0, sc.DarkCurrent, 1e-12)

	// Dark time defaults to the exposure time
	sc, err = dt.Resolve(Request{Detector: "PC", GainSetting: 7}, 100)
	require.NoError(t, err)
	require.InDelta(t, 0.5, sc.DarkCurrent, 1e-12)

	sc, err = dt.Resolve(Request{Detector: "PC", GainSetting: 99, Gain: 3, ReadNoise: 4}, 10)
	require.NoError(t, err)
	require.Equal(t, 3.0, sc.Gain)
	require.Equal(t, 4.0, sc.ReadNoise)
	require.InDelta(t, 0.05, sc.DarkCurrent, 1e-12)

	_, err = dt.Resolve(Request{Detector: "PC", GainSetting: 7, Gain: 3}, 10)
	require.True(t, errors.Is(err, ErrMissingScalar))
	_, err = dt.Resolve(Request{Detector: "PC", GainSetting: 7, ReadNoise: 3}, 10)
	require.True(t, errors.Is(err, ErrMissingScalar))
	_, err = dt.Resolve(Request{Detector: "PC", Gain: -2, ReadNoise: 3}, 10)
	require.True(t, errors.Is(err, ErrInvalidGain))
	_, err = dt.Resolve(Request{Detector: "PC", GainSetting: 12}, 10)
	require.True(t, errors.Is(err, ErrInvalidGain))
}

func rawExposure(units drizzle.Units) *drizzle.Exposure {
	e := &drizzle.Exposure{
		Name:         "raw",
		Science:      emath.NewFilledFloatGrid(4, 3, 10.0),
		ExposureTime: 50,
		Units:        units,
	}
	e.Science.Set(0, 0, math.NaN())
	return e
}

func TestCalibrateConvertsToElectrons(t *testing.T) {
	e := rawExposure(drizzle.UnitsCounts)
	require.NoError(t, Calibrate(e, Scalars{Gain: 2, ReadNoise: 3}, WeightUniform))

	require.Equal(t, 20.0, e.Science.Get(2, 2))
	require.Equal(t, 2.0, e.Gain)
	require.True(t, e.Weight.SameSize(e.Science))
	require.Equal(t, 0.0, e.Weight.Get(0, 0))
	require.Equal(t, 1.0, e.Weight.Get(3, 2))
}

func TestCalibrateInvalidGainLeavesExposureAlone(t *testing.T) {
	for _, gain := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		e := rawExposure(drizzle.UnitsCounts)
		err := Calibrate(e, Scalars{Gain: gain}, WeightExp)
		require.True(t, errors.Is(err, ErrInvalidGain), "gain %v", gain)
		require.Equal(t, 10.0, e.Science.Get(1, 1))
		require.Equal(t, 0, e.Weight.Len())
	}

	e := rawExposure(drizzle.UnitsCounts)
	require.Error(t, Calibrate(e, Scalars{Gain: 1}, "median"))
	e.ExposureTime = 0
	require.True(t, errors.Is(Calibrate(e, Scalars{Gain: 1}, WeightErr), ErrMissingScalar))
	require.Equal(t, 10.0, e.Science.Get(1, 1))
}

func TestWeightTypes(t *testing.T) {
	sc := Scalars{Gain: 2, ReadNoise: 3, DarkCurrent: 1}

	e := rawExposure(drizzle.UnitsCounts)
	require.NoError(t, Calibrate(e, sc, WeightExp))
	require.Equal(t, 50.0, e.Weight.Get(1, 1))

	// counts: 20 electrons of signal, plus dark and read noise
	e = rawExposure(drizzle.UnitsCounts)
	require.NoError(t, Calibrate(e, sc, WeightErr))
	require.InDelta(t, 2500.0/(20+1+9), e.Weight.Get(1, 1), 1e-9)

	// rates: 20 e/s over 50s
	e = rawExposure(drizzle.UnitsRate)
	require.NoError(t, Calibrate(e, sc, WeightErr))
	require.InDelta(t, 2500.0/(1000+1+9), e.Weight.Get(1, 1), 1e-9)

	// ivm only sees the background, so bright pixels don't get downweighted
	e = rawExposure(drizzle.UnitsCounts)
	e.Science.Set(3, 2, 5000)
	require.NoError(t, Calibrate(e, sc, WeightIVM))
	require.InDelta(t, 2500.0/(20+1+9), e.Weight.Get(3, 2), 1e-9)
	require.Equal(t, e.Weight.Get(1, 1), e.Weight.Get(3, 2))
}

func TestExistingWeightIsAMask(t *testing.T) {
	e := rawExposure(drizzle.UnitsCounts)
	e.Weight = emath.NewFilledFloatGrid(4, 3, 1.0)
	e.Weight.Set(2, 1, 0)
	e.Weight.Set(3, 1, -5)

	require.NoError(t, Calibrate(e, Scalars{Gain: 1}, WeightExp))
	require.Equal(t, 0.0, e.Weight.Get(2, 1))
	require.Equal(t, 0.0, e.Weight.Get(3, 1))
	require.Equal(t, 50.0, e.Weight.Get(1, 1))

	e = rawExposure(drizzle.UnitsCounts)
	e.Weight = emath.NewFloatGrid(2, 2)
	require.True(t, errors.Is(Calibrate(e, Scalars{Gain: 1}, WeightExp), drizzle.ErrShapeMismatch))
}
