package blot

import(
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

// ramp is a grid holding f(x,y).
func ramp(w, h int, f func(x, y float64) float64) emath.FloatGrid {
	g := emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			g.Set(x, y, f(float64(x), float64(y)))
		}
	}
	return g
}

func TestIdentityReproduces(t *testing.T) {
	img := ramp(12, 9, func(x, y float64) float64 { return math.Sin(x) + 3*math.Cos(y/2) + x*y })
	inv := pixmap.NewIdentity(9, 12)

	for _, name := range append(InterpNames(), "bilinear") {
		opts := DefaultOptions()
		opts.Interp = name
		out, err := Resample(img, inv, opts)
		require.NoError(t, err, name)
		require.True(t, out.SameSize(img))
		for i, v := range img.Values() {
			require.InDelta(t, v, out.Values()[i], 1e-12, "%s, pixel %d", name, i)
		}
	}
}

func TestUnknownInterp(t *testing.T) {
	_, err := Resample(emath.NewFloatGrid(2, 2), pixmap.NewIdentity(2, 2), Options{Interp: "sinc"})
	require.True(t, errors.Is(err, ErrUnknownInterp))
}

func TestEmptyInputs(t *testing.T) {
	_, err := Resample(emath.FloatGrid{}, pixmap.NewIdentity(2, 2), DefaultOptions())
	require.True(t, errors.Is(err, pixmap.ErrShapeMismatch))

	_, err = Resample(emath.NewFloatGrid(2, 2), nil, DefaultOptions())
	require.Error(t, err)
}

func TestHalfPixelLinear(t *testing.T) {
	img := ramp(4, 4, func(x, y float64) float64 { return 10*x + y })
	inv := pixmap.NewFromAffine(3, 3, emath.Identity().Translate(0.5, 0.5))

	out, err := Resample(img, inv, Options{Interp: "linear", ExposureTimeRatio: 1})
	require.NoError(t, err)
	require.InDelta(t, 10*1.5 + 2.5, out.Get(1, 2), 1e-12)
}

func TestPolynomialIsExactForCubics(t *testing.T) {
	cubic := func(x, y float64) float64 { return 0.01*x*x*x - 0.2*x*x + y*y*0.5 + 3 }
	img := ramp(20, 20, cubic)
	inv := pixmap.NewFromAffine(10, 10, emath.Identity().Translate(4.3, 5.7))

	for _, name := range []string{"poly3", "poly5"} {
		out, err := Resample(img, inv, Options{Interp: name, ExposureTimeRatio: 1})
		require.NoError(t, err)
		require.InDelta(t, cubic(7.3, 8.7), out.Get(3, 3), 1e-9, name)
	}
}

func TestLanczosKeepsConstants(t *testing.T) {
	img := emath.NewFilledFloatGrid(30, 30, 7.5)
	inv := pixmap.NewFromAffine(10, 10, emath.Identity().Translate(10.25, 9.6))
	for _, name := range []string{"lan3", "lan5"} {
		out, err := Resample(img, inv, Options{Interp: name, ExposureTimeRatio: 1})
		require.NoError(t, err)
		for _, v := range out.Values() {
			require.InDelta(t, 7.5, v, 1e-12, name)
		}
	}
}

func TestFillOffTheEdge(t *testing.T) {
	img := emath.NewFilledFloatGrid(5, 5, 1.0)
	inv := pixmap.NewFromAffine(5, 5, emath.Identity().Translate(2.5, 0))

	out, err := Resample(img, inv, Options{Interp: "linear", ExposureTimeRatio: 1, Fill: -9})
	require.NoError(t, err)
	require.Equal(t, 1.0, out.Get(0, 0))
	require.Equal(t, 1.0, out.Get(1, 0))
	require.Equal(t, -9.0, out.Get(2, 0))  // needs column 5
	require.Equal(t, -9.0, out.Get(4, 4))

	// Default fill is zero
	out, err = Resample(img, inv, Options{Interp: "poly5", ExposureTimeRatio: 1})
	require.NoError(t, err)
	require.Equal(t, 0.0, out.Get(0, 0))

	xy := []float64{0, 0, math.NaN(), 0}
	nanMap, err := pixmap.New(1, 2, xy)
	require.NoError(t, err)
	out, err = Resample(img, nanMap, Options{Interp: "nearest", ExposureTimeRatio: 1, Fill: 3})
	require.NoError(t, err)
	require.Equal(t, 1.0, out.Get(0, 0))
	require.Equal(t, 3.0, out.Get(1, 0))
}

func TestExposureTimeRatio(t *testing.T) {
	img := ramp(6, 6, func(x, y float64) float64 { return x + y })
	out, err := Resample(img, pixmap.NewIdentity(6, 6), Options{Interp: "nearest", ExposureTimeRatio: 2.5})
	require.NoError(t, err)
	require.InDelta(t, 2.5*7, out.Get(3, 4), 1e-12)
}

func TestIdempotentAcrossWorkers(t *testing.T) {
	img := ramp(40, 30, func(x, y float64) float64 { return math.Sin(x/3) * math.Cos(y/5) })
	inv := pixmap.NewFromFunc(25, 35, func(x, y float64) (float64, float64) {
		return 2 + 0.9*x + 0.01*y, 1.5 + 0.95*y - 0.02*x
	})

	opts := Options{Interp: "lan3", ExposureTimeRatio: 1, Workers: 1}
	a, err := Resample(img, inv, opts)
	require.NoError(t, err)

	opts.Workers = 7
	b, err := Resample(img, inv, opts)
	require.NoError(t, err)
	c, err := Resample(img, inv, opts)
	require.NoError(t, err)

	require.Equal(t, a.Values(), b.Values())
	require.Equal(t, b.Values(), c.Values())
}
