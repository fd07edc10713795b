package combine

import(
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/SaOgaz/drizzlepac/pkg/calib"
	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

func smooth(x, y int) float64 { return 10.0 + float64(x) + 0.25*float64(y*y) }

func syntheticLayer(name string, w, h int, f func(x, y int) float64) Layer {
	l := Layer{LoadFilename: name}
	l.Science = emath.NewFloatGrid(w, h)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			l.Science.Set(x, y, f(x, y))
		}
	}
	l.Units = drizzle.UnitsRate
	l.ExposureTime = 2.0
	return l
}

func testCombinedImage(t *testing.T) CombinedImage {
	ci := NewCombinedImage()
	ci.Config.Gain = 2.0
	ci.Config.ReadNoise = 5.0
	ci.Config.WeightType = calib.WeightUniform
	ci.Config.OutputDir = t.TempDir()
	return ci
}

func TestPipelineIdenticalLayers(t *testing.T) {
	ci := testCombinedImage(t)
	ci.AddLayer(syntheticLayer("b.tif", 20, 16, smooth))
	ci.AddLayer(syntheticLayer("a.tif", 20, 16, smooth))
	require.NoError(t, ci.Run())

	require.Equal(t, "a.tif", ci.Layers[0].Filename())
	require.Equal(t, image.Rect(0, 0, 20, 16), ci.OutputGrid.Area)
	require.Equal(t, image.Rect(0, 0, 20, 16), ci.Bounds())

	for y:=0; y<16; y++ {
		for x:=0; x<20; x++ {
			require.InDelta(t, 2.0*smooth(x, y), ci.Combined.Get(x, y), 1e-9)
			require.Equal(t, 2, ci.Canvas.Context.Count(x, y))
		}
	}

	for i, l := range ci.Layers {
		require.NoError(t, l.Skipped)
		require.Equal(t, i, l.Ordinal)
		require.Equal(t, drizzle.Stats{Deposited: 320}, l.Stats)
		require.Equal(t, 320, l.LayerComparison.N)
		require.InDelta(t, 0.0, l.LayerComparison.Max, 1e-9)
	}

	p := ci.PixelReport(3, 4)
	require.Equal(t, []string{"a.tif", "b.tif"}, p.Contributors)
	require.Equal(t, 2.0, p.Weight)
	require.InDelta(t, 2.0*smooth(3, 4), p.Combined, 1e-9)
}

func TestLayerFailureIsIsolated(t *testing.T) {
	ci := testCombinedImage(t)
	ci.AddLayer(syntheticLayer("a.tif", 10, 10, smooth))
	bad := syntheticLayer("b.tif", 10, 10, smooth)
	bad.Weight = emath.NewFilledFloatGrid(3, 3, 1.0)
	ci.AddLayer(bad)
	ci.AddLayer(syntheticLayer("c.tif", 10, 10, smooth))
	require.NoError(t, ci.Run())

	require.NoError(t, ci.Layers[0].Skipped)
	require.True(t, errors.Is(ci.Layers[1].Skipped, drizzle.ErrShapeMismatch))
	require.NoError(t, ci.Layers[2].Skipped)
	require.Equal(t, 2, ci.UsableLayers())

	require.Equal(t, []int{0, 2}, ci.Canvas.Context.Contributors(5, 5))
	require.Equal(t, 0, ci.Layers[1].LayerComparison.N)
}

func TestNoUsableLayers(t *testing.T) {
	ci := testCombinedImage(t)
	ci.Config.ReadNoise = 0 // a gain on its own is not enough
	ci.AddLayer(syntheticLayer("a.tif", 10, 10, smooth))

	err := ci.Run()
	require.True(t, errors.Is(err, ErrNoLayers))
	require.True(t, errors.Is(ci.Layers[0].Skipped, calib.ErrMissingScalar))
	require.Nil(t, ci.Canvas)
}

func TestOutputGrid(t *testing.T) {
	ci := testCombinedImage(t)
	ci.AddLayer(syntheticLayer("a.tif", 20, 16, smooth))
	ci.AddLayer(syntheticLayer("b.tif", 20, 16, smooth))
	ci.Config.Alignments["b.tif"] = AlignmentTransform{TranslateByX: 5}

	require.NoError(t, ci.Calibrate())
	require.NoError(t, ci.Align())
	require.Equal(t, image.Rect(0, 0, 25, 16), ci.OutputGrid.Area)

	// b's pixel (0,0) lands where a's pixel (5,0) does
	x, y := ci.Layers[1].Mapping.At(0, 0)
	require.InDelta(t, 5.0, x, 1e-9)
	require.InDelta(t, 0.0, y, 1e-9)

	ci.Config.OutputScale = 2.0
	og, err := ci.CalculateOutputGrid()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 50, 32), og.Area)

	ci.Config.OutputWidth, ci.Config.OutputHeight = 10, 8
	og, err = ci.CalculateOutputGrid()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 8), og.Area)
	require.InDelta(t, 12.0 - 2.5, og.MinX, 1e-9)
	require.InDelta(t, 7.5 - 2.0, og.MinY, 1e-9)

	ci.Config.OutputScale = 0
	_, err = ci.CalculateOutputGrid()
	require.Error(t, err)
}

func TestDrizzleAndBlotShiftedLayers(t *testing.T) {
	ci := testCombinedImage(t)
	ci.Config.Kernel = "lanczos3"
	ci.AddLayer(syntheticLayer("a.tif", 30, 20, smooth))
	ci.AddLayer(syntheticLayer("b.tif", 30, 20, func(x, y int) float64 { return smooth(x+3, y) }))
	ci.Config.Alignments["b.tif"] = AlignmentTransform{TranslateByX: 3}
	require.NoError(t, ci.Run())

	for _, l := range ci.Layers {
		require.True(t, l.LayerComparison.N > 0)
		require.Equal(t, 0, l.Stats.Skipped)
	}
	// Each edge column is covered by just one layer
	require.Equal(t, []int{0}, ci.Canvas.Context.Contributors(0, 10))
	require.Equal(t, []int{1}, ci.Canvas.Context.Contributors(32, 10))
}

func TestBlotRatio(t *testing.T) {
	l := syntheticLayer("a.tif", 2, 2, smooth)
	require.Equal(t, 1.0, l.BlotRatio())
	l.Units = drizzle.UnitsCounts
	l.ExposureTime = 4.0
	require.Equal(t, 4.0, l.BlotRatio())
}

func TestCompare(t *testing.T) {
	orig, _ := emath.NewFloatGridFromValues(3, 1, []float64{1, 2, 3})
	wht, _ := emath.NewFloatGridFromValues(3, 1, []float64{1, 0, 1})
	blotted, _ := emath.NewFloatGridFromValues(3, 1, []float64{1.5, 2, math.NaN()})

	lc := Compare(NewConfig(), "x", orig, wht, blotted)
	require.Equal(t, 1, lc.N)
	require.InDelta(t, 0.5, lc.Median, 1e-12)
	require.InDelta(t, 0.5, lc.Max, 1e-12)
	require.InDelta(t, 0.5, lc.P99, 1e-3)

	short, _ := emath.NewFloatGridFromValues(2, 1, []float64{1, 2})
	require.Equal(t, LayerComparison{}, Compare(NewConfig(), "x", orig, wht, short))

	require.Equal(t, 16, agreementDigits(0))
	require.Equal(t, 6, agreementDigits(3e-7))
	require.Equal(t, 0, agreementDigits(40))
}

func TestConfigYaml(t *testing.T) {
	doc := `
kernel: gaussian
pixfrac: 0.6
units: cps
weighttype: ivm
alignments:
  b.tif: {translatebyx: 3.5, rotatebydeg: 90}
`
	c, err := newConfigFromYaml([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "gaussian", c.Kernel)
	require.Equal(t, drizzle.UnitsRate, c.Units)
	require.Equal(t, calib.WeightIVM, c.WeightType)
	require.Equal(t, "poly5", c.Interp) // defaults survive
	require.Equal(t, 3.5, c.Alignments["b.tif"].TranslateByX)

	p := c.DrizzleParams()
	require.Equal(t, "gaussian", p.Kernel)
	require.Equal(t, 0.6, p.Pixfrac)
	require.True(t, math.IsNaN(c.BlotOptions(2).Fill))
	require.Equal(t, 2.0, c.BlotOptions(2).ExposureTimeRatio)

	c2, err := newConfigFromYaml([]byte(c.AsYaml()))
	require.NoError(t, err)
	require.Equal(t, c.Kernel, c2.Kernel)
	require.Equal(t, c.Alignments, c2.Alignments)

	_, err = newConfigFromYaml([]byte("pixfrac: [1, 2]"))
	require.Error(t, err)
}

func TestSetupTonemapper(t *testing.T) {
	ci := NewCombinedImage()
	ci.Combined = emath.NewFilledFloatGrid(4, 4, 1.0)
	for _, name := range Tonemappers {
		op, err := ci.SetupTonemapper(name)
		require.NoError(t, err)
		require.NotNil(t, op)
	}
	_, err := ci.SetupTonemapper("fattal02")
	require.Error(t, err)
}

func writeTIFF(t *testing.T, filename string, w, h int) {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetGray16(x, y, color.Gray16{uint16(100*x + 7*y)})
		}
	}
	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func TestLoadRunAndWrite(t *testing.T) {
	indir, outdir := t.TempDir(), t.TempDir()
	writeTIFF(t, filepath.Join(indir, "frame1.tif"), 12, 9)
	writeTIFF(t, filepath.Join(indir, "frame2.tiff"), 12, 9)
	cfg := "kernel: turbo\nweighttype: err\nalignments:\n  frame2.tiff: {translatebyy: 1}\n"
	require.NoError(t, os.WriteFile(filepath.Join(indir, "drizzle.yaml"), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(indir, "notes.txt"), []byte("ignored"), 0644))

	ci := NewCombinedImage()
	require.NoError(t, ci.LoadFilesAndDirs(indir))
	require.Equal(t, 2, len(ci.Layers))
	require.Equal(t, "turbo", ci.Config.Kernel)

	ci.Config.OutputDir = outdir
	require.NoError(t, ci.Run())

	// Counts in, default WF2 gain setting 7, default exposure time of 1s.
	// Only frame1 covers row 0.
	require.Equal(t, image.Rect(0, 0, 12, 10), ci.OutputGrid.Area)
	require.InDelta(t, 7.12 * 400.0, ci.Combined.Get(4, 0), 1e-6)
	require.Equal(t, drizzle.UnitsCounts, ci.Layers[0].Units)
	require.Equal(t, 7.12, ci.Layers[1].Scalars.Gain)

	require.NoError(t, ci.WriteOutputs())
	for _, f := range []string{"combined.hdr", "weight.png", "context.png", "tmo-linear.png", "blot-frame1.tif.png"} {
		_, err := os.Stat(filepath.Join(outdir, f))
		require.NoError(t, err, f)
	}

	require.Error(t, ci.LoadFilesAndDirs(filepath.Join(indir, "missing")))
}
