// Package combine is the driver: it loads a set of exposures, calibrates
// them, drizzles them onto one output grid, and then blots the result back
// onto each exposure to see how well they agree.
package combine

import(
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/SaOgaz/drizzlepac/pkg/blot"
	"github.com/SaOgaz/drizzlepac/pkg/calib"
	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

var(
	nan = math.NaN()

	ErrNoLayers = errors.New("no usable layers")
)

// CombinedImage holds the layers, and drizzles them into a single
// image. Implements the image.Image and hdr.Image interfaces.
type CombinedImage struct {
	Layers           []Layer  // Ordered by filename; a layer's index is its context ordinal
	Config
	Detectors        calib.DetectorTable

	OutputGrid
	Canvas           *drizzle.Canvas
	Combined         emath.FloatGrid
}

// Implement image.Image
func (ci CombinedImage)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (ci CombinedImage)Bounds() image.Rectangle       { return ci.Combined.Bounds() }
func (ci CombinedImage)At(x, y int) color.Color       { return ci.HDRAt(x,y) }

// Implement hdr.Image
func (ci CombinedImage)HDRAt(x, y int) hdrcolor.Color {
	v := ci.Combined.Get(x, y)
	if math.IsNaN(v) || v < 0 { v = 0 }
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (ci CombinedImage)Size() int                     { return ci.Bounds().Dx() * ci.Bounds().Dy() }

func NewCombinedImage() CombinedImage {
	return CombinedImage{
		Layers: []Layer{},
		Config: NewConfig(),
	}
}

func (ci CombinedImage)String() string {
	str := fmt.Sprintf("CombinedImage %s [\n", ci.OutputGrid.Area)
	for _, l := range ci.Layers {
		str += fmt.Sprintf("  %s\n", l)
	}
	return str + "]\n"
}

func (ci *CombinedImage)AddLayer(l Layer) {
	ci.Layers = append(ci.Layers, l)
	sort.SliceStable(ci.Layers, func(i, j int) bool { return ci.Layers[i].LoadFilename < ci.Layers[j].LoadFilename })
}

func (ci *CombinedImage)UsableLayers() int {
	n := 0
	for _, l := range ci.Layers {
		if l.Skipped == nil { n++ }
	}
	return n
}

func (ci *CombinedImage)skip(i int, err error) {
	ci.Layers[i].Skipped = err
	log.Printf("Skipping layer %s: %v", ci.Layers[i].Filename(), err)
}

// Run does the whole thing, start to finish.
func (ci *CombinedImage)Run() error {
	if err := ci.Calibrate(); err != nil {
		return err
	}
	if err := ci.Align(); err != nil {
		return err
	}
	if err := ci.Drizzle(); err != nil {
		return err
	}
	return ci.Blot()
}

// Calibrate turns each loaded image into a calibrated exposure. A layer
// that can't be calibrated is skipped; the others carry on.
func (ci *CombinedImage)Calibrate() error {
	log.Printf("Calibrating %d layers", len(ci.Layers))

	dt, err := ci.Config.DetectorTable()
	if err != nil {
		return err
	}
	ci.Detectors = dt

	for i := range ci.Layers {
		l := &ci.Layers[i]
		l.Ordinal = i
		l.Exposure.Name = l.Filename()
		if l.LoadedImage != nil {
			l.Science = GridFromImage(l.LoadedImage)
		}
		if l.Units == "" {
			l.Units = ci.Config.Units
		}
		if l.ExposureTime == 0 {
			l.ExposureTime = l.ExposureInfo.Seconds(ci.Config.DefaultExposureTime)
		}

		sc, err := ci.Detectors.Resolve(ci.Config.CalibRequest(), l.ExposureTime)
		if err != nil {
			ci.skip(i, err)
			continue
		}
		if err := calib.Calibrate(&l.Exposure, sc, ci.Config.WeightType); err != nil {
			ci.skip(i, err)
			continue
		}
		l.Scalars = sc

		if ci.Config.Verbosity > 0 {
			log.Printf(" -- %s", l)
		}
	}

	if ci.UsableLayers() == 0 {
		return ErrNoLayers
	}
	return nil
}

// Align works out the output grid, and where every layer's pixels land on it.
func (ci *CombinedImage)Align() error {
	log.Printf("Aligning image layers")

	for i := range ci.Layers {
		l := &ci.Layers[i]
		if xf, exists := ci.Config.Alignments[l.Filename()]; exists {
			l.AlignmentTransform = xf
		} else {
			l.AlignmentTransform = AlignmentTransform{}
		}
		l.AlignmentTransform.Name = l.Filename()
	}

	og, err := ci.CalculateOutputGrid()
	if err != nil {
		return err
	}
	ci.OutputGrid = og

	for i := range ci.Layers {
		l := &ci.Layers[i]
		if l.Skipped != nil { continue }
		l.Mapping = ci.OutputGrid.Pixmap(l.AlignmentTransform, l.Bounds())

		if ci.Config.Verbosity > 1 && l.LoadedImage != nil {
			filename := filepath.Join(ci.Config.OutputDir, fmt.Sprintf("aligned-%s.png", l.Filename()))
			if err := WritePNG(Thumbnail(ci.OutputGrid.XFormImage(l.AlignmentTransform, l.LoadedImage), 1024), filename); err != nil {
				return err
			}
		}
	}

	log.Printf("Layers loaded and aligned: %s", ci)
	return nil
}

// CalculateOutputGrid finds the bounding box of all the usable layers on
// the reference grid, unless the config pins the output size, in which
// case the output is centered on that box.
func (ci *CombinedImage)CalculateOutputGrid() (OutputGrid, error) {
	scale := ci.Config.OutputScale
	if !(scale > 0) {
		return OutputGrid{}, fmt.Errorf("output scale %v is not positive", scale)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, l := range ci.Layers {
		if l.Skipped != nil { continue }
		m := l.AlignmentTransform.ToMatrix()
		w, h := float64(l.Bounds().Dx()), float64(l.Bounds().Dy())
		for _, c := range [][2]float64{{-0.5, -0.5}, {w-0.5, -0.5}, {-0.5, h-0.5}, {w-0.5, h-0.5}} {
			x, y := m.Apply(c[0], c[1])
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}
	if math.IsInf(minX, 0) {
		return OutputGrid{}, ErrNoLayers
	}

	og := OutputGrid{MinX: minX, MinY: minY, Scale: scale}
	if ci.Config.OutputWidth > 0 && ci.Config.OutputHeight > 0 {
		og.Area = image.Rect(0, 0, ci.Config.OutputWidth, ci.Config.OutputHeight)
		og.MinX = (minX+maxX)/2.0 - float64(ci.Config.OutputWidth)/(2.0*scale)
		og.MinY = (minY+maxY)/2.0 - float64(ci.Config.OutputHeight)/(2.0*scale)
	} else {
		// The epsilon stops rounding noise adding a whole extra row or column
		w := int(math.Ceil((maxX-minX)*scale - 1e-9))
		h := int(math.Ceil((maxY-minY)*scale - 1e-9))
		og.Area = image.Rect(0, 0, w, h)
	}

	return og, nil
}

// Drizzle accumulates every usable layer onto a fresh canvas, then
// finalizes it into the combined image.
func (ci *CombinedImage)Drizzle() error {
	log.Printf("Drizzling image layers over %s", ci.OutputGrid.Area)

	canvas, err := drizzle.NewCanvas(ci.OutputGrid.Area.Dx(), ci.OutputGrid.Area.Dy())
	if err != nil {
		return err
	}
	ci.Canvas = canvas
	params := ci.Config.DrizzleParams()

	for i := range ci.Layers {
		l := &ci.Layers[i]
		if l.Skipped != nil { continue }

		stats, err := ci.Canvas.Accumulate(&l.Exposure, l.Mapping, params)
		if errors.Is(err, drizzle.ErrBadPixfrac) || errors.Is(err, drizzle.ErrFinalized) {
			return err // no layer would fare any better
		} else if err != nil {
			ci.skip(i, err)
			continue
		}
		l.Stats = stats
		log.Printf(" -- drizzled %s: %s", l.Filename(), stats)
	}

	if ci.UsableLayers() == 0 {
		return ErrNoLayers
	}

	combined, err := ci.Canvas.Finalize(params.FillValue)
	if err != nil {
		return err
	}
	ci.Combined = combined

	for _, pt := range ci.Config.DebugPixels {
		log.Printf("%s", ci.PixelReport(pt.X, pt.Y))
	}

	return nil
}

// Blot resamples the combined image back onto every usable layer, and
// compares it with the original.
func (ci *CombinedImage)Blot() error {
	log.Printf("Blotting combined image back onto %d layers", ci.UsableLayers())

	for i := range ci.Layers {
		l := &ci.Layers[i]
		if l.Skipped != nil { continue }

		blotted, err := blot.Resample(ci.Combined, l.Mapping, ci.Config.BlotOptions(l.BlotRatio()))
		if err != nil {
			return fmt.Errorf("blot %s: %w", l.Filename(), err)
		}
		l.Blotted = blotted
		l.LayerComparison = Compare(ci.Config, l.Filename(), l.Science, l.Weight, blotted)

		log.Printf(" -- %s: %s", l.Filename(), l.LayerComparison)
	}
	return nil
}

// WriteToHDR outputs a HDR image. You can load this into photoshop or other HDR tools.
func (ci *CombinedImage)WriteToHDR(filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("CombinedImage.WriteToHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		err := rgbe.Encode(writer, ci)
		if err != nil {
			log.Printf("CombinedImage.WriteToHDR, encoding RGBE file: %v\n", err)
		}
		return err
	}
}

// WriteOutputs writes everything into the output dir.
func (ci *CombinedImage)WriteOutputs() error {
	dir := ci.Config.OutputDir

	if err := ci.WriteToHDR(filepath.Join(dir, "combined.hdr")); err != nil {
		return err
	}
	if err := ci.Canvas.Weight.ToImg("weight", filepath.Join(dir, "weight.png")); err != nil {
		return fmt.Errorf("weight png: %v", err)
	}
	if err := WritePNG(ci.ContextImage(), filepath.Join(dir, "context.png")); err != nil {
		return err
	}

	for _, l := range ci.Layers {
		if l.Skipped != nil { continue }
		title := fmt.Sprintf("blot %s: %s", l.Filename(), l.LayerComparison)
		if err := l.Blotted.ToImg(title, filepath.Join(dir, fmt.Sprintf("blot-%s.png", l.Filename()))); err != nil {
			return fmt.Errorf("blot png: %v", err)
		}
	}

	if ci.Config.Tonemapper != "" {
		return ci.Tonemap()
	}
	return nil
}
