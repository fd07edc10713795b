package combine

import(
	"fmt"
	"image"
	"path/filepath"

	"github.com/SaOgaz/drizzlepac/pkg/calib"
	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/emath"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

// A Layer is one exposure loaded from an input file, with everything we
// learn about it as it goes through the pipeline.
type Layer struct {
	LoadFilename       string
	LoadedImage        image.Image  // The original image, before calibration
	ExposureInfo                    // From the EXIF, if there was any

	drizzle.Exposure                // Calibrated science and weights
	calib.Scalars

	AlignmentTransform              // How to map a pixel in this layer onto the reference grid
	Mapping            *pixmap.Map  // Where each pixel lands on the output grid

	Skipped            error        // Why this layer was left out, if it was
	Stats              drizzle.Stats

	Blotted            emath.FloatGrid  // The combined image, resampled back onto this layer
	LayerComparison
}

func (l Layer)String() string {
	str := fmt.Sprintf("%s: %s, %s", l.Filename(), l.ExposureInfo, l.AlignmentTransform)
	if l.Skipped != nil {
		return str + fmt.Sprintf(", SKIPPED (%v)", l.Skipped)
	}
	return str + fmt.Sprintf(", #%d %s %s", l.Ordinal, l.Scalars, l.Stats)
}

func (l Layer)Filename() string {
	return filepath.Base(l.LoadFilename)
}

func (l Layer)Bounds() image.Rectangle {
	return l.Science.Bounds()
}

// BlotRatio is what to multiply the combined image by to get back into
// this layer's units: combined images are always per second.
func (l Layer)BlotRatio() float64 {
	if l.Units == drizzle.UnitsCounts {
		return l.ExposureTime
	}
	return 1.0
}
