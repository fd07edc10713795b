package combine

import(
	"fmt"
	"image"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/SaOgaz/drizzlepac/pkg/blot"
	"github.com/SaOgaz/drizzlepac/pkg/calib"
	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
)

type Config struct {
	Verbosity           int

	// Drizzle
	Kernel              string
	Pixfrac             float64
	OutputScale         float64   // output pixels per input pixel, along each axis
	OutputWidth         int       // 0 means big enough to hold every layer
	OutputHeight        int
	FillValue           float64
	Workers             int

	// Blot
	Interp              string

	// Calibration of the layers
	Units               drizzle.Units
	WeightType          calib.WeightType
	Detector            string
	GainSetting         int
	Gain                float64   // if set, so must ReadNoise be
	ReadNoise           float64
	DarkTime            float64
	DefaultExposureTime float64   // for layers with no EXIF exposure time
	DetectorTableFile   string    // if empty, the built-in table is used

	Tonemapper          string
	OutputDir           string

	Alignments          map[string]AlignmentTransform  // by layer filename; maps layer pixels onto the reference grid
	DebugPixels         []image.Point                  // output pixels to dump provenance for
}

func NewConfig() Config {
	return Config{
		Kernel:              "square",
		Pixfrac:             1.0,
		OutputScale:         1.0,
		Interp:              "poly5",
		Units:               drizzle.UnitsCounts,
		WeightType:          calib.WeightExp,
		Detector:            "WF2",
		GainSetting:         7,
		DefaultExposureTime: 1.0,
		Tonemapper:          "linear",
		OutputDir:           ".",
		Alignments:          map[string]AlignmentTransform{},
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	if c.Alignments == nil {
		c.Alignments = map[string]AlignmentTransform{}
	}
	return c, err
}

func loadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}
	return newConfigFromYaml(contents)
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)DrizzleParams() drizzle.Params {
	p := drizzle.DefaultParams()
	p.Kernel = c.Kernel
	p.Pixfrac = c.Pixfrac
	p.FillValue = c.FillValue
	p.Workers = c.Workers
	return p
}

// BlotOptions leaves uncovered pixels as NaN, so comparisons can skip them.
func (c Config)BlotOptions(exposureTimeRatio float64) blot.Options {
	return blot.Options{
		Interp:            c.Interp,
		ExposureTimeRatio: exposureTimeRatio,
		Fill:              nan,
		Workers:           c.Workers,
	}
}

func (c Config)CalibRequest() calib.Request {
	return calib.Request{
		Detector:    c.Detector,
		GainSetting: c.GainSetting,
		Gain:        c.Gain,
		ReadNoise:   c.ReadNoise,
		DarkTime:    c.DarkTime,
	}
}

func (c Config)DetectorTable() (calib.DetectorTable, error) {
	if c.DetectorTableFile == "" {
		return calib.DefaultDetectorTable(), nil
	}
	return calib.LoadDetectorTable(c.DetectorTableFile)
}
