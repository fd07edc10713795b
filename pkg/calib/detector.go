// Package calib turns raw exposures into what drizzle wants: science in
// electrons, with a weight map. Detector constants come from a table that
// is loaded once and handed in; nothing here is global.
package calib

import(
	"errors"
	"fmt"
	"io/ioutil"
	"sort"

	"gopkg.in/yaml.v2"
)

var(
	ErrInvalidGain   = errors.New("invalid gain")
	ErrMissingScalar = errors.New("missing calibration scalar")
)

// A GainSetting is the calibrated gain (electrons per count) and read
// noise (electrons) for one analog-to-digital gain setting.
type GainSetting struct {
	Gain      float64
	ReadNoise float64
}

type Detector struct {
	DarkRate float64              // electrons per second
	Settings map[int]GainSetting  // keyed by the gain setting in the file header
}

// A DetectorTable holds the per-detector constants for one instrument.
type DetectorTable struct {
	Instrument string
	Detectors  map[string]Detector
}

// DefaultDetectorTable has the WFPC2 chips, whose headers carry a nominal
// gain setting of 7 or 15 rather than a calibrated gain.
func DefaultDetectorTable() DetectorTable {
	chip := func(g7, rn7, g15, rn15 float64) Detector {
		return Detector{
			DarkRate: 0.005,
			Settings: map[int]GainSetting{
				7:  {g7, rn7},
				15: {g15, rn15},
			},
		}
	}
	return DetectorTable{
		Instrument: "WFPC2",
		Detectors: map[string]Detector{
			"PC":  chip(7.12, 5.24, 13.99, 7.02),
			"WF2": chip(7.12, 5.51, 14.50, 7.84),
			"WF3": chip(6.90, 5.22, 13.95, 6.99),
			"WF4": chip(7.10, 5.19, 13.95, 8.32),
		},
	}
}

func ParseDetectorTable(b []byte) (DetectorTable, error) {
	dt := DetectorTable{}
	if err := yaml.Unmarshal(b, &dt); err != nil {
		return dt, fmt.Errorf("detector table yaml: %v", err)
	}
	for name, det := range dt.Detectors {
		for setting, gs := range det.Settings {
			if !(gs.Gain > 0) {
				return dt, fmt.Errorf("detector '%s' setting %d: gain %v: %w", name, setting, gs.Gain, ErrInvalidGain)
			}
		}
	}
	return dt, nil
}

func LoadDetectorTable(filename string) (DetectorTable, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return DetectorTable{}, fmt.Errorf("detector table read %s: %v", filename, err)
	}
	return ParseDetectorTable(contents)
}

func (dt DetectorTable)AsYaml() string {
	b, err := yaml.Marshal(dt)
	if err != nil {
		return fmt.Sprintf("# can't marshal detector table: %v\n", err)
	}
	return string(b)
}

func (dt DetectorTable)DetectorNames() []string {
	ret := []string{}
	for name := range dt.Detectors {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Lookup finds the calibrated constants for a detector's header gain
// setting. An unknown detector or setting is an invalid gain.
func (dt DetectorTable)Lookup(detector string, setting int) (GainSetting, float64, error) {
	det, exists := dt.Detectors[detector]
	if !exists {
		return GainSetting{}, 0, fmt.Errorf("detector '%s' not in %s table %v: %w", detector, dt.Instrument, dt.DetectorNames(), ErrInvalidGain)
	}
	gs, exists := det.Settings[setting]
	if !exists {
		return GainSetting{}, 0, fmt.Errorf("detector '%s' has no gain setting %d: %w", detector, setting, ErrInvalidGain)
	}
	return gs, det.DarkRate, nil
}
