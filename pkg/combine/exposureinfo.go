package combine

import(
	"fmt"
)

type rational [2]int64

func (r rational)Float() float64 {
	if r[1] == 0 { return 0 }
	return float64(r[0]) / float64(r[1])
}

func (r rational)String() string {
	if r[1] == 1 { return fmt.Sprintf("%d", r[0]) }
	return fmt.Sprintf("%d/%d", r[0], r[1])
}

// ExposureInfo is what the camera said about the exposure. Any of it may
// be missing.
type ExposureInfo struct {
	Model        string
	ISO          int64
	ShutterSpeed rational  // seconds
}

func (ei ExposureInfo)String() string {
	if ei.ShutterSpeed[1] == 0 {
		return "no-exif"
	}
	return fmt.Sprintf("%s ISO%d %ss", ei.Model, ei.ISO, ei.ShutterSpeed)
}

// Seconds is the exposure time, or `dflt` if the camera didn't say.
func (ei ExposureInfo)Seconds(dflt float64) float64 {
	if s := ei.ShutterSpeed.Float(); s > 0 {
		return s
	}
	return dflt
}
