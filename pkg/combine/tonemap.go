package combine

import(
	"fmt"
	"log"
	"path/filepath"

	"github.com/mdouchement/hdr/tmo"
)

var(
	Tonemappers = []string{"drago03", "durand", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Tonemappers)
}

// Tonemap writes a viewable PNG of the combined image, using the configured
// operator (or all of them).
func (ci *CombinedImage)Tonemap() error {
	names := []string{ci.Config.Tonemapper}
	if ci.Config.Tonemapper == "all" {
		log.Printf("Tonemapping (using all operators)")
		names = Tonemappers
	}

	for _, name := range names {
		op, err := ci.SetupTonemapper(name)
		if err != nil {
			return err
		}
		if err := ci.ApplyTonemapper(op, name); err != nil {
			return err
		}
	}
	return nil
}

func (ci *CombinedImage)ApplyTonemapper(op tmo.ToneMappingOperator, name string) error {
	log.Printf("Tonemapping: %s", name)
	return WritePNG(op.Perform(), filepath.Join(ci.Config.OutputDir, fmt.Sprintf("tmo-%s.png", name)))
}

// Sky images are mostly dark, with a few very bright sources; the default
// settings tend to blow those out.
func (ci *CombinedImage)SetupTonemapper(name string) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(ci)
		op.Bias = 1.0
		return op, nil

	case "durand":
		return tmo.NewDefaultDurand(ci), nil

	case "icam06":
		op := tmo.NewDefaultICam06(ci)
		op.Contrast    = 0.65
		op.MaxClipping = 0.99999
		return op, nil

	case "linear":
		return tmo.NewLinear(ci), nil

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(ci)
		op.Chromatic  = 0.005
		op.Light      = 0.005
		return op, nil
	}

	return nil, fmt.Errorf("tonemapper %q not recognized, wanted %s", name, ListTonemappers())
}
