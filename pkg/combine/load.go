package combine

import(
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

func (ci *CombinedImage)LoadFilesAndDirs(args ...string) (error) {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := ci.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := ci.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (ci *CombinedImage)loadFile(filename string) error {
	ext := filepath.Ext(filename)

	switch strings.ToLower(ext) {

	case ".tif", ".tiff":
		layer, err := loadTIFF(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as TIFF failed: %v", filename, err)
		}
		ci.AddLayer(layer)

	case ".yaml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %v", filename, err)
		}
		ci.Config = cfg
		log.Printf("Loaded base configuration from %s\n", filename)
	}

	return nil
}

// loadExposureInfo reads what EXIF there is. Scientific TIFFs often have
// none, which is fine; the config supplies defaults.
func loadExposureInfo(filename string) (ExposureInfo, error) {
	ei := ExposureInfo{}

	reader, err := os.Open(filename)
	if err != nil {
		return ei, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return ei, nil
	}

	if tag, err := ex.Get(exif.ExposureTime); err == nil {
		if num, denom, err := tag.Rat2(0); err != nil {
			return ei, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
		} else {
			ei.ShutterSpeed = rational{num, denom}
		}
	}
	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		if val, err := tag.Int64(0); err == nil {
			ei.ISO = val
		}
	}
	if tag, err := ex.Get(exif.Model); err == nil {
		if val, err := tag.StringVal(); err == nil {
			ei.Model = strings.TrimSpace(val)
		}
	}

	return ei, nil
}

func loadTIFF(filename string) (Layer, error) {
	l := Layer{LoadFilename: filename}

	// First, try to load the EXIF metadata.
	if ei, err := loadExposureInfo(filename); err != nil {
		return l, err
	} else {
		l.ExposureInfo = ei
	}

	// Re-open the file, now for the image data
	if reader, err := os.Open(filename); err != nil {
		return l, fmt.Errorf("open+r img '%s': %v", filename, err)
	} else {
		defer reader.Close()
		if img, err := tiff.Decode(reader); err != nil {
			return l, fmt.Errorf("tiff loading '%s': %v", filename, err)
		} else {
			l.LoadedImage = img
		}
	}

	return l, nil
}
