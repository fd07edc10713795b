package main

import(
	"flag"
	"log"
	"strings"

	"github.com/SaOgaz/drizzlepac/pkg/blot"
	"github.com/SaOgaz/drizzlepac/pkg/calib"
	"github.com/SaOgaz/drizzlepac/pkg/combine"
	"github.com/SaOgaz/drizzlepac/pkg/drizzle"
	"github.com/SaOgaz/drizzlepac/pkg/kernel"
)

var(
	fVerbosity int
	fKernel string
	fPixfrac float64
	fOutputScale float64
	fInterp string
	fWeightType string
	fUnits string
	fDetector string
	fGain float64
	fReadNoise float64
	fWorkers int
	fTonemapper string
	fOutputDir string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fKernel, "kernel", "square", "drizzle kernel: "+strings.Join(kernel.Names(), ", "))
	flag.Float64Var(&fPixfrac, "pixfrac", 1.0, "fraction of each input pixel to drop, along each axis (0.0 -> 1.0]")
	flag.Float64Var(&fOutputScale, "scale", 1.0, "output pixels per input pixel, along each axis")
	flag.StringVar(&fInterp, "interp", "poly5", "blot interpolant: "+strings.Join(blot.InterpNames(), ", "))
	flag.StringVar(&fWeightType, "weighttype", "exp", "how to weight each pixel: exp, err, ivm, uniform")
	flag.StringVar(&fUnits, "units", "counts", "units of the input images: counts, cps")
	flag.StringVar(&fDetector, "detector", "WF2", "detector, for the gain and read noise table")
	flag.Float64Var(&fGain, "gain", 0, "override the table's gain (needs -readnoise too)")
	flag.Float64Var(&fReadNoise, "readnoise", 0, "override the table's read noise (needs -gain too)")
	flag.IntVar(&fWorkers, "workers", 0, "goroutines per layer; 0 means one per CPU")
	flag.StringVar(&fTonemapper, "tonemapper", "linear", "how to tonemap from HDR to LDR: "+combine.ListTonemappers()+", or all")
	flag.StringVar(&fOutputDir, "outdir", ".", "where to write the output files")
	flag.Parse()

	log.Printf("drizzle starting\n")
}

func main() {
	img := combine.NewCombinedImage()
	if err := img.LoadFilesAndDirs(flag.Args()...); err != nil {
		log.Fatal(err)
	}

	// Flags only override the config file when they were actually given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":          img.Config.Verbosity = fVerbosity
		case "kernel":     img.Config.Kernel = fKernel
		case "pixfrac":    img.Config.Pixfrac = fPixfrac
		case "scale":      img.Config.OutputScale = fOutputScale
		case "interp":     img.Config.Interp = fInterp
		case "weighttype": img.Config.WeightType = calib.WeightType(fWeightType)
		case "units":      img.Config.Units = drizzle.Units(fUnits)
		case "detector":   img.Config.Detector = fDetector
		case "gain":       img.Config.Gain = fGain
		case "readnoise":  img.Config.ReadNoise = fReadNoise
		case "workers":    img.Config.Workers = fWorkers
		case "tonemapper": img.Config.Tonemapper = fTonemapper
		case "outdir":     img.Config.OutputDir = fOutputDir
		}
	})

	if img.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", img.Config.AsYaml())
	}

	if err := img.Run(); err != nil {
		log.Fatal(err)
	}
	if err := img.WriteOutputs(); err != nil {
		log.Fatal(err)
	}
}
