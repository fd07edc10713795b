package combine

import(
	"fmt"
	"log"
	"math"
	"path/filepath"

	"github.com/codahale/hdrhistogram"
	"github.com/skypies/util/histogram"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
)

// Differences are held in the hdrhistogram as integer micro-units.
const diffUnits = 1e6

// LayerComparison says how well the blotted image agrees with the layer it
// was blotted onto. Only pixels the layer actually contributed (weight > 0)
// and the blot covered are compared.
type LayerComparison struct {
	N            int
	Median       float64  // of the absolute differences
	P99          float64  // approximate, to 3 significant figures
	Max          float64
}

func (lc LayerComparison)String() string {
	if lc.N == 0 {
		return "cmp[no overlap]"
	}
	return fmt.Sprintf("cmp[n=%d, median=%.3g, p99=%.3g, max=%.3g]", lc.N, lc.Median, lc.P99, lc.Max)
}

// Compare diffs the original science values against the blotted ones.
func Compare(cfg Config, name string, orig, weight, blotted emath.FloatGrid) LayerComparison {
	if !orig.SameSize(blotted) {
		return LayerComparison{}
	}

	a := make([]float64, orig.Len())
	b := blotted.Values()
	for i, v := range orig.Values() {
		if weight.SameSize(orig) && !(weight.Values()[i] > 0) {
			v = math.NaN()
		}
		a[i] = v
	}

	diffs := emath.AbsDiffs(a, b)
	lc := LayerComparison{N: len(diffs)}
	if lc.N == 0 {
		return lc
	}
	lc.Median = emath.Median(diffs)
	lc.Max = emath.MaxOf(diffs)

	h := hdrhistogram.New(0, int64(1e12), 3)
	digits := histogram.Histogram{NumBuckets:17, ValMin:0, ValMax:17}
	for _, d := range diffs {
		h.RecordValue(int64(math.Min(d*diffUnits, 1e12)))
		digits.Add(histogram.ScalarVal(agreementDigits(d)))
	}
	lc.P99 = float64(h.ValueAtQuantile(99)) / diffUnits

	if cfg.Verbosity > 0 {
		log.Printf("%s: digits of agreement\n%v", name, &digits)

		diff := orig.NewFromThis()
		for y:=0; y<orig.Dy(); y++ {
			for x:=0; x<orig.Dx(); x++ {
				i := y*orig.Dx() + x
				diff.Set(x, y, math.Abs(a[i] - b[i]))
			}
		}
		filename := filepath.Join(cfg.OutputDir, fmt.Sprintf("diff-%s.png", name))
		if err := diff.ToImg(fmt.Sprintf("%s %s", name, lc), filename); err != nil {
			log.Printf("diff image %s: %v", filename, err)
		}
	}

	return lc
}

// agreementDigits is roughly how many decimal places two values agree to.
func agreementDigits(d float64) int {
	if d <= 0 {
		return 16
	}
	n := int(math.Floor(-math.Log10(d)))
	if n < 0 { n = 0 }
	if n > 16 { n = 16 }
	return n
}
