package emath

import(
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Some functions that only operate on basic types, that are useful

func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

// Median of the non-NaN values; NaN if there are none. Does not modify vals.
func Median(vals []float64) float64 {
	v := make([]float64, 0, len(vals))
	for _, f := range vals {
		if !math.IsNaN(f) {
			v = append(v, f)
		}
	}
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	return stat.Quantile(0.5, stat.Empirical, v, nil)
}

// AbsDiffs returns |a[i]-b[i]| for every i where both are finite.
func AbsDiffs(a, b []float64) []float64 {
	n := len(a)
	if len(b) < n { n = len(b) }
	ret := make([]float64, 0, n)
	for i:=0; i<n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		ret = append(ret, math.Abs(a[i]-b[i]))
	}
	return ret
}

// MaxOf returns the largest value, or 0 for an empty slice.
func MaxOf(vals []float64) float64 {
	if len(vals) == 0 { return 0 }
	max := vals[0]
	for _, f := range vals[1:] {
		if f > max { max = f }
	}
	return max
}
