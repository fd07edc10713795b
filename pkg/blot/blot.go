// Package blot resamples a combined image back onto the grid of one of
// the exposures that went into it, so the two can be compared.
package blot

import(
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/SaOgaz/drizzlepac/pkg/emath"
	"github.com/SaOgaz/drizzlepac/pkg/kernel"
	"github.com/SaOgaz/drizzlepac/pkg/pixmap"
)

var ErrUnknownInterp = errors.New("unknown interpolation")

type Options struct {
	Interp            string
	ExposureTimeRatio float64  // target exposure time over combined exposure time
	Fill              float64  // for pixels whose stencil falls off the image
	Workers           int      // <= 0 means one per CPU
}

func DefaultOptions() Options {
	return Options{Interp: "poly5", ExposureTimeRatio: 1.0}
}

// A stencil fills `w` with the 1-D interpolation weights for position v,
// and returns the index of the sample that w[0] applies to.
type stencil struct {
	taps    int
	weights func(v float64, w []float64) int
}

var interps = map[string]stencil{
	"nearest": {1, nearest},
	"linear":  {2, linear},
	"poly3":   {4, lagrange(4)},
	"poly5":   {6, lagrange(6)},
	"lan3":    {6, lanczos(3)},
	"lan5":    {10, lanczos(5)},
}

// InterpNames lists the known interpolations, sorted.
func InterpNames() []string {
	ret := []string{}
	for name := range interps {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func lookup(name string) (stencil, error) {
	if name == "bilinear" { name = "linear" }
	if s, exists := interps[name]; exists {
		return s, nil
	}
	return stencil{}, fmt.Errorf("%w '%s', wanted one of %v", ErrUnknownInterp, name, InterpNames())
}

func nearest(v float64, w []float64) int {
	w[0] = 1.0
	return int(math.Floor(v + 0.5))
}

func linear(v float64, w []float64) int {
	i := math.Floor(v)
	f := v - i
	w[0], w[1] = 1.0-f, f
	return int(i)
}

// lagrange interpolates through n samples, centred on v.
func lagrange(n int) func(float64, []float64) int {
	return func(v float64, w []float64) int {
		i0 := math.Floor(v) - float64(n/2 - 1)
		for k:=0; k<n; k++ {
			xk := i0 + float64(k)
			w[k] = 1.0
			for m:=0; m<n; m++ {
				if m == k { continue }
				xm := i0 + float64(m)
				w[k] *= (v - xm) / (xk - xm)
			}
		}
		return int(i0)
	}
}

// lanczos weights are normalised to sum to one; tiny weights are zeroed,
// so that an exactly-aligned sample never reaches off the image.
func lanczos(a int) func(float64, []float64) int {
	return func(v float64, w []float64) int {
		i0 := math.Floor(v) - float64(a-1)
		sum := 0.0
		for k := range w {
			w[k] = kernel.Lanczos(a, v - (i0 + float64(k)))
			if math.Abs(w[k]) < kernel.MinWeight { w[k] = 0 }
			sum += w[k]
		}
		for k := range w {
			w[k] /= sum
		}
		return int(i0)
	}
}

// Resample samples `combined` at every position of the inverse mapping,
// which gives, for each target pixel, where it sits on the combined grid.
// The output has the mapping's shape. Pixels whose interpolation stencil
// needs a sample from off the image, or whose mapping is NaN, get
// opts.Fill. Everything is scaled by opts.ExposureTimeRatio.
func Resample(combined emath.FloatGrid, inv *pixmap.Map, opts Options) (emath.FloatGrid, error) {
	s, err := lookup(opts.Interp)
	if err != nil {
		return emath.FloatGrid{}, err
	}
	if combined.Len() == 0 {
		return emath.FloatGrid{}, fmt.Errorf("blot: empty image: %w", pixmap.ErrShapeMismatch)
	}
	if inv == nil {
		return emath.FloatGrid{}, fmt.Errorf("blot: nil mapping: %w", pixmap.ErrShapeMismatch)
	}
	if math.IsNaN(opts.ExposureTimeRatio) || math.IsInf(opts.ExposureTimeRatio, 0) {
		return emath.FloatGrid{}, fmt.Errorf("blot: exposure time ratio %v is not finite", opts.ExposureTimeRatio)
	}

	out := emath.NewFloatGrid(inv.Cols(), inv.Rows())

	nWorkers := opts.Workers
	if nWorkers <= 0 { nWorkers = runtime.NumCPU() }
	if nWorkers > inv.Rows() { nWorkers = inv.Rows() }

	var wg sync.WaitGroup
	rowsChan := make(chan int, inv.Rows())

	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wx, wy := make([]float64, s.taps), make([]float64, s.taps)
			for row := range rowsChan {
				for col:=0; col<inv.Cols(); col++ {
					x, y := inv.At(col, row)
					out.Set(col, row, sample(&combined, s, x, y, wx, wy, opts))
				}
			}
		}()
	}

	for row:=0; row<inv.Rows(); row++ {
		rowsChan<- row
	}
	close(rowsChan)
	wg.Wait()

	return out, nil
}

func sample(img *emath.FloatGrid, s stencil, x, y float64, wx, wy []float64, opts Options) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return opts.Fill
	}
	i0 := s.weights(x, wx)
	j0 := s.weights(y, wy)

	v := 0.0
	for b:=0; b<s.taps; b++ {
		if wy[b] == 0 { continue }
		for a:=0; a<s.taps; a++ {
			if wx[a] == 0 { continue }
			if !img.In(i0+a, j0+b) {
				return opts.Fill
			}
			v += wx[a] * wy[b] * img.Get(i0+a, j0+b)
		}
	}
	return v * opts.ExposureTimeRatio
}
