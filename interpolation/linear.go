package interpolation

import (
	"math"
	"sort"

	"github.com/meenmo/volib/utils"
)

type linear struct {
	xs, ys []float64
	flat   bool
}

func (l *linear) Interpolate(x float64) float64 {
	n := len(l.xs)
	if n == 1 {
		return l.ys[0]
	}
	if l.flat {
		if x <= l.xs[0] {
			return l.ys[0]
		}
		if x >= l.xs[n-1] {
			return l.ys[n-1]
		}
	}
	i := utils.BracketIndex(l.xs, x)
	w := (x - l.xs[i]) / (l.xs[i+1] - l.xs[i])
	return l.ys[i] + w*(l.ys[i+1]-l.ys[i])
}

func (l *linear) FirstDerivative(x float64) float64 {
	n := len(l.xs)
	if n == 1 {
		return 0
	}
	if l.flat && (x < l.xs[0] || x > l.xs[n-1]) {
		return 0
	}
	i := utils.BracketIndex(l.xs, x)
	return (l.ys[i+1] - l.ys[i]) / (l.xs[i+1] - l.xs[i])
}

func (l *linear) SecondDerivative(float64) float64 { return 0 }

func (l *linear) Average(xs []float64) float64 { return average(l, xs) }

type nextValue struct {
	xs, ys []float64
}

func (nv *nextValue) Interpolate(x float64) float64 {
	i := sort.SearchFloat64s(nv.xs, x)
	if i >= len(nv.xs) {
		return nv.ys[len(nv.ys)-1]
	}
	return nv.ys[i]
}

func (nv *nextValue) FirstDerivative(float64) float64  { return 0 }
func (nv *nextValue) SecondDerivative(float64) float64 { return 0 }
func (nv *nextValue) Average(xs []float64) float64     { return average(nv, xs) }

// linearInVariance interpolates sigma(t) so that sigma(t)^2 * t is piecewise linear in t.
type linearInVariance struct {
	ts, vols, variances []float64
}

func newLinearInVariance(ts, vols []float64) (*linearInVariance, error) {
	lv := &linearInVariance{ts: ts, vols: vols, variances: make([]float64, len(ts))}
	for i, t := range ts {
		lv.variances[i] = vols[i] * vols[i] * t
	}
	return lv, nil
}

func (lv *linearInVariance) Interpolate(t float64) float64 {
	n := len(lv.ts)
	if t <= lv.ts[0] {
		return lv.vols[0]
	}
	if t >= lv.ts[n-1] {
		return lv.vols[n-1]
	}
	i := utils.BracketIndex(lv.ts, t)
	if t == lv.ts[i+1] {
		return lv.vols[i+1]
	}
	w := (t - lv.ts[i]) / (lv.ts[i+1] - lv.ts[i])
	v := lv.variances[i] + w*(lv.variances[i+1]-lv.variances[i])
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v / t)
}

func (lv *linearInVariance) FirstDerivative(t float64) float64 {
	return numericFirst(lv.Interpolate, t)
}

func (lv *linearInVariance) SecondDerivative(t float64) float64 {
	return numericSecond(lv.Interpolate, t)
}

func (lv *linearInVariance) Average(xs []float64) float64 { return average(lv, xs) }
