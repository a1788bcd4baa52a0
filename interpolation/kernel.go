package interpolation

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/interp"
)

type gaussianKernel struct {
	xs, ys    []float64
	bandwidth float64
}

func newGaussianKernel(xs, ys []float64) *gaussianKernel {
	bw := 1.0
	if n := len(xs); n > 1 {
		bw = (xs[n-1] - xs[0]) / float64(n-1)
	}
	return &gaussianKernel{xs: xs, ys: ys, bandwidth: bw}
}

func (g *gaussianKernel) Interpolate(x float64) float64 {
	num, den := 0.0, 0.0
	for i, xi := range g.xs {
		u := (x - xi) / g.bandwidth
		w := math.Exp(-0.5 * u * u)
		num += w * g.ys[i]
		den += w
	}
	if den == 0 {
		// far outside the data every weight underflows; hold the nearest end
		if x < g.xs[0] {
			return g.ys[0]
		}
		return g.ys[len(g.ys)-1]
	}
	return num / den
}

func (g *gaussianKernel) FirstDerivative(x float64) float64  { return numericFirst(g.Interpolate, x) }
func (g *gaussianKernel) SecondDerivative(x float64) float64 { return numericSecond(g.Interpolate, x) }
func (g *gaussianKernel) Average(xs []float64) float64       { return average(g, xs) }

// cubicSpline wraps gonum's natural cubic spline. Fewer than three points degrade to linear.
type cubicSpline struct {
	spline   *interp.NaturalCubic
	fallback *linear
}

func newCubicSpline(xs, ys []float64) (*cubicSpline, error) {
	if len(xs) < 3 {
		return &cubicSpline{fallback: &linear{xs: xs, ys: ys, flat: true}}, nil
	}
	var nc interp.NaturalCubic
	if err := nc.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &cubicSpline{spline: &nc}, nil
}

func (c *cubicSpline) Interpolate(x float64) float64 {
	if c.fallback != nil {
		return c.fallback.Interpolate(x)
	}
	return c.spline.Predict(x)
}

func (c *cubicSpline) FirstDerivative(x float64) float64 {
	if c.fallback != nil {
		return c.fallback.FirstDerivative(x)
	}
	return c.spline.PredictDerivative(x)
}

func (c *cubicSpline) SecondDerivative(x float64) float64 {
	if c.fallback != nil {
		return 0
	}
	return fd.Derivative(c.spline.PredictDerivative, x, &fd.Settings{Formula: fd.Central})
}

func (c *cubicSpline) Average(xs []float64) float64 { return average(c, xs) }
