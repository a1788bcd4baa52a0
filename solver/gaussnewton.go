package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Residuals maps a parameter vector to a residual vector of fixed length.
type Residuals func(params []float64) []float64

// Fit is the outcome of a least-squares solve.
type Fit struct {
	Params     []float64
	SSE        float64
	Iterations int
}

// GaussNewton minimises the sum of squared residuals starting from initial. The Jacobian is
// built by forward differences with step jacobianBump. Each step is the least-squares solution
// of J*dp = -r; steps that increase the SSE are halved up to ten times before giving up.
func GaussNewton(f Residuals, initial []float64, tol, jacobianBump float64, maxIter int) (Fit, error) {
	n := len(initial)
	if n == 0 {
		return Fit{}, fmt.Errorf("GaussNewton: no parameters")
	}
	p := append([]float64(nil), initial...)
	r := f(p)
	m := len(r)
	if m == 0 {
		return Fit{}, fmt.Errorf("GaussNewton: no residuals")
	}
	sse := sumSquares(r)
	if !isFinite(sse) {
		return Fit{Params: p, SSE: sse}, fmt.Errorf("GaussNewton: non-finite residual at initial guess")
	}

	jac := mat.NewDense(m, n, nil)
	rhs := mat.NewVecDense(m, nil)
	var step mat.VecDense

	for iter := 0; iter < maxIter; iter++ {
		if sse == 0 {
			return Fit{Params: p, SSE: sse, Iterations: iter}, nil
		}

		for j := 0; j < n; j++ {
			bumped := append([]float64(nil), p...)
			h := jacobianBump * math.Max(1, math.Abs(p[j]))
			bumped[j] += h
			rb := f(bumped)
			for i := 0; i < m; i++ {
				jac.Set(i, j, (rb[i]-r[i])/h)
			}
		}
		for i := 0; i < m; i++ {
			rhs.SetVec(i, -r[i])
		}

		if err := step.SolveVec(jac, rhs); err != nil {
			// mat.Condition still carries a usable solution; anything else does not.
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return Fit{Params: p, SSE: sse, Iterations: iter}, fmt.Errorf("GaussNewton: %v: %w", err, ErrSingular)
			}
		}
		if !finiteVec(&step) {
			return Fit{Params: p, SSE: sse, Iterations: iter}, fmt.Errorf("GaussNewton: non-finite step: %w", ErrSingular)
		}

		scale := 1.0
		accepted := false
		var trial, rt []float64
		var sseTrial float64
		for k := 0; k < 10; k++ {
			trial = make([]float64, n)
			for j := 0; j < n; j++ {
				trial[j] = p[j] + scale*step.AtVec(j)
			}
			rt = f(trial)
			sseTrial = sumSquares(rt)
			if isFinite(sseTrial) && sseTrial <= sse {
				accepted = true
				break
			}
			scale *= 0.5
		}
		if !accepted {
			// No descent along the Gauss-Newton direction: p is a (local) minimum.
			return Fit{Params: p, SSE: sse, Iterations: iter + 1}, nil
		}

		maxStep := 0.0
		for j := 0; j < n; j++ {
			maxStep = math.Max(maxStep, math.Abs(trial[j]-p[j]))
		}
		p, r, sse = trial, rt, sseTrial
		if maxStep < tol {
			return Fit{Params: p, SSE: sse, Iterations: iter + 1}, nil
		}
	}
	return Fit{Params: p, SSE: sse, Iterations: maxIter}, fmt.Errorf("GaussNewton: %w", ErrMaxIterations)
}

func sumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if !isFinite(v.AtVec(i)) {
			return false
		}
	}
	return true
}
