package solver

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead minimises the sum of squared residuals without derivatives. It is the fallback
// when GaussNewton cannot make progress (e.g. a singular Jacobian on a degenerate smile).
func NelderMead(f Residuals, initial []float64, tol float64, maxIter int) (Fit, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return sumSquares(f(x))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if err != nil && result == nil {
		return Fit{}, fmt.Errorf("NelderMead: %w", err)
	}
	fit := Fit{
		Params:     append([]float64(nil), result.X...),
		SSE:        result.F,
		Iterations: result.MajorIterations,
	}
	if err != nil {
		return fit, fmt.Errorf("NelderMead: %w", err)
	}
	if !isFinite(fit.SSE) {
		return fit, fmt.Errorf("NelderMead: non-finite objective at solution")
	}
	return fit, nil
}

// LeastSquares runs GaussNewton and falls back to NelderMead from the same starting point when
// the Gauss-Newton iteration fails. The better of the two results is returned. When both fail
// the error wraps both causes and no fit is returned.
func LeastSquares(f Residuals, initial []float64, tol, jacobianBump float64, maxIter int) (Fit, error) {
	return leastSquares(
		func() (Fit, error) { return GaussNewton(f, initial, tol, jacobianBump, maxIter) },
		func() (Fit, error) { return NelderMead(f, initial, tol, 20*maxIter) },
	)
}

func leastSquares(gaussNewton, nelderMead func() (Fit, error)) (Fit, error) {
	gn, gnErr := gaussNewton()
	if gnErr == nil {
		return gn, nil
	}
	nm, nmErr := nelderMead()
	if nmErr != nil {
		return Fit{}, fmt.Errorf("LeastSquares: %w; fallback: %w", gnErr, nmErr)
	}
	if gn.Params != nil && isFinite(gn.SSE) && gn.SSE < nm.SSE {
		return gn, nil
	}
	return nm, nil
}
