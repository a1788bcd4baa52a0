// Package solver holds the bracketed root finder and least-squares fitters used by surface
// calibration and strike/delta inversion.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotBracketed is returned when f(lo) and f(hi) have the same sign.
	ErrNotBracketed = errors.New("solver: root not bracketed")
	// ErrMaxIterations is returned when a solve exhausts its iteration budget.
	ErrMaxIterations = errors.New("solver: maximum iterations exceeded")
	// ErrSingular is returned when a least-squares step cannot be solved.
	ErrSingular = errors.New("solver: singular jacobian")
	// ErrRootOnBoundary is returned by callers that reject a root sitting on the bracket edge.
	ErrRootOnBoundary = errors.New("solver: root on bracket boundary")
)

const machineEpsilon = 2.220446049250313e-16

// Brent finds x in [lo, hi] with f(x) = 0 using Brent's method (inverse quadratic
// interpolation with bisection safeguard). f(lo) and f(hi) must differ in sign.
func Brent(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	a, b := lo, hi
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, fmt.Errorf("Brent: objective is NaN at bracket ends: %w", ErrNotBracketed)
	}
	if fa*fb > 0 {
		return 0, fmt.Errorf("Brent: f(%g)=%g, f(%g)=%g: %w", lo, fa, hi, fb, ErrNotBracketed)
	}

	c, fc := a, fa
	d := b - a
	e := d

	for iter := 0; iter < maxIter; iter++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*machineEpsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				// secant
				p = 2 * xm * s
				q = 1 - s
			} else {
				// inverse quadratic
				qq := fa / fc
				r := fb / fc
				p = s * (2*xm*qq*(qq-r) - (b-a)*(r-1))
				q = (qq - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else if xm > 0 {
			b += tol1
		} else {
			b -= tol1
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return b, fmt.Errorf("Brent: objective is NaN at %g", b)
		}
	}
	return b, fmt.Errorf("Brent: %d iterations: %w", maxIter, ErrMaxIterations)
}

// BrentStrict behaves like Brent but also fails with ErrRootOnBoundary when the solution sits
// on either end of the bracket, which signals that the true root lies outside it.
func BrentStrict(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	x, err := Brent(f, lo, hi, tol, maxIter)
	if err != nil {
		return x, err
	}
	if x == lo || x == hi {
		return x, fmt.Errorf("Brent: solution %g on [%g, %g]: %w", x, lo, hi, ErrRootOnBoundary)
	}
	return x, nil
}
