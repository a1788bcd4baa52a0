// Package interpolation provides the one- and two-dimensional interpolators that vol surfaces
// are assembled from.
package interpolation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
)

// Kind selects an interpolation rule.
type Kind int

const (
	// Linear interpolates linearly and extrapolates along the end segments.
	Linear Kind = iota
	// LinearFlat interpolates linearly and holds the end values flat outside the range.
	LinearFlat
	// NextValue returns the ordinate of the first abscissa at or after x.
	NextValue
	// LinearInVariance treats xs as times and ys as vols; total variance ys^2*xs is linear in
	// time, with flat vol extrapolation on both sides.
	LinearInVariance
	// GaussianKernel is a Nadaraya-Watson smoother with bandwidth equal to the mean spacing.
	GaussianKernel
	// CubicSpline is a natural cubic spline, flat outside the range.
	CubicSpline
)

var kindNames = map[Kind]string{
	Linear:           "Linear",
	LinearFlat:       "LinearFlat",
	NextValue:        "NextValue",
	LinearInVariance: "LinearInVariance",
	GaussianKernel:   "GaussianKernel",
	CubicSpline:      "CubicSpline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of String, case-insensitive.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("interpolation: unknown kind %q", s)
}

// Interpolator is a 1-D interpolant over sorted abscissae.
type Interpolator interface {
	Interpolate(x float64) float64
	FirstDerivative(x float64) float64
	SecondDerivative(x float64) float64
	Average(xs []float64) float64
}

// New builds an interpolator. xs must be strictly increasing and the same length as ys.
// The inputs are copied.
func New(xs, ys []float64, kind Kind) (Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolation: %d abscissae vs %d ordinates", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("interpolation: no points")
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("interpolation: abscissae not strictly increasing at %d", i)
		}
	}
	x := append([]float64(nil), xs...)
	y := append([]float64(nil), ys...)

	switch kind {
	case Linear:
		return &linear{xs: x, ys: y}, nil
	case LinearFlat:
		return &linear{xs: x, ys: y, flat: true}, nil
	case NextValue:
		return &nextValue{xs: x, ys: y}, nil
	case LinearInVariance:
		return newLinearInVariance(x, y)
	case GaussianKernel:
		return newGaussianKernel(x, y), nil
	case CubicSpline:
		return newCubicSpline(x, y)
	default:
		return nil, fmt.Errorf("interpolation: unsupported kind %v", kind)
	}
}

// MustNew is New for inputs already validated by the caller.
func MustNew(xs, ys []float64, kind Kind) Interpolator {
	in, err := New(xs, ys, kind)
	if err != nil {
		panic(err)
	}
	return in
}

func average(in Interpolator, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += in.Interpolate(x)
	}
	return s / float64(len(xs))
}

// numeric derivatives for the kinds without closed forms
func numericFirst(f func(float64) float64, x float64) float64 {
	return fd.Derivative(f, x, &fd.Settings{Formula: fd.Central})
}

func numericSecond(f func(float64) float64, x float64) float64 {
	return fd.Derivative(f, x, &fd.Settings{Formula: fd.Central2nd})
}
