// Package localvol derives Dupire local variance from an implied-vol surface on a strike/time
// grid, either from total implied variance in log-moneyness or from smile call prices.
package localvol

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/vol"
)

// Method selects the local-variance formula.
type Method int

const (
	// TotalVariance differentiates w = vol^2 * T in log-moneyness y = ln(K/F).
	TotalVariance Method = iota
	// CallPrices differentiates undiscounted smile call prices in strike and time.
	CallPrices
)

func (m Method) String() string {
	if m == CallPrices {
		return "CallPrices"
	}
	return "TotalVariance"
}

// ForwardFunc returns the forward price for delivery at t years.
type ForwardFunc func(t float64) float64

func validate(strikes [][]float64, times []float64, forward ForwardFunc) error {
	if forward == nil {
		return fmt.Errorf("%w: nil forward function", vol.ErrInvalidInput)
	}
	if len(times) == 0 || len(times) != len(strikes) {
		return fmt.Errorf("%w: %d strike rows for %d times", vol.ErrInvalidInput, len(strikes), len(times))
	}
	for i, t := range times {
		if t <= 0 || (i > 0 && t <= times[i-1]) {
			return fmt.Errorf("%w: times must be positive and strictly increasing", vol.ErrInvalidInput)
		}
		if len(strikes[i]) == 0 {
			return fmt.Errorf("%w: empty strike row at time %g", vol.ErrInvalidInput, t)
		}
		for _, k := range strikes[i] {
			if k <= 0 {
				return fmt.Errorf("%w: strike %g at time %g", vol.ErrInvalidInput, k, t)
			}
		}
		if f := forward(t); !(f > 0) {
			return fmt.Errorf("%w: forward %g at time %g", vol.ErrInvalidInput, f, t)
		}
	}
	return nil
}

// eachRow computes every row of the grid concurrently.
func eachRow(times []float64, row func(i int) ([]float64, error)) ([][]float64, error) {
	out := make([][]float64, len(times))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range times {
		g.Go(func() error {
			r, err := row(i)
			if err != nil {
				return fmt.Errorf("time %g: %w", times[i], err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// totalVariance returns w(y, t) = vol(F*e^y)^2 * t.
func totalVariance(s vol.Surface, y, t, forward float64) (float64, error) {
	v, err := s.GetVolForAbsoluteStrike(forward*math.Exp(y), t, forward)
	if err != nil {
		return 0, err
	}
	return v * v * t, nil
}

// ComputeLocalVarianceOnGrid returns the local variance at strikes[i][j] and times[i] from
// Gatheral's form of Dupire's formula. The moneyness derivatives come from a five point stencil
// of width config LocalVolStencil. dw/dT is a backward difference against the previous time at
// the same log-moneyness, and w/T on the first row. A non-positive or non-finite result falls
// back to the implied variance at that point.
func ComputeLocalVarianceOnGrid(s vol.Surface, strikes [][]float64, times []float64, forward ForwardFunc) ([][]float64, error) {
	if err := validate(strikes, times, forward); err != nil {
		return nil, fmt.Errorf("ComputeLocalVarianceOnGrid: %w", err)
	}
	h := config.GetConfig().LocalVolStencil
	out, err := eachRow(times, func(i int) ([]float64, error) {
		t := times[i]
		f := forward(t)
		row := make([]float64, len(strikes[i]))
		for j, k := range strikes[i] {
			y := math.Log(k / f)
			var w [5]float64
			for n := range w {
				v, err := totalVariance(s, y+float64(n-2)*h, t, f)
				if err != nil {
					return nil, err
				}
				w[n] = v
			}
			w0 := w[2]
			dwdT := w0 / t
			if i > 0 {
				prev, err := totalVariance(s, y, times[i-1], forward(times[i-1]))
				if err != nil {
					return nil, err
				}
				dwdT = (w0 - prev) / (t - times[i-1])
			}
			dwdy := (-w[4] + 8*w[3] - 8*w[1] + w[0]) / (12 * h)
			d2wdy2 := (-w[4] + 16*w[3] - 30*w0 + 16*w[1] - w[0]) / (12 * h * h)
			denom := 1 - y/w0*dwdy + 0.25*(-0.25-1/w0+y*y/(w0*w0))*dwdy*dwdy + 0.5*d2wdy2
			lv := dwdT / denom
			if !(lv > 0) || math.IsInf(lv, 0) {
				lv = w0 / t
			}
			row[j] = lv
		}
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ComputeLocalVarianceOnGrid: %w", err)
	}
	return out, nil
}

// ComputeLocalVarianceOnGridFromCalls returns the local variance from Dupire's price form
//
//	lv = 2 (C_T + mu K C_K - mu C) / (K^2 C_KK),  mu = d ln F / dT,
//
// with central differences of relative width config LocalVolStencil in both strike and time.
// A single-strike row or a vanishing C_KK yields the implied variance.
func ComputeLocalVarianceOnGridFromCalls(s vol.Surface, strikes [][]float64, times []float64, forward ForwardFunc) ([][]float64, error) {
	if err := validate(strikes, times, forward); err != nil {
		return nil, fmt.Errorf("ComputeLocalVarianceOnGridFromCalls: %w", err)
	}
	stencil := config.GetConfig().LocalVolStencil
	call := func(k, t float64) (float64, error) {
		f := forward(t)
		v, err := s.GetVolForAbsoluteStrike(k, t, f)
		if err != nil {
			return 0, err
		}
		return blackscholes.BlackPV(f, k, 0, t, v, blackscholes.Call), nil
	}
	out, err := eachRow(times, func(i int) ([]float64, error) {
		t := times[i]
		f := forward(t)
		dt := stencil * t
		mu := (math.Log(forward(t+dt)) - math.Log(forward(t-dt))) / (2 * dt)
		row := make([]float64, len(strikes[i]))
		for j, k := range strikes[i] {
			v, err := s.GetVolForAbsoluteStrike(k, t, f)
			if err != nil {
				return nil, err
			}
			implied := v * v
			if len(strikes[i]) == 1 {
				row[j] = implied
				continue
			}
			h := k * stencil
			var c [3]float64
			for n := range c {
				if c[n], err = call(k+float64(n-1)*h, t); err != nil {
					return nil, err
				}
			}
			up, err := call(k, t+dt)
			if err != nil {
				return nil, err
			}
			down, err := call(k, t-dt)
			if err != nil {
				return nil, err
			}
			cT := (up - down) / (2 * dt)
			cK := (c[2] - c[0]) / (2 * h)
			cKK := (c[2] - 2*c[1] + c[0]) / (h * h)
			lv := implied
			if denom := k * k * cKK; math.Abs(denom) > 1e-12 {
				lv = 2 * (cT + mu*k*cK - mu*c[1]) / denom
			}
			if !(lv > 0) || math.IsInf(lv, 0) {
				lv = implied
			}
			row[j] = lv
		}
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ComputeLocalVarianceOnGridFromCalls: %w", err)
	}
	return out, nil
}

// BuildLocalVolGrid computes local variance with method, converts it to local vol and stores
// the resulting time-by-strike grid in the surface's local-vol slot.
func BuildLocalVolGrid(s vol.Surface, strikes [][]float64, times []float64, forward ForwardFunc, method Method) (*interpolation.RowGrid, error) {
	compute := ComputeLocalVarianceOnGrid
	if method == CallPrices {
		compute = ComputeLocalVarianceOnGridFromCalls
	}
	lv, err := compute(s, strikes, times, forward)
	if err != nil {
		return nil, err
	}
	vols := make([][]float64, len(lv))
	for i := range lv {
		vols[i] = make([]float64, len(lv[i]))
		for j, v := range lv[i] {
			vols[i][j] = math.Sqrt(v)
		}
	}
	grid, err := interpolation.NewRowGrid(times, strikes, vols, interpolation.LinearFlat)
	if err != nil {
		return nil, fmt.Errorf("BuildLocalVolGrid: %w", err)
	}
	s.SetLocalVolGrid(grid)
	return grid, nil
}
