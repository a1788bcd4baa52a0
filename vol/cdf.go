package vol

import (
	"fmt"
	"math"

	"github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/solver"
)

const (
	minSampleDelta = 0.0001
	maxSampleDelta = 0.9999
	// strikeBump is the relative strike step of the price finite differences.
	strikeBump = 1e-4
)

// Distribution samples the risk-neutral distribution implied by a smile at one maturity.
// PDF values are normalised to sum to one over the samples.
type Distribution struct {
	Strikes []float64
	CDF     []float64
	PDF     []float64
}

// smileCall is the undiscounted call price with the smile vol at strike.
func smileCall(s Surface, strike, maturity, forward float64) (float64, error) {
	v, err := s.GetVolForAbsoluteStrike(strike, maturity, forward)
	if err != nil {
		return 0, err
	}
	return blackscholes.BlackPV(forward, strike, 0, maturity, v, blackscholes.Call), nil
}

// smileCallStencil returns C(K-h), C(K), C(K+h) and h.
func smileCallStencil(s Surface, strike, maturity, forward float64) (lo, mid, hi, h float64, err error) {
	h = strike * strikeBump
	if lo, err = smileCall(s, strike-h, maturity, forward); err != nil {
		return
	}
	if mid, err = smileCall(s, strike, maturity, forward); err != nil {
		return
	}
	hi, err = smileCall(s, strike+h, maturity, forward)
	return
}

// SampleDistribution samples strikes at call deltas from 0.01% to 99.99% (converted with the ATM
// vol) and differentiates smile call prices in strike: the CDF is one minus the digital
// -dC/dK and the density is d2C/dK2. numSamples <= 0 uses the configured CDFSamples.
func SampleDistribution(s Surface, maturity, forward float64, numSamples int) (*Distribution, error) {
	if numSamples <= 0 {
		numSamples = config.GetConfig().CDFSamples
	}
	if numSamples < 3 || maturity <= 0 || forward <= 0 {
		return nil, fmt.Errorf("SampleDistribution: %w: samples %d, maturity %g, forward %g", ErrInvalidInput, numSamples, maturity, forward)
	}
	atm, err := s.GetVolForAbsoluteStrike(forward, maturity, forward)
	if err != nil {
		return nil, fmt.Errorf("SampleDistribution: %w", err)
	}

	d := &Distribution{
		Strikes: make([]float64, 0, numSamples),
		CDF:     make([]float64, 0, numSamples),
		PDF:     make([]float64, 0, numSamples),
	}
	step := (maxSampleDelta - minSampleDelta) / float64(numSamples-1)
	total := 0.0
	for i := 0; i < numSamples; i++ {
		// descending call delta gives ascending strikes
		delta := maxSampleDelta - float64(i)*step
		k := blackscholes.AbsoluteStrikefromDeltaKAnalytic(forward, delta, 0, maturity, atm)
		if n := len(d.Strikes); n > 0 && !(k > d.Strikes[n-1]) {
			continue
		}
		lo, mid, hi, h, err := smileCallStencil(s, k, maturity, forward)
		if err != nil {
			return nil, fmt.Errorf("SampleDistribution: strike %g: %w", k, err)
		}
		digital := -(hi - lo) / (2 * h)
		density := math.Max((hi-2*mid+lo)/(h*h), 0)
		d.Strikes = append(d.Strikes, k)
		d.CDF = append(d.CDF, math.Min(math.Max(1-digital, 0), 1))
		d.PDF = append(d.PDF, density)
		total += density
	}
	if total <= 0 {
		return nil, fmt.Errorf("SampleDistribution: %w: zero density", ErrInvalidInput)
	}
	for i := range d.PDF {
		d.PDF[i] /= total
	}
	return d, nil
}

// GenerateCDF returns strike -> cumulative probability, flat outside the sampled strikes.
func GenerateCDF(s Surface, maturity, forward float64, numSamples int) (interpolation.Interpolator, error) {
	d, err := SampleDistribution(s, maturity, forward, numSamples)
	if err != nil {
		return nil, err
	}
	return interpolation.New(d.Strikes, d.CDF, interpolation.LinearFlat)
}

// GeneratePDF returns strike -> normalised density, flat outside the sampled strikes.
func GeneratePDF(s Surface, maturity, forward float64, numSamples int) (interpolation.Interpolator, error) {
	d, err := SampleDistribution(s, maturity, forward, numSamples)
	if err != nil {
		return nil, err
	}
	return interpolation.New(d.Strikes, d.PDF, interpolation.LinearFlat)
}

// CDF returns the smile-implied probability that the underlying finishes below strike.
func CDF(s Surface, maturity, forward, strike float64) (float64, error) {
	if maturity <= 0 || forward <= 0 || strike <= 0 {
		return 0, fmt.Errorf("CDF: %w: maturity %g, forward %g, strike %g", ErrInvalidInput, maturity, forward, strike)
	}
	lo, _, hi, h, err := smileCallStencil(s, strike, maturity, forward)
	if err != nil {
		return 0, fmt.Errorf("CDF: %w", err)
	}
	return math.Min(math.Max(1+(hi-lo)/(2*h), 0), 1), nil
}

// InverseCDF returns the strike at which CDF equals p.
func InverseCDF(s Surface, maturity, forward, p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("InverseCDF: %w: probability %g", ErrInvalidInput, p)
	}
	var cdfErr error
	f := func(k float64) float64 {
		v, err := CDF(s, maturity, forward, k)
		if err != nil {
			cdfErr = err
			return math.NaN()
		}
		return v - p
	}
	c := config.GetConfig()
	k, err := solver.Brent(f, c.StrikeSearchLower, c.StrikeSearchUpperMultiple*forward, c.BrentTolerance, c.BrentMaxIterations)
	if cdfErr != nil {
		return 0, fmt.Errorf("InverseCDF: %w", cdfErr)
	}
	if err != nil {
		return 0, fmt.Errorf("InverseCDF: %w", err)
	}
	return k, nil
}
