// Package blackscholes implements European option analytics on a forward (Black-76),
// used throughout the volatility layer as a numerical oracle.
package blackscholes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/solver"
)

// OptionType is call or put.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (o OptionType) String() string {
	if o == Put {
		return "Put"
	}
	return "Call"
}

// sign returns +1 for calls and -1 for puts.
func (o OptionType) sign() float64 {
	if o == Put {
		return -1
	}
	return 1
}

// Greeks holds the price and first/second order sensitivities of a European option.
// Theta is per year, Vega per unit of volatility.
type Greeks struct {
	Price float64
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
}

// NormCDF is the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// NormInv is the standard normal quantile.
func NormInv(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

func d1d2(forward, strike, expTime, vol float64) (float64, float64) {
	sd := vol * math.Sqrt(expTime)
	d1 := (math.Log(forward/strike) + 0.5*sd*sd) / sd
	return d1, d1 - sd
}

// BlackPV returns the discounted Black-76 premium. expTime must be positive.
func BlackPV(forward, strike, riskFreeRate, expTime, vol float64, cp OptionType) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	if vol <= 0 {
		return df * math.Max(cp.sign()*(forward-strike), 0)
	}
	d1, d2 := d1d2(forward, strike, expTime, vol)
	psi := cp.sign()
	return df * psi * (forward*NormCDF(psi*d1) - strike*NormCDF(psi*d2))
}

// BlackDelta returns the forward delta e^{-rT} N(d1) for calls and -e^{-rT} N(-d1) for puts.
func BlackDelta(forward, strike, riskFreeRate, expTime, vol float64, cp OptionType) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	d1, _ := d1d2(forward, strike, expTime, vol)
	psi := cp.sign()
	return df * psi * NormCDF(psi*d1)
}

// BlackGamma returns the forward gamma (identical for calls and puts).
func BlackGamma(forward, strike, riskFreeRate, expTime, vol float64) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	d1, _ := d1d2(forward, strike, expTime, vol)
	return df * NormPDF(d1) / (forward * vol * math.Sqrt(expTime))
}

// BlackVega returns dPV/dvol (identical for calls and puts).
func BlackVega(forward, strike, riskFreeRate, expTime, vol float64) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	d1, _ := d1d2(forward, strike, expTime, vol)
	return df * forward * NormPDF(d1) * math.Sqrt(expTime)
}

// BlackTheta returns dPV/dt (calendar time passing, forward held fixed).
func BlackTheta(forward, strike, riskFreeRate, expTime, vol float64, cp OptionType) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	d1, _ := d1d2(forward, strike, expTime, vol)
	decay := -df * forward * NormPDF(d1) * vol / (2 * math.Sqrt(expTime))
	return decay + riskFreeRate*BlackPV(forward, strike, riskFreeRate, expTime, vol, cp)
}

// BlackGreeks returns price, delta, gamma, vega and theta in one pass.
func BlackGreeks(forward, strike, riskFreeRate, expTime, vol float64, cp OptionType) Greeks {
	return Greeks{
		Price: BlackPV(forward, strike, riskFreeRate, expTime, vol, cp),
		Delta: BlackDelta(forward, strike, riskFreeRate, expTime, vol, cp),
		Gamma: BlackGamma(forward, strike, riskFreeRate, expTime, vol),
		Vega:  BlackVega(forward, strike, riskFreeRate, expTime, vol),
		Theta: BlackTheta(forward, strike, riskFreeRate, expTime, vol, cp),
	}
}

// BlackDigitalPV returns the discounted cash-or-nothing premium, e^{-rT} N(d2) for calls and
// e^{-rT} N(-d2) for puts. Undiscounted it is the risk-neutral exercise probability.
func BlackDigitalPV(forward, strike, riskFreeRate, expTime, vol float64, cp OptionType) float64 {
	df := math.Exp(-riskFreeRate * expTime)
	_, d2 := d1d2(forward, strike, expTime, vol)
	return df * NormCDF(cp.sign()*d2)
}

// AbsoluteStrikefromDeltaKAnalytic inverts BlackDelta in closed form. A positive delta is a
// call delta, a negative delta a put delta.
func AbsoluteStrikefromDeltaKAnalytic(forward, delta, riskFreeRate, expTime, vol float64) float64 {
	psi := 1.0
	if delta < 0 {
		psi = -1
	}
	sqrtT := math.Sqrt(expTime)
	q := NormInv(psi * delta * math.Exp(riskFreeRate*expTime))
	return forward * math.Exp(-psi*vol*sqrtT*q+0.5*vol*vol*expTime)
}

// BlackImpliedVol inverts BlackPV for volatility with a bracketed root search over the
// configured implied vol range ([1e-9, 5] by default).
func BlackImpliedVol(forward, strike, riskFreeRate, expTime, premium float64, cp OptionType) (float64, error) {
	if expTime <= 0 {
		return 0, fmt.Errorf("BlackImpliedVol: expTime must be positive")
	}
	c := config.GetConfig()
	f := func(v float64) float64 {
		return BlackPV(forward, strike, riskFreeRate, expTime, v, cp) - premium
	}
	vol, err := solver.Brent(f, c.ImpliedVolLower, c.ImpliedVolUpper, c.BrentTolerance, c.BrentMaxIterations)
	if err != nil {
		return 0, fmt.Errorf("BlackImpliedVol: %w", err)
	}
	return vol, nil
}
