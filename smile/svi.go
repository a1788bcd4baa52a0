package smile

import "math"

// SVIParams are the raw SVI parameters of a single expiry:
// w(k) = A + B*(Rho*(k-M) + sqrt((k-M)^2 + Sigma^2)), k = ln(K/F).
type SVIParams struct {
	A     float64
	B     float64
	Rho   float64
	M     float64
	Sigma float64
}

// Vector returns the parameters in (a, b, rho, m, sigma) order.
func (p SVIParams) Vector() []float64 {
	return []float64{p.A, p.B, p.Rho, p.M, p.Sigma}
}

// SVIFromVector is the inverse of Vector.
func SVIFromVector(v []float64) SVIParams {
	return SVIParams{A: v[0], B: v[1], Rho: v[2], M: v[3], Sigma: v[4]}
}

// SVITotalVariance returns w(k) for log-moneyness k.
func SVITotalVariance(k float64, p SVIParams) float64 {
	km := k - p.M
	return p.A + p.B*(p.Rho*km+math.Sqrt(km*km+p.Sigma*p.Sigma))
}

// SVIVol returns the implied volatility sqrt(w/T). It is NaN where raw SVI gives a negative
// total variance (arbitrageable parameter sets) and for a non-positive expTime.
func SVIVol(strike, forward, expTime float64, p SVIParams) float64 {
	w := SVITotalVariance(math.Log(strike/forward), p)
	if w < 0 || expTime <= 0 {
		return math.NaN()
	}
	return math.Sqrt(w / expTime)
}
