// Package smile holds closed-form smile parameterisations.
package smile

import "math"

// SABRParams are the Stochastic-Alpha-Beta-Rho parameters of a single expiry.
type SABRParams struct {
	Alpha float64
	Beta  float64
	Rho   float64
	Nu    float64
}

// Vector returns the parameters in (alpha, beta, rho, nu) order.
func (p SABRParams) Vector() []float64 {
	return []float64{p.Alpha, p.Beta, p.Rho, p.Nu}
}

// SABRFromVector is the inverse of Vector.
func SABRFromVector(v []float64) SABRParams {
	return SABRParams{Alpha: v[0], Beta: v[1], Rho: v[2], Nu: v[3]}
}

// SABRVol returns Hagan's lognormal implied volatility approximation.
func SABRVol(strike, forward, expTime float64, p SABRParams) float64 {
	alpha, beta, rho, nu := p.Alpha, p.Beta, p.Rho, p.Nu
	omb := 1 - beta

	fk := forward * strike
	fkBeta := math.Pow(fk, 0.5*omb)
	logFK := math.Log(forward / strike)

	correction := 1 + (omb*omb/24*alpha*alpha/(fkBeta*fkBeta)+
		0.25*rho*beta*nu*alpha/fkBeta+
		(2-3*rho*rho)/24*nu*nu)*expTime

	if math.Abs(logFK) < 1e-12 {
		return alpha / math.Pow(forward, omb) * correction
	}

	z := nu / alpha * fkBeta * logFK
	denom := fkBeta * (1 + omb*omb/24*logFK*logFK + math.Pow(omb, 4)/1920*math.Pow(logFK, 4))

	return alpha / denom * zOverX(z, rho) * correction
}

// zOverX evaluates z/x(z), with its limit 1 as z -> 0.
func zOverX(z, rho float64) float64 {
	if math.Abs(z) < 1e-10 {
		return 1 - 0.5*rho*z
	}
	x := math.Log((math.Sqrt(1-2*rho*z+z*z) + z - rho) / (1 - rho))
	return z / x
}
