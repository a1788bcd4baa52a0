package smile_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/volib/smile"
)

func TestSABRLognormalFlat(t *testing.T) {
	t.Parallel()

	// beta=1 with no vol-of-vol is Black with vol alpha.
	p := smile.SABRParams{Alpha: 0.25, Beta: 1, Rho: 0, Nu: 0}
	for _, k := range []float64{50, 90, 100, 120, 200} {
		assert.InDelta(t, 0.25, smile.SABRVol(k, 100, 2, p), 1e-12, "k=%v", k)
	}
}

func TestSABRContinuousAtTheMoney(t *testing.T) {
	t.Parallel()

	p := smile.SABRParams{Alpha: 0.3, Beta: 0.6, Rho: -0.35, Nu: 0.8}
	atm := smile.SABRVol(100, 100, 1.5, p)
	near := smile.SABRVol(100*(1+1e-9), 100, 1.5, p)
	assert.InDelta(t, atm, near, 1e-8)
}

func TestSABRSkewFollowsRho(t *testing.T) {
	t.Parallel()

	p := smile.SABRParams{Alpha: 0.2, Beta: 1, Rho: -0.5, Nu: 0.6}
	lo := smile.SABRVol(80, 100, 1, p)
	hi := smile.SABRVol(120, 100, 1, p)
	assert.Greater(t, lo, hi)

	p.Rho = 0.5
	lo = smile.SABRVol(80, 100, 1, p)
	hi = smile.SABRVol(120, 100, 1, p)
	assert.Less(t, lo, hi)
}

func TestSVIFlat(t *testing.T) {
	t.Parallel()

	// b=0 collapses SVI to a flat total variance a.
	p := smile.SVIParams{A: 0.09 * 2, B: 0, Rho: 0, M: 0, Sigma: 0.1}
	for _, k := range []float64{50, 100, 150} {
		assert.InDelta(t, 0.3, smile.SVIVol(k, 100, 2, p), 1e-14)
	}
}

func TestSVIMinimumAtVertex(t *testing.T) {
	t.Parallel()

	p := smile.SVIParams{A: 0.02, B: 0.1, Rho: 0, M: 0.05, Sigma: 0.2}
	at := smile.SVITotalVariance(0.05, p)
	assert.InDelta(t, 0.02+0.1*0.2, at, 1e-15)
	assert.Greater(t, smile.SVITotalVariance(0.3, p), at)
	assert.Greater(t, smile.SVITotalVariance(-0.2, p), at)

	k := math.Log(110.0 / 100.0)
	assert.InDelta(t, math.Sqrt(smile.SVITotalVariance(k, p)/0.5), smile.SVIVol(110, 100, 0.5, p), 1e-15)
}

func TestSVIVolUndefinedForNegativeVariance(t *testing.T) {
	t.Parallel()

	p := smile.SVIParams{A: -0.05, B: 0.1, Rho: 0, M: 0, Sigma: 0.1}
	assert.True(t, math.IsNaN(smile.SVIVol(100, 100, 1, p)))
	assert.True(t, math.IsNaN(smile.SVIVol(300, 100, 0, smile.SVIParams{A: 0.04, Sigma: 0.1})))
	assert.False(t, math.IsNaN(smile.SVIVol(300, 100, 1, p)))
}
