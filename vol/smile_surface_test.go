package vol_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bs "github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/smile"
	"github.com/meenmo/volib/vol"
)

var smileStrikes = []float64{70, 80, 90, 95, 100, 105, 110, 120, 130}

func sabrQuotes(p smile.SABRParams, forward, tt float64) []float64 {
	out := make([]float64, len(smileStrikes))
	for j, k := range smileStrikes {
		out[j] = smile.SABRVol(k, forward, tt, p)
	}
	return out
}

func TestFitSABRSurfaceRecoversQuotes(t *testing.T) {
	t.Parallel()

	truth := []smile.SABRParams{
		{Alpha: 0.22, Beta: 1, Rho: -0.35, Nu: 0.7},
		{Alpha: 0.24, Beta: 1, Rho: -0.30, Nu: 0.5},
	}
	expiries := []time.Time{sixM, oneY}
	forwards := []float64{100, 101}
	strikes := [][]float64{smileStrikes, smileStrikes}
	vols := make([][]float64, 2)
	for i, e := range expiries {
		vols[i] = sabrQuotes(truth[i], forwards[i], spxTime(e))
	}

	s, err := vol.FitSABRSurface(spxMeta, expiries, forwards, strikes, vols, vol.WithSABRBeta(1))
	require.NoError(t, err)

	for i, e := range expiries {
		tt := s.TimeToMaturity(e)
		for j, k := range smileStrikes {
			v, err := s.GetVolForAbsoluteStrike(k, tt, forwards[i])
			require.NoError(t, err)
			assert.InDelta(t, vols[i][j], v, 1e-6, "expiry %d strike %g", i, k)
		}
		assert.InDelta(t, truth[i].Rho, s.Params()[i].Rho, 1e-3)
		assert.Equal(t, 1.0, s.Params()[i].Beta)
	}
}

func TestSABRSurfaceInterpolatesParameters(t *testing.T) {
	t.Parallel()

	params := []smile.SABRParams{
		{Alpha: 0.2, Beta: 1, Rho: -0.2, Nu: 0.4},
		{Alpha: 0.3, Beta: 1, Rho: -0.4, Nu: 0.6},
	}
	s, err := vol.NewSABRSurface(spxMeta, []time.Time{oneY, threeY}, []float64{100, 104}, params)
	require.NoError(t, err)

	t1, t3 := s.TimeToMaturity(oneY), s.TimeToMaturity(threeY)
	mid := s.ParamsAt(0.5 * (t1 + t3))
	assert.InDelta(t, 0.25, mid.Alpha, 1e-12)
	assert.InDelta(t, -0.3, mid.Rho, 1e-12)
	assert.InDelta(t, 102, s.ForwardAt(0.5*(t1+t3)), 1e-12)

	// flat beyond the last expiry
	assert.Equal(t, params[1], s.ParamsAt(10))

	v, err := s.GetVolForAbsoluteStrike(90, t1, 100)
	require.NoError(t, err)
	assert.InDelta(t, smile.SABRVol(90, 100, t1, params[0]), v, 1e-15)

	_, err = s.GetATMVegaScenarios(0.01, nil)
	require.ErrorIs(t, err, vol.ErrNotSupported)

	_, err = vol.NewSABRSurface(spxMeta, []time.Time{oneY}, []float64{100}, []smile.SABRParams{{Alpha: 0.2, Rho: 1}})
	require.ErrorIs(t, err, vol.ErrInvalidInput)
}

func TestSmileSurfacesRoundTrip(t *testing.T) {
	t.Parallel()

	const forward = 100.0
	for _, sigma := range []float64{0.1, 0.3, 0.6} {
		sabr, err := vol.NewSABRSurface(spxMeta, []time.Time{oneY}, []float64{forward},
			[]smile.SABRParams{{Alpha: sigma, Beta: 1, Rho: 0, Nu: 1e-4}})
		require.NoError(t, err)
		svi, err := vol.NewSVISurface(spxMeta, []time.Time{oneY}, []float64{forward},
			[]smile.SVIParams{{A: sigma * sigma, B: 0, Rho: 0, M: 0, Sigma: 0.1}})
		require.NoError(t, err)

		tt := sabr.TimeToMaturity(oneY)
		for _, s := range []vol.Surface{sabr, svi} {
			for _, d := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
				for _, delta := range []float64{d, -d} {
					cp := bs.Call
					if delta < 0 {
						cp = bs.Put
					}
					k := bs.AbsoluteStrikefromDeltaKAnalytic(forward, delta, 0, tt, sigma)
					v, err := s.GetVolForAbsoluteStrike(k, tt, forward)
					require.NoError(t, err)
					assert.InDelta(t, delta, bs.BlackDelta(forward, k, 0, tt, v, cp), 1e-6, "sigma=%g delta=%g", sigma, delta)

					vd, err := s.GetVolForDeltaStrike(delta, tt, forward)
					require.NoError(t, err)
					assert.InDelta(t, v, vd, 1e-6)
				}
			}
		}
	}
}

func TestFitSVISurfaceRecoversQuotes(t *testing.T) {
	t.Parallel()

	truth := smile.SVIParams{A: 0.02, B: 0.1, Rho: -0.3, M: 0.05, Sigma: 0.15}
	tt := spxTime(oneY)
	quotes := make([]float64, len(smileStrikes))
	for j, k := range smileStrikes {
		quotes[j] = smile.SVIVol(k, 100, tt, truth)
	}

	s, err := vol.FitSVISurface(spxMeta, []time.Time{oneY}, []float64{100}, [][]float64{smileStrikes}, [][]float64{quotes})
	require.NoError(t, err)
	for j, k := range smileStrikes {
		v, err := s.GetVolForAbsoluteStrike(k, tt, 100)
		require.NoError(t, err)
		assert.InDelta(t, quotes[j], v, 5e-4, "strike %g", k)
	}

	scen, err := s.GetATMVegaScenarios(0.01, nil)
	require.NoError(t, err)
	require.Len(t, scen, 1)
	for _, b := range scen {
		v, err := b.GetVolForAbsoluteStrike(100, tt, 100)
		require.NoError(t, err)
		base, _ := s.GetVolForAbsoluteStrike(100, tt, 100)
		assert.InDelta(t, base+0.01, v, 1e-3)
	}
}

func TestSmileSurfacesFromRiskyFly(t *testing.T) {
	t.Parallel()

	q := sampleQuotes()
	rf, err := vol.NewRiskyFly(fxMeta, q, vol.RiskyFlyConventions{})
	require.NoError(t, err)
	sabr, err := vol.NewSABRSurfaceFromRiskyFly(fxMeta, q, vol.RiskyFlyConventions{})
	require.NoError(t, err)
	svi, err := vol.NewSVISurfaceFromRiskyFly(fxMeta, q, vol.RiskyFlyConventions{})
	require.NoError(t, err)

	for _, p := range sabr.Params() {
		assert.Equal(t, 1.0, p.Beta)
	}

	tt := rf.TimeToMaturity(oneY)
	for _, s := range []vol.Surface{sabr, svi} {
		for _, delta := range []float64{0.25, 0.5, -0.25} {
			want, err := rf.GetVolForDeltaStrike(delta, tt, 101)
			require.NoError(t, err)
			got, err := s.GetVolForDeltaStrike(delta, tt, 101)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 2e-3, "%T delta=%g", s, delta)
		}
	}

	fwd, err := sabr.GetForwardATMVol(rf.TimeToMaturity(sixM), tt)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(fwd))

	scen, err := sabr.GetATMVegaScenarios(0.01, nil)
	require.NoError(t, err)
	assert.Len(t, scen, 2)
}

func spxTime(expiry time.Time) float64 {
	return expiry.Sub(origin).Hours() / 24 / 365
}

func TestSmileSurfacesOffPillar(t *testing.T) {
	t.Parallel()

	const sigma, forward = 0.2, 100.0
	expiries := []time.Time{sixM, oneY}
	t6, t1 := spxTime(sixM), spxTime(oneY)

	sabr, err := vol.NewSABRSurface(spxMeta, expiries, []float64{forward, forward}, []smile.SABRParams{
		{Alpha: sigma, Beta: 1, Rho: 0, Nu: 1e-4},
		{Alpha: sigma, Beta: 1, Rho: 0, Nu: 1e-4},
	})
	require.NoError(t, err)
	svi, err := vol.NewSVISurface(spxMeta, expiries, []float64{forward, forward}, []smile.SVIParams{
		{A: sigma * sigma * t6, B: 0, Rho: 0, M: 0, Sigma: 0.1},
		{A: sigma * sigma * t1, B: 0, Rho: 0, M: 0, Sigma: 0.1},
	})
	require.NoError(t, err)

	for _, s := range []vol.ATMSurface{sabr, svi} {
		for _, tt := range []float64{0.1, t6, 0.75, t1, 3} {
			for _, k := range []float64{80, 100, 125} {
				v, err := s.GetVolForAbsoluteStrike(k, tt, forward)
				require.NoError(t, err)
				assert.InDelta(t, sigma, v, 1e-6, "%T t=%g k=%g", s, tt, k)
			}
			v, err := s.GetVolForDeltaStrike(-0.25, tt, forward)
			require.NoError(t, err)
			assert.InDelta(t, sigma, v, 1e-6, "%T t=%g delta", s, tt)
		}
		fwd, err := s.GetForwardATMVol(1.5, 3)
		require.NoError(t, err)
		assert.InDelta(t, sigma, fwd, 1e-6, "%T", s)
	}

	// total variance of a skewed slice grows in proportion to time off the pillars
	skewed, err := vol.NewSVISurface(spxMeta, []time.Time{oneY}, []float64{forward},
		[]smile.SVIParams{{A: 0.02, B: 0.1, Rho: -0.3, M: 0.05, Sigma: 0.15}})
	require.NoError(t, err)
	at1, err := skewed.GetVolForAbsoluteStrike(90, t1, forward)
	require.NoError(t, err)
	for _, tt := range []float64{0.25, 2} {
		v, err := skewed.GetVolForAbsoluteStrike(90, tt, forward)
		require.NoError(t, err)
		assert.InDelta(t, at1, v, 1e-12, "t=%g", tt)
	}
	mid := skewed.ParamsAt(0.5)
	assert.InDelta(t, 0.02*0.5/t1, mid.A, 1e-12)
	assert.InDelta(t, 0.1*0.5/t1, mid.B, 1e-12)
}

func TestFitSVISurfaceFlatQuotesOffPillar(t *testing.T) {
	t.Parallel()

	flat := make([]float64, len(smileStrikes))
	for j := range flat {
		flat[j] = 0.2
	}
	s, err := vol.FitSVISurface(spxMeta, []time.Time{oneY}, []float64{100}, [][]float64{smileStrikes}, [][]float64{flat})
	require.NoError(t, err)
	for _, tt := range []float64{0.25, 1, 2} {
		v, err := s.GetVolForAbsoluteStrike(100, tt, 100)
		require.NoError(t, err)
		assert.InDelta(t, 0.2, v, 1e-3, "t=%g", tt)
	}
}

func TestSmileSurfaceRejectsInvalidQueries(t *testing.T) {
	t.Parallel()

	s, err := vol.NewSVISurface(spxMeta, []time.Time{oneY}, []float64{100},
		[]smile.SVIParams{{A: -0.05, B: 0.1, Rho: 0, M: 0, Sigma: 0.1}})
	require.NoError(t, err)
	tt := spxTime(oneY)

	_, err = s.GetVolForAbsoluteStrike(100, 0, 100)
	require.ErrorIs(t, err, vol.ErrInvalidInput)

	// w(0) = -0.05 + 0.1*0.1 < 0 at the money
	_, err = s.GetVolForAbsoluteStrike(100, tt, 100)
	require.ErrorIs(t, err, vol.ErrInvalidInput)

	// far wings have positive variance
	v, err := s.GetVolForAbsoluteStrike(300, tt, 100)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)

	_, err = s.GetForwardATMVol(0, tt)
	require.ErrorIs(t, err, vol.ErrInvalidInput)
}
