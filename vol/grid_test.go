package vol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bs "github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/vol"
)

func TestGridDeltaAxisATMScenario(t *testing.T) {
	t.Parallel()

	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5, 0.75}, []time.Time{sixM, oneY}, flatRows(2, 3, 0.30))
	require.NoError(t, err)

	tt := g.TimeToMaturity(oneY)
	v, err := g.GetVolForDeltaStrike(0.5, tt, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.30, v)

	fwd, err := g.GetForwardATMVol(0, tt)
	require.NoError(t, err)
	assert.Equal(t, 0.30, fwd)
}

func TestGridRoundTripFlat(t *testing.T) {
	t.Parallel()

	const forward = 100.0
	for _, sigma := range []float64{0.1, 0.3, 0.6} {
		g := flatDeltaGrid(t, sigma)
		tt := g.TimeToMaturity(oneY)
		for _, d := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
			for _, delta := range []float64{d, -d} {
				cp := bs.Call
				if delta < 0 {
					cp = bs.Put
				}
				k := bs.AbsoluteStrikefromDeltaKAnalytic(forward, delta, 0, tt, sigma)
				v, err := g.GetVolForAbsoluteStrike(k, tt, forward)
				require.NoError(t, err, "sigma=%g delta=%g", sigma, delta)
				assert.InDelta(t, sigma, v, 1e-12, "sigma=%g delta=%g", sigma, delta)
				assert.InDelta(t, delta, bs.BlackDelta(forward, k, 0, tt, v, cp), 1e-9, "sigma=%g delta=%g", sigma, delta)
			}
		}
	}
}

func TestGridRoundTripSkewed(t *testing.T) {
	t.Parallel()

	const forward = 100.0
	g := skewedDeltaGrid(t)
	tt := g.TimeToMaturity(oneY.AddDate(0, 3, 0))
	for _, delta := range []float64{0.1, 0.25, 0.5, 0.75, 0.9, -0.1, -0.25, -0.5, -0.75, -0.9} {
		cp := bs.Call
		if delta < 0 {
			cp = bs.Put
		}
		sigma, err := g.GetVolForDeltaStrike(delta, tt, forward)
		require.NoError(t, err)
		k := bs.AbsoluteStrikefromDeltaKAnalytic(forward, delta, 0, tt, sigma)

		v, err := g.GetVolForAbsoluteStrike(k, tt, forward)
		require.NoError(t, err)
		assert.InDelta(t, sigma, v, 1e-9, "delta=%g", delta)
		assert.InDelta(t, delta, bs.BlackDelta(forward, k, 0, tt, v, cp), 1e-8, "delta=%g", delta)
	}
}

func TestGridPutDeltaMapsToCallComplement(t *testing.T) {
	t.Parallel()

	g := skewedDeltaGrid(t)
	tt := g.TimeToMaturity(oneY)
	put, err := g.GetVolForDeltaStrike(-0.25, tt, 100)
	require.NoError(t, err)
	call, err := g.GetVolForDeltaStrike(0.75, tt, 100)
	require.NoError(t, err)
	assert.Equal(t, call, put)
	assert.InDelta(t, 0.24, put, 1e-15)
}

func TestGridOutOfRangeStrikeUsesNearerBound(t *testing.T) {
	t.Parallel()

	g := skewedDeltaGrid(t)
	tt := g.TimeToMaturity(oneY)

	high, err := g.GetVolForAbsoluteStrike(1e4, tt, 100)
	require.NoError(t, err)
	low, err := g.GetVolForAbsoluteStrike(1e-3, tt, 100)
	require.NoError(t, err)

	// flat extrapolation of the delta rows beyond the wings
	assert.InDelta(t, 0.20, high, 1e-12)
	assert.InDelta(t, 0.265, low, 1e-12)
}

func TestGridAbsoluteAxis(t *testing.T) {
	t.Parallel()

	strikes := []float64{80, 90, 100, 110, 120}
	g, err := vol.NewGrid(spxMeta, vol.AbsoluteStrike, strikes, []time.Time{sixM, oneY}, [][]float64{
		{0.28, 0.24, 0.21, 0.19, 0.18},
		{0.27, 0.235, 0.21, 0.195, 0.185},
	})
	require.NoError(t, err)
	tt := g.TimeToMaturity(oneY)

	v, err := g.GetVolForAbsoluteStrike(95, tt, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0.2225, v, 1e-12)

	for _, delta := range []float64{0.25, 0.5, -0.25} {
		cp := bs.Call
		if delta < 0 {
			cp = bs.Put
		}
		k, err := vol.AbsoluteStrikeForDelta(g, delta, tt, 100)
		require.NoError(t, err)
		vk, err := g.GetVolForAbsoluteStrike(k, tt, 100)
		require.NoError(t, err)
		assert.InDelta(t, delta, bs.BlackDelta(100, k, 0, tt, vk, cp), 1e-9)

		vd, err := g.GetVolForDeltaStrike(delta, tt, 100)
		require.NoError(t, err)
		assert.InDelta(t, vk, vd, 1e-9)
	}

	_, err = g.GetForwardATMVol(0, tt)
	require.ErrorIs(t, err, vol.ErrNotSupported)
}

func TestGridForwardATMVol(t *testing.T) {
	t.Parallel()

	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5, 0.75}, []time.Time{sixM, oneY}, [][]float64{
		{0.20, 0.20, 0.20},
		{0.25, 0.25, 0.25},
	})
	require.NoError(t, err)
	t1, t2 := g.TimeToMaturity(sixM), g.TimeToMaturity(oneY)

	fwd, err := g.GetForwardATMVol(t1, t2)
	require.NoError(t, err)
	want := (0.25*0.25*t2 - 0.20*0.20*t1) / (t2 - t1)
	assert.InDelta(t, want, fwd*fwd, 1e-12)

	same, err := g.GetForwardATMVol(t2, t2)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, same, 1e-15)

	_, err = g.GetForwardATMVol(t2, t1)
	require.ErrorIs(t, err, vol.ErrInvalidInput)

	byDate, err := vol.ForwardATMVolBetween(g, sixM, oneY)
	require.NoError(t, err)
	assert.Equal(t, fwd, byDate)
}

func TestGridNegativeForwardVariance(t *testing.T) {
	t.Parallel()

	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5, 0.75}, []time.Time{sixM, oneY}, [][]float64{
		{0.40, 0.40, 0.40},
		{0.20, 0.20, 0.20},
	})
	require.NoError(t, err)

	_, err = g.GetForwardATMVol(g.TimeToMaturity(sixM), g.TimeToMaturity(oneY))
	require.ErrorIs(t, err, vol.ErrNegativeForwardVariance)
}

func TestGridRejectsBadInput(t *testing.T) {
	t.Parallel()

	exp := []time.Time{sixM, oneY}
	cases := []struct {
		name    string
		st      vol.StrikeType
		strikes []float64
		exp     []time.Time
		vols    [][]float64
	}{
		{"row count", vol.ForwardDelta, []float64{0.25, 0.5}, exp, flatRows(1, 2, 0.2)},
		{"row length", vol.ForwardDelta, []float64{0.25, 0.5}, exp, [][]float64{{0.2, 0.2}, {0.2}}},
		{"delta outside (0,1)", vol.ForwardDelta, []float64{0.25, 1.0}, exp, flatRows(2, 2, 0.2)},
		{"unsorted strikes", vol.AbsoluteStrike, []float64{100, 90}, exp, flatRows(2, 2, 0.2)},
		{"unsorted expiries", vol.AbsoluteStrike, []float64{90, 100}, []time.Time{oneY, sixM}, flatRows(2, 2, 0.2)},
		{"expiry at origin", vol.AbsoluteStrike, []float64{90, 100}, []time.Time{origin, sixM}, flatRows(2, 2, 0.2)},
		{"negative vol", vol.AbsoluteStrike, []float64{90, 100}, exp, [][]float64{{0.2, -0.1}, {0.2, 0.2}}},
	}
	for _, tc := range cases {
		_, err := vol.NewGrid(spxMeta, tc.st, tc.strikes, tc.exp, tc.vols)
		require.ErrorIs(t, err, vol.ErrInvalidInput, tc.name)
	}

	_, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5}, exp, flatRows(2, 2, 0.2), vol.WithPillarLabels([]string{"6M"}))
	require.ErrorIs(t, err, vol.ErrInvalidInput)
}

func TestGridDeltaOutOfRange(t *testing.T) {
	t.Parallel()

	g := flatDeltaGrid(t, 0.2)
	for _, d := range []float64{1, -1, 1.5, -3} {
		_, err := g.GetVolForDeltaStrike(d, 1, 100)
		require.ErrorIs(t, err, vol.ErrDeltaOutOfRange)
	}
}

func TestGridFlatDeltaSmileInExtreme(t *testing.T) {
	t.Parallel()

	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5, 0.75}, []time.Time{oneY},
		[][]float64{{0.2, 0.25, 0.3}},
		vol.WithStrikeInterpolation(interpolation.Linear),
		vol.WithFlatDeltaSmileInExtreme(),
	)
	require.NoError(t, err)

	v, err := g.GetVolForDeltaStrike(0.9999, 1, 100)
	require.NoError(t, err)
	// linear extrapolation clamped at delta 1-0.001
	assert.InDelta(t, 0.3+(0.999-0.75)*0.2, v, 1e-12)
}

func TestGridAccessorsAndScenarios(t *testing.T) {
	t.Parallel()

	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, []float64{0.25, 0.5, 0.75}, []time.Time{sixM, oneY, twoY, threeY},
		flatRows(4, 3, 0.2), vol.WithPillarLabels([]string{"6M", "1Y", "2Y", "3Y"}))
	require.NoError(t, err)

	vols := g.Volatilities()
	vols[0][0] = 9
	assert.Equal(t, 0.2, g.Volatilities()[0][0])

	d, ok := g.PillarDatesForLabel("1Y")
	require.True(t, ok)
	assert.True(t, d.Equal(oneY))

	all, err := g.GetATMVegaScenarios(0.01, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	last := sixM
	some, err := g.GetATMVegaScenarios(0.01, &last)
	require.NoError(t, err)
	assert.Len(t, some, 3)
	assert.NotContains(t, some, "3Y")

	bumped := some["1Y"].(*vol.Grid)
	assert.InDelta(t, 0.21, bumped.Volatilities()[1][1], 1e-15)
	assert.Equal(t, 0.2, bumped.Volatilities()[0][1])
	assert.Equal(t, 0.2, bumped.Volatilities()[2][1])

	assert.Nil(t, g.LocalVolGrid())
}
