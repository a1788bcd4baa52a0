package blackscholes_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bs "github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/solver"
)

func TestPutCallParity(t *testing.T) {
	t.Parallel()

	f, k, r, tt, v := 100.0, 95.0, 0.03, 1.5, 0.25
	c := bs.BlackPV(f, k, r, tt, v, bs.Call)
	p := bs.BlackPV(f, k, r, tt, v, bs.Put)
	assert.InDelta(t, math.Exp(-r*tt)*(f-k), c-p, 1e-12)
}

func TestKnownValue(t *testing.T) {
	t.Parallel()

	// ATM forward call, r=0: F*(2N(sigma*sqrt(T)/2)-1)
	f, tt, v := 100.0, 1.0, 0.2
	want := f * (2*bs.NormCDF(0.5*v*math.Sqrt(tt)) - 1)
	assert.InDelta(t, want, bs.BlackPV(f, f, 0, tt, v, bs.Call), 1e-12)
	assert.InDelta(t, 7.965567455405804, want, 1e-9)
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	t.Parallel()

	f, k, r, tt, v := 100.0, 110.0, 0.02, 0.75, 0.3
	for _, cp := range []bs.OptionType{bs.Call, bs.Put} {
		g := bs.BlackGreeks(f, k, r, tt, v, cp)

		h := 1e-3
		up := bs.BlackPV(f+h, k, r, tt, v, cp)
		dn := bs.BlackPV(f-h, k, r, tt, v, cp)
		assert.InDelta(t, (up-dn)/(2*h), g.Delta, 1e-6, cp.String())
		assert.InDelta(t, (up-2*g.Price+dn)/(h*h), g.Gamma, 1e-5, cp.String())

		hv := 1e-5
		vu := bs.BlackPV(f, k, r, tt, v+hv, cp)
		vd := bs.BlackPV(f, k, r, tt, v-hv, cp)
		assert.InDelta(t, (vu-vd)/(2*hv), g.Vega, 1e-5, cp.String())

		ht := 1e-5
		tu := bs.BlackPV(f, k, r, tt+ht, v, cp)
		td := bs.BlackPV(f, k, r, tt-ht, v, cp)
		assert.InDelta(t, -(tu-td)/(2*ht), g.Theta, 1e-5, cp.String())
	}
}

func TestDigitalIsMinusStrikeDerivative(t *testing.T) {
	t.Parallel()

	f, k, tt, v := 100.0, 105.0, 2.0, 0.2
	h := 1e-4
	dCdK := (bs.BlackPV(f, k+h, 0, tt, v, bs.Call) - bs.BlackPV(f, k-h, 0, tt, v, bs.Call)) / (2 * h)
	assert.InDelta(t, -dCdK, bs.BlackDigitalPV(f, k, 0, tt, v, bs.Call), 1e-7)
	assert.InDelta(t, 1.0, bs.BlackDigitalPV(f, k, 0, tt, v, bs.Call)+bs.BlackDigitalPV(f, k, 0, tt, v, bs.Put), 1e-14)
}

func TestStrikeFromDeltaRoundTrip(t *testing.T) {
	t.Parallel()

	f, r, tt := 100.0, 0.01, 0.8
	for _, v := range []float64{0.1, 0.3, 0.6} {
		for _, d := range []float64{0.1, 0.25, 0.5, 0.75, 0.9, -0.1, -0.25, -0.5, -0.75, -0.9} {
			k := bs.AbsoluteStrikefromDeltaKAnalytic(f, d*math.Exp(-r*tt), r, tt, v)
			cp := bs.Call
			if d < 0 {
				cp = bs.Put
			}
			got := bs.BlackDelta(f, k, r, tt, v, cp)
			assert.InDelta(t, d*math.Exp(-r*tt), got, 1e-12, "vol=%v delta=%v", v, d)
		}
	}
}

func TestImpliedVolRecoversInput(t *testing.T) {
	t.Parallel()

	f, r, tt := 100.0, 0.02, 1.25
	for _, v := range []float64{0.15, 0.2, 0.8, 2.0} {
		for _, k := range []float64{60, 100, 150} {
			for _, cp := range []bs.OptionType{bs.Call, bs.Put} {
				pv := bs.BlackPV(f, k, r, tt, v, cp)
				got, err := bs.BlackImpliedVol(f, k, r, tt, pv, cp)
				require.NoError(t, err)
				assert.InDelta(t, v, got, 1e-7, "vol=%v k=%v %s", v, k, cp)
			}
		}
	}
}

func TestImpliedVolOutsideBracket(t *testing.T) {
	t.Parallel()

	// premium above the forward cannot be reached by any vol
	_, err := bs.BlackImpliedVol(100, 100, 0, 1, 150, bs.Call)
	require.ErrorIs(t, err, solver.ErrNotBracketed)

	_, err = bs.BlackImpliedVol(100, 100, 0, 0, 5, bs.Call)
	require.Error(t, err)
}
