package localvol_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/volib/vol"
	"github.com/meenmo/volib/vol/localvol"
)

var (
	origin = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	meta   = vol.Meta{Origin: origin, Currency: "USD", AssetID: "SPX"}
)

func driftingForward(t float64) float64 { return 100 * math.Exp(0.03*t) }

func strikeRows(times []float64, strikes ...float64) [][]float64 {
	rows := make([][]float64, len(times))
	for i := range rows {
		rows[i] = strikes
	}
	return rows
}

func TestFlatSurfaceGivesImpliedVariance(t *testing.T) {
	t.Parallel()

	s, err := vol.NewConstant(meta, 0.2)
	require.NoError(t, err)
	times := []float64{0.25, 0.5, 1, 2}
	strikes := strikeRows(times, 80, 90, 100, 110, 120)

	tests := []struct {
		name    string
		compute func(vol.Surface, [][]float64, []float64, localvol.ForwardFunc) ([][]float64, error)
		tol     float64
	}{
		{"total variance", localvol.ComputeLocalVarianceOnGrid, 1e-12},
		{"call prices", localvol.ComputeLocalVarianceOnGridFromCalls, 1e-5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			lv, err := tc.compute(s, strikes, times, driftingForward)
			require.NoError(t, err)
			require.Len(t, lv, len(times))
			for i := range lv {
				require.Len(t, lv[i], len(strikes[i]))
				for j, v := range lv[i] {
					assert.InDelta(t, 0.04, v, tc.tol, "time %g strike %g", times[i], strikes[i][j])
				}
			}
		})
	}
}

func TestTermStructureGivesForwardVariance(t *testing.T) {
	t.Parallel()

	sixM := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	oneY := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	g, err := vol.NewGrid(meta, vol.AbsoluteStrike, []float64{20, 500}, []time.Time{sixM, oneY},
		[][]float64{{0.2, 0.2}, {0.25, 0.25}})
	require.NoError(t, err)
	t0, t1 := g.TimeToMaturity(sixM), g.TimeToMaturity(oneY)
	fwdVar := (0.25*0.25*t1 - 0.2*0.2*t0) / (t1 - t0)
	mid := 0.5 * (t0 + t1)
	times := []float64{t0, mid, t1}

	lv, err := localvol.ComputeLocalVarianceOnGrid(g, strikeRows(times, 90, 100, 110), times, driftingForward)
	require.NoError(t, err)
	for _, v := range lv[0] {
		assert.InDelta(t, 0.04, v, 1e-12)
	}
	for i := 1; i < len(times); i++ {
		for _, v := range lv[i] {
			assert.InDelta(t, fwdVar, v, 1e-9)
		}
	}

	fromCalls, err := localvol.ComputeLocalVarianceOnGridFromCalls(g, strikeRows(times, 90, 100, 110), times, driftingForward)
	require.NoError(t, err)
	for _, v := range fromCalls[1] {
		assert.InDelta(t, fwdVar, v, 1e-5)
	}
}

func TestSingleStrikeFromCallsIsImplied(t *testing.T) {
	t.Parallel()

	s, err := vol.NewConstant(meta, 0.3)
	require.NoError(t, err)
	lv, err := localvol.ComputeLocalVarianceOnGridFromCalls(s, [][]float64{{100}}, []float64{1}, driftingForward)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.3 * 0.3}}, lv)
}

func TestBuildLocalVolGridFillsSlot(t *testing.T) {
	t.Parallel()

	s, err := vol.NewConstant(meta, 0.2)
	require.NoError(t, err)
	times := []float64{0.5, 1}
	for _, m := range []localvol.Method{localvol.TotalVariance, localvol.CallPrices} {
		grid, err := localvol.BuildLocalVolGrid(s, strikeRows(times, 90, 100, 110), times, driftingForward, m)
		require.NoError(t, err, m.String())
		assert.Same(t, grid, s.LocalVolGrid())
		assert.InDelta(t, 0.2, s.LocalVolGrid().Interpolate(0.75, 105), 1e-5, m.String())
	}
}

func TestInvalidGrids(t *testing.T) {
	t.Parallel()

	s, err := vol.NewConstant(meta, 0.2)
	require.NoError(t, err)
	tests := []struct {
		name    string
		strikes [][]float64
		times   []float64
		forward localvol.ForwardFunc
	}{
		{"row mismatch", [][]float64{{100}}, []float64{0.5, 1}, driftingForward},
		{"unsorted times", [][]float64{{100}, {100}}, []float64{1, 0.5}, driftingForward},
		{"empty row", [][]float64{{}}, []float64{1}, driftingForward},
		{"negative strike", [][]float64{{-1}}, []float64{1}, driftingForward},
		{"nil forward", [][]float64{{100}}, []float64{1}, nil},
	}
	for _, tc := range tests {
		_, err := localvol.ComputeLocalVarianceOnGrid(s, tc.strikes, tc.times, tc.forward)
		require.ErrorIs(t, err, vol.ErrInvalidInput, tc.name)
		_, err = localvol.ComputeLocalVarianceOnGridFromCalls(s, tc.strikes, tc.times, tc.forward)
		require.ErrorIs(t, err, vol.ErrInvalidInput, tc.name)
	}
}
