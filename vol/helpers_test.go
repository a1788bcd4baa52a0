package vol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/volib/vol"
)

var (
	origin    = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	sixM      = origin.AddDate(0, 6, 0)
	oneY      = origin.AddDate(1, 0, 0)
	twoY      = origin.AddDate(2, 0, 0)
	threeY    = origin.AddDate(3, 0, 0)
	spxMeta   = vol.Meta{Origin: origin, Currency: "USD", AssetID: "SPX"}
	fxMeta    = vol.Meta{Origin: origin, Currency: "ZAR", AssetID: "USDZAR"}
	deltaAxis = []float64{0.1, 0.25, 0.5, 0.75, 0.9}
)

func flatRows(n, m int, v float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, m)
		for j := range out[i] {
			out[i][j] = v
		}
	}
	return out
}

func flatDeltaGrid(t *testing.T, v float64) *vol.Grid {
	t.Helper()
	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, deltaAxis, []time.Time{sixM, oneY, twoY}, flatRows(3, len(deltaAxis), v))
	require.NoError(t, err)
	return g
}

// skewedDeltaGrid has higher vols on the put side (high call delta).
func skewedDeltaGrid(t *testing.T) *vol.Grid {
	t.Helper()
	g, err := vol.NewGrid(spxMeta, vol.ForwardDelta, deltaAxis, []time.Time{sixM, oneY, twoY}, [][]float64{
		{0.19, 0.195, 0.21, 0.235, 0.26},
		{0.20, 0.205, 0.22, 0.24, 0.265},
		{0.21, 0.215, 0.225, 0.245, 0.27},
	})
	require.NoError(t, err)
	return g
}
