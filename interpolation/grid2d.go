package interpolation

import (
	"fmt"

	"github.com/meenmo/volib/utils"
)

// Interpolator2D evaluates a surface z(x, y).
type Interpolator2D interface {
	Interpolate(x, y float64) float64
}

// RowGrid interpolates along y within each row with the row kind, then linearly across rows in
// x (flat outside the x range). Rows may carry different y abscissae, which is the shape of a
// local-vol grid whose strike axis widens with time.
type RowGrid struct {
	xs   []float64
	rows []Interpolator
}

// NewRowGrid builds a RowGrid. ys[i] and zs[i] are the abscissae and values of row i.
func NewRowGrid(xs []float64, ys, zs [][]float64, rowKind Kind) (*RowGrid, error) {
	if len(xs) == 0 || len(xs) != len(ys) || len(xs) != len(zs) {
		return nil, fmt.Errorf("interpolation: row grid needs matching non-empty xs/ys/zs")
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("interpolation: row grid xs not strictly increasing at %d", i)
		}
	}
	g := &RowGrid{xs: append([]float64(nil), xs...), rows: make([]Interpolator, len(xs))}
	for i := range xs {
		row, err := New(ys[i], zs[i], rowKind)
		if err != nil {
			return nil, fmt.Errorf("interpolation: row %d: %w", i, err)
		}
		g.rows[i] = row
	}
	return g, nil
}

func (g *RowGrid) Interpolate(x, y float64) float64 {
	n := len(g.xs)
	if n == 1 || x <= g.xs[0] {
		return g.rows[0].Interpolate(y)
	}
	if x >= g.xs[n-1] {
		return g.rows[n-1].Interpolate(y)
	}
	i := utils.BracketIndex(g.xs, x)
	w := (x - g.xs[i]) / (g.xs[i+1] - g.xs[i])
	lo := g.rows[i].Interpolate(y)
	hi := g.rows[i+1].Interpolate(y)
	return lo + w*(hi-lo)
}
