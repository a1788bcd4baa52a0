package vol

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/utils"
)

// StrikeType is the quoting axis of a grid surface.
type StrikeType int

const (
	// AbsoluteStrike quotes vols against strike prices.
	AbsoluteStrike StrikeType = iota
	// ForwardDelta quotes vols against undiscounted call forward deltas in (0, 1).
	ForwardDelta
)

func (s StrikeType) String() string {
	if s == ForwardDelta {
		return "ForwardDelta"
	}
	return "AbsoluteStrike"
}

type gridSettings struct {
	strikeKind       interpolation.Kind
	timeKind         interpolation.Kind
	flatDeltaExtreme bool
	labels           []string
}

func defaultGridSettings() gridSettings {
	return gridSettings{
		strikeKind: interpolation.LinearFlat,
		timeKind:   interpolation.LinearInVariance,
	}
}

// GridOption configures grid-family surfaces.
type GridOption func(*gridSettings)

// WithStrikeInterpolation sets the per-expiry interpolation kind (default LinearFlat).
func WithStrikeInterpolation(kind interpolation.Kind) GridOption {
	return func(s *gridSettings) { s.strikeKind = kind }
}

// WithTimeInterpolation sets the interpolation across expiries (default LinearInVariance).
func WithTimeInterpolation(kind interpolation.Kind) GridOption {
	return func(s *gridSettings) { s.timeKind = kind }
}

// WithFlatDeltaSmileInExtreme holds the smile flat beyond FlatDeltaPoint and 1-FlatDeltaPoint
// on forward-delta axes.
func WithFlatDeltaSmileInExtreme() GridOption {
	return func(s *gridSettings) { s.flatDeltaExtreme = true }
}

// WithPillarLabels names the expiries for scenario maps. The default label is the expiry date
// formatted as 2006-01-02.
func WithPillarLabels(labels []string) GridOption {
	return func(s *gridSettings) { s.labels = append([]string(nil), labels...) }
}

// Grid is a strike x expiry table of implied vols. Each expiry row is interpolated in strike
// and the resulting column is interpolated across expiry times.
type Grid struct {
	base
	settings   gridSettings
	strikeType StrikeType
	strikes    []float64
	expiries   []time.Time
	times      []float64
	vols       [][]float64
	labels     []string
	rows       []interpolation.Interpolator
	cache      *resultCache
}

// NewGrid builds a grid surface. vols[i][j] is the vol at expiries[i] and strikes[j]; strikes
// must be strictly increasing and expiries strictly after the origin in increasing order.
func NewGrid(m Meta, strikeType StrikeType, strikes []float64, expiries []time.Time, vols [][]float64, opts ...GridOption) (*Grid, error) {
	s := defaultGridSettings()
	for _, o := range opts {
		o(&s)
	}
	return newGrid(m, strikeType, strikes, expiries, vols, s)
}

func newGrid(m Meta, strikeType StrikeType, strikes []float64, expiries []time.Time, vols [][]float64, s gridSettings) (*Grid, error) {
	if len(strikes) == 0 || len(expiries) == 0 {
		return nil, fmt.Errorf("NewGrid: %w: empty strikes or expiries", ErrInvalidInput)
	}
	if len(vols) != len(expiries) {
		return nil, fmt.Errorf("NewGrid: %w: %d vol rows for %d expiries", ErrInvalidInput, len(vols), len(expiries))
	}
	for j, k := range strikes {
		if strikeType == ForwardDelta && !(k > 0 && k < 1) {
			return nil, fmt.Errorf("NewGrid: %w: delta strike %g outside (0, 1)", ErrInvalidInput, k)
		}
		if strikeType == AbsoluteStrike && k <= 0 {
			return nil, fmt.Errorf("NewGrid: %w: non-positive strike %g", ErrInvalidInput, k)
		}
		if j > 0 && !(k > strikes[j-1]) {
			return nil, fmt.Errorf("NewGrid: %w: strikes not strictly increasing at %d", ErrInvalidInput, j)
		}
	}

	g := &Grid{
		settings:   s,
		strikeType: strikeType,
		strikes:    append([]float64(nil), strikes...),
		expiries:   append([]time.Time(nil), expiries...),
		times:      make([]float64, len(expiries)),
		vols:       make([][]float64, len(vols)),
		rows:       make([]interpolation.Interpolator, len(vols)),
		cache:      newResultCache(),
	}
	g.init(m)

	for i, e := range expiries {
		g.times[i] = g.TimeToMaturity(e)
		if g.times[i] <= 0 {
			return nil, fmt.Errorf("NewGrid: %w: expiry %s not after origin", ErrInvalidInput, utils.FormatDate(e))
		}
		if i > 0 && !(g.times[i] > g.times[i-1]) {
			return nil, fmt.Errorf("NewGrid: %w: expiries not strictly increasing at %d", ErrInvalidInput, i)
		}
	}

	for i, row := range vols {
		if len(row) != len(strikes) {
			return nil, fmt.Errorf("NewGrid: %w: row %d has %d vols for %d strikes", ErrInvalidInput, i, len(row), len(strikes))
		}
		for _, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("NewGrid: %w: vol %g in row %d", ErrInvalidInput, v, i)
			}
		}
		g.vols[i] = append([]float64(nil), row...)
		in, err := interpolation.New(g.strikes, g.vols[i], s.strikeKind)
		if err != nil {
			return nil, fmt.Errorf("NewGrid: row %d: %w", i, err)
		}
		g.rows[i] = in
	}

	labels, err := pillarLabels(g.expiries, s.labels)
	if err != nil {
		return nil, fmt.Errorf("NewGrid: %w", err)
	}
	g.labels = labels
	g.pillars = labelIndex(labels, g.expiries)
	return g, nil
}

// pillarLabels validates explicit labels or derives them from the expiry dates.
func pillarLabels(expiries []time.Time, labels []string) ([]string, error) {
	if labels == nil {
		out := make([]string, len(expiries))
		for i, e := range expiries {
			out[i] = utils.FormatDate(e)
		}
		return out, nil
	}
	if len(labels) != len(expiries) {
		return nil, fmt.Errorf("%w: %d pillar labels for %d expiries", ErrInvalidInput, len(labels), len(expiries))
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return nil, fmt.Errorf("%w: duplicate pillar label %q", ErrInvalidInput, l)
		}
		seen[l] = true
	}
	return append([]string(nil), labels...), nil
}

func labelIndex(labels []string, expiries []time.Time) map[string]time.Time {
	m := make(map[string]time.Time, len(labels))
	for i, l := range labels {
		m[l] = expiries[i]
	}
	return m
}

// volAt evaluates the grid at a native axis value.
func (g *Grid) volAt(x, t float64) float64 {
	if g.strikeType == ForwardDelta && g.settings.flatDeltaExtreme {
		eps := config.GetConfig().FlatDeltaPoint
		x = math.Min(math.Max(x, eps), 1-eps)
	}
	if len(g.rows) == 1 {
		return g.rows[0].Interpolate(x)
	}
	column := make([]float64, len(g.rows))
	for i, row := range g.rows {
		column[i] = row.Interpolate(x)
	}
	return interpolation.MustNew(g.times, column, g.settings.timeKind).Interpolate(t)
}

// GetVolForAbsoluteStrike returns the vol at a strike price. Forward-delta grids first solve for
// the delta whose analytic strike equals strike.
func (g *Grid) GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	return g.cache.get(queryAbsolute, strike, maturity, forward, g.volForAbsoluteStrike)
}

func (g *Grid) volForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	if g.strikeType == AbsoluteStrike {
		return g.volAt(strike, maturity), nil
	}
	v, err := deltaAxisVolAtStrike(func(x float64) float64 { return g.volAt(x, maturity) }, strike, maturity, forward)
	if err != nil {
		return 0, fmt.Errorf("Grid.GetVolForAbsoluteStrike: %w", err)
	}
	return v, nil
}

// GetVolForDeltaStrike returns the vol at a forward delta; negative deltas are puts.
func (g *Grid) GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error) {
	if err := checkDelta(deltaStrike); err != nil {
		return 0, fmt.Errorf("Grid.GetVolForDeltaStrike: %w", err)
	}
	return g.cache.get(queryDelta, deltaStrike, maturity, forward, g.volForDeltaStrike)
}

func (g *Grid) volForDeltaStrike(delta, maturity, forward float64) (float64, error) {
	if g.strikeType == ForwardDelta {
		return g.volAt(callDelta(delta), maturity), nil
	}
	v, err := volForDelta(func(k float64) (float64, error) { return g.volAt(k, maturity), nil }, delta, maturity, forward)
	if err != nil {
		return 0, fmt.Errorf("Grid.GetVolForDeltaStrike: %w", err)
	}
	return v, nil
}

// GetForwardATMVol returns the forward vol of the 0.5-delta term structure between start and
// end. Absolute-strike grids have no ATM axis point and return ErrNotSupported.
func (g *Grid) GetForwardATMVol(start, end float64) (float64, error) {
	if g.strikeType != ForwardDelta {
		return 0, fmt.Errorf("Grid.GetForwardATMVol on %v grid: %w", g.strikeType, ErrNotSupported)
	}
	v, err := forwardATMVol(func(t float64) (float64, error) { return g.volAt(0.5, t), nil }, start, end)
	if err != nil {
		return 0, fmt.Errorf("Grid.GetForwardATMVol: %w", err)
	}
	return v, nil
}

// GetATMVegaScenarios shifts one expiry row at a time by bumpSize.
func (g *Grid) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	return buildScenarios(g.labels, scenarioPillars(g.expiries, lastDate), func(i int) (Surface, error) {
		vols := g.Volatilities()
		for j := range vols[i] {
			vols[i][j] += bumpSize
		}
		return g.WithVolatilities(vols)
	})
}

// WithVolatilities returns a grid with the same axes and settings over a new vol matrix.
func (g *Grid) WithVolatilities(vols [][]float64) (*Grid, error) {
	return newGrid(g.meta(), g.strikeType, g.strikes, g.expiries, vols, g.settings)
}

func (g *Grid) StrikeType() StrikeType { return g.strikeType }

// Strikes returns a copy of the strike axis.
func (g *Grid) Strikes() []float64 { return append([]float64(nil), g.strikes...) }

// Expiries returns a copy of the expiry dates.
func (g *Grid) Expiries() []time.Time { return append([]time.Time(nil), g.expiries...) }

// Times returns a copy of the expiry year fractions.
func (g *Grid) Times() []float64 { return append([]float64(nil), g.times...) }

// PillarLabels returns a copy of the scenario labels, in expiry order.
func (g *Grid) PillarLabels() []string { return append([]string(nil), g.labels...) }

// Volatilities returns a deep copy of the vol matrix.
func (g *Grid) Volatilities() [][]float64 {
	out := make([][]float64, len(g.vols))
	for i, row := range g.vols {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
