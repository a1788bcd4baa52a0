package vol

import (
	"fmt"
	"time"

	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/logging"
	"github.com/meenmo/volib/utils"
)

// RiskyFlyQuotes are per-expiry ATM, risk-reversal and butterfly quotes. Riskies[i][j] and
// Flies[i][j] are quoted at WingDeltas[j]; Forwards[i] is the forward of expiry i.
type RiskyFlyQuotes struct {
	Expiries   []time.Time
	ATMs       []float64
	WingDeltas []float64
	Riskies    [][]float64
	Flies      [][]float64
	Forwards   []float64
}

func (q RiskyFlyQuotes) clone() RiskyFlyQuotes {
	out := RiskyFlyQuotes{
		Expiries:   append([]time.Time(nil), q.Expiries...),
		ATMs:       append([]float64(nil), q.ATMs...),
		WingDeltas: append([]float64(nil), q.WingDeltas...),
		Riskies:    make([][]float64, len(q.Riskies)),
		Flies:      make([][]float64, len(q.Flies)),
		Forwards:   append([]float64(nil), q.Forwards...),
	}
	for i := range q.Riskies {
		out.Riskies[i] = append([]float64(nil), q.Riskies[i]...)
	}
	for i := range q.Flies {
		out.Flies[i] = append([]float64(nil), q.Flies[i]...)
	}
	return out
}

func (q RiskyFlyQuotes) validate() error {
	n := len(q.Expiries)
	if n == 0 {
		return fmt.Errorf("%w: no expiries", ErrInvalidInput)
	}
	if len(q.ATMs) != n || len(q.Riskies) != n || len(q.Flies) != n || len(q.Forwards) != n {
		return fmt.Errorf("%w: %d expiries with %d ATMs, %d risk reversal rows, %d butterfly rows, %d forwards",
			ErrInvalidInput, n, len(q.ATMs), len(q.Riskies), len(q.Flies), len(q.Forwards))
	}
	for i := 0; i < n; i++ {
		if len(q.Riskies[i]) != len(q.WingDeltas) || len(q.Flies[i]) != len(q.WingDeltas) {
			return fmt.Errorf("%w: expiry %d has %d risk reversals and %d butterflies for %d wing deltas",
				ErrInvalidInput, i, len(q.Riskies[i]), len(q.Flies[i]), len(q.WingDeltas))
		}
		if q.ATMs[i] <= 0 {
			return fmt.Errorf("%w: non-positive ATM vol %g at expiry %d", ErrInvalidInput, q.ATMs[i], i)
		}
		if q.Forwards[i] <= 0 {
			return fmt.Errorf("%w: non-positive forward %g at expiry %d", ErrInvalidInput, q.Forwards[i], i)
		}
	}
	return nil
}

// rows returns the per-expiry quotes with wings in ascending delta order.
func (q RiskyFlyQuotes) rows(origin time.Time, perm []int) ([]riskyFlyRow, error) {
	rows := make([]riskyFlyRow, len(q.Expiries))
	for i, e := range q.Expiries {
		t := utils.YearFraction(origin, e, utils.Act365F)
		if t <= 0 {
			return nil, fmt.Errorf("%w: expiry %s not after origin", ErrInvalidInput, utils.FormatDate(e))
		}
		r := riskyFlyRow{
			atm:     q.ATMs[i],
			forward: q.Forwards[i],
			t:       t,
			wings:   make([]float64, len(perm)),
			riskies: make([]float64, len(perm)),
			flies:   make([]float64, len(perm)),
		}
		for j, src := range perm {
			r.wings[j] = q.WingDeltas[src]
			r.riskies[j] = q.Riskies[i][src]
			r.flies[j] = q.Flies[i][src]
		}
		rows[i] = r
	}
	return rows, nil
}

// solveRiskyFlyGrid solves every expiry in order and returns the call-delta axis and vols.
func solveRiskyFlyGrid(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, kind interpolation.Kind) ([]float64, [][]float64, []int, error) {
	if err := q.validate(); err != nil {
		return nil, nil, nil, err
	}
	perm, err := wingOrder(q.WingDeltas, conv.DeltaOrder)
	if err != nil {
		return nil, nil, nil, err
	}
	rows, err := q.rows(m.Origin, perm)
	if err != nil {
		return nil, nil, nil, err
	}
	axis := riskyFlyAxis(rows[0].wings)
	vols := make([][]float64, len(rows))
	for i, r := range rows {
		vols[i], err = solveRiskyFlyRow(r, conv, kind)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("expiry %s: %w", utils.FormatDate(q.Expiries[i]), err)
		}
		logging.Get().Debug("risky-fly row solved", "asset", m.AssetID,
			"expiry", utils.FormatDate(q.Expiries[i]), "vols", vols[i])
	}
	return axis, vols, perm, nil
}

// RiskyFly is a forward-delta grid solved from ATM, risk-reversal and butterfly quotes.
// Each expiry row holds 2*len(WingDeltas)+1 points: the wing call deltas, 0.5 and the
// complements 1-w carrying the put vols.
type RiskyFly struct {
	grid     *Grid
	quotes   RiskyFlyQuotes
	conv     RiskyFlyConventions
	settings gridSettings
	perm     []int
}

// NewRiskyFly calibrates a risky-fly surface expiry by expiry.
func NewRiskyFly(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, opts ...GridOption) (*RiskyFly, error) {
	s := defaultGridSettings()
	for _, o := range opts {
		o(&s)
	}
	return newRiskyFly(m, q, conv, s)
}

func newRiskyFly(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, s gridSettings) (*RiskyFly, error) {
	axis, vols, perm, err := solveRiskyFlyGrid(m, q, conv, s.strikeKind)
	if err != nil {
		return nil, fmt.Errorf("NewRiskyFly: %w", err)
	}
	g, err := newGrid(m, ForwardDelta, axis, q.Expiries, vols, s)
	if err != nil {
		return nil, fmt.Errorf("NewRiskyFly: %w", err)
	}
	return &RiskyFly{grid: g, quotes: q.clone(), conv: conv, settings: s, perm: perm}, nil
}

// Grid returns the solved forward-delta grid.
func (rf *RiskyFly) Grid() *Grid { return rf.grid }

// Quotes returns a copy of the market quotes the surface was solved from.
func (rf *RiskyFly) Quotes() RiskyFlyQuotes { return rf.quotes.clone() }

func (rf *RiskyFly) Conventions() RiskyFlyConventions { return rf.conv }

func (rf *RiskyFly) OriginDate() time.Time { return rf.grid.OriginDate() }
func (rf *RiskyFly) Currency() string      { return rf.grid.Currency() }
func (rf *RiskyFly) AssetID() string       { return rf.grid.AssetID() }

func (rf *RiskyFly) TimeToMaturity(expiry time.Time) float64 {
	return rf.grid.TimeToMaturity(expiry)
}

func (rf *RiskyFly) LocalVolGrid() interpolation.Interpolator2D { return rf.grid.LocalVolGrid() }

func (rf *RiskyFly) SetLocalVolGrid(grid interpolation.Interpolator2D) {
	rf.grid.SetLocalVolGrid(grid)
}

func (rf *RiskyFly) PillarDatesForLabel(label string) (time.Time, bool) {
	return rf.grid.PillarDatesForLabel(label)
}

func (rf *RiskyFly) GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	return rf.grid.GetVolForAbsoluteStrike(strike, maturity, forward)
}

func (rf *RiskyFly) GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error) {
	return rf.grid.GetVolForDeltaStrike(deltaStrike, maturity, forward)
}

func (rf *RiskyFly) GetForwardATMVol(start, end float64) (float64, error) {
	return rf.grid.GetForwardATMVol(start, end)
}

// GetATMVegaScenarios re-solves the surface with one expiry's ATM quote bumped at a time.
func (rf *RiskyFly) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	return rf.scenarios(lastDate, func(q *RiskyFlyQuotes, i int) {
		q.ATMs[i] += bumpSize
	})
}

// GetRegaScenarios re-solves the surface with one expiry's risk reversals bumped at a time.
func (rf *RiskyFly) GetRegaScenarios(bumpSize float64, lastDate *time.Time, mode BumpMode) (map[string]Surface, error) {
	return rf.scenarios(lastDate, func(q *RiskyFlyQuotes, i int) {
		for j, b := range wingBumps(q.Riskies[i], rf.perm[0], bumpSize, mode) {
			q.Riskies[i][j] += b
		}
	})
}

// GetSegaScenarios re-solves the surface with one expiry's butterflies bumped at a time.
func (rf *RiskyFly) GetSegaScenarios(bumpSize float64, lastDate *time.Time, mode BumpMode) (map[string]Surface, error) {
	return rf.scenarios(lastDate, func(q *RiskyFlyQuotes, i int) {
		for j, b := range wingBumps(q.Flies[i], rf.perm[0], bumpSize, mode) {
			q.Flies[i][j] += b
		}
	})
}

func (rf *RiskyFly) scenarios(lastDate *time.Time, bump func(q *RiskyFlyQuotes, i int)) (map[string]Surface, error) {
	pillars := scenarioPillars(rf.quotes.Expiries, lastDate)
	return buildScenarios(rf.grid.labels, pillars, func(i int) (Surface, error) {
		q := rf.quotes.clone()
		bump(&q, i)
		return newRiskyFly(rf.grid.meta(), q, rf.conv, rf.settings)
	})
}
