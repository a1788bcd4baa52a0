package vol

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/logging"
	"github.com/meenmo/volib/solver"
	"github.com/meenmo/volib/utils"
)

// smileModel is a closed-form smile with per-expiry parameters. Fits run in an unconstrained
// parameterisation; natural parameters are what is stored and interpolated.
type smileModel interface {
	name() string
	vol(params []float64, strike, forward, t float64) float64
	initial(strikes, vols []float64, forward, t float64) []float64
	toFree(params []float64) []float64
	toNatural(free []float64) []float64
	// toTimeScaled maps the parameters of a pillar at t to the form interpolated across
	// time; fromTimeScaled is its inverse.
	toTimeScaled(params []float64, t float64) []float64
	fromTimeScaled(scaled []float64, t float64) []float64
}

type smileSettings struct {
	paramKind interpolation.Kind
	rowKind   interpolation.Kind
	beta      float64
	labels    []string
}

func defaultSmileSettings() smileSettings {
	return smileSettings{
		paramKind: interpolation.LinearFlat,
		rowKind:   interpolation.LinearFlat,
		beta:      math.NaN(),
	}
}

// SmileOption configures SABR and SVI surfaces.
type SmileOption func(*smileSettings)

// WithParameterInterpolation sets the interpolation of each parameter across expiry times
// (default LinearFlat).
func WithParameterInterpolation(kind interpolation.Kind) SmileOption {
	return func(s *smileSettings) { s.paramKind = kind }
}

// WithRiskyFlyRowInterpolation sets the delta-axis interpolation used while solving risky-fly
// rows before the smile fit (default LinearFlat).
func WithRiskyFlyRowInterpolation(kind interpolation.Kind) SmileOption {
	return func(s *smileSettings) { s.rowKind = kind }
}

// WithSABRBeta fixes SABR beta in direct fits. Without it beta is fitted when every expiry has at
// least four quotes and fixed at 1 otherwise.
func WithSABRBeta(beta float64) SmileOption {
	return func(s *smileSettings) { s.beta = beta }
}

// WithSmilePillarLabels names the expiries for scenario maps.
func WithSmilePillarLabels(labels []string) SmileOption {
	return func(s *smileSettings) { s.labels = append([]string(nil), labels...) }
}

// smileSource refits one expiry with its ATM level shifted, for vega scenarios.
type smileSource interface {
	fit(model smileModel, i int, atmBump float64) ([]float64, error)
}

type strikeVolSource struct {
	expiries []time.Time
	times    []float64
	forwards []float64
	strikes  [][]float64
	vols     [][]float64
}

func (s *strikeVolSource) fit(model smileModel, i int, atmBump float64) ([]float64, error) {
	vols := make([]float64, len(s.vols[i]))
	for j, v := range s.vols[i] {
		vols[j] = v + atmBump
	}
	return fitSmile(model, s.strikes[i], vols, s.forwards[i], s.times[i])
}

type riskyFlySource struct {
	rows []riskyFlyRow
	conv RiskyFlyConventions
	kind interpolation.Kind
}

func (s *riskyFlySource) fit(model smileModel, i int, atmBump float64) ([]float64, error) {
	r := s.rows[i]
	r.atm += atmBump
	vols, err := solveRiskyFlyRow(r, s.conv, s.kind)
	if err != nil {
		return nil, err
	}
	axis := riskyFlyAxis(r.wings)
	// descending call delta is ascending strike
	strikes := make([]float64, len(axis))
	ordered := make([]float64, len(axis))
	for j := range axis {
		src := len(axis) - 1 - j
		strikes[j] = blackscholes.AbsoluteStrikefromDeltaKAnalytic(r.forward, axis[src], 0, r.t, vols[src])
		ordered[j] = vols[src]
	}
	return fitSmile(model, strikes, ordered, r.forward, r.t)
}

// fitSmile least-squares fits model vols to quoted vols at one expiry.
func fitSmile(model smileModel, strikes, vols []float64, forward, t float64) ([]float64, error) {
	if len(strikes) == 0 || len(strikes) != len(vols) {
		return nil, fmt.Errorf("%w: %d strikes for %d vols", ErrInvalidInput, len(strikes), len(vols))
	}
	residuals := func(free []float64) []float64 {
		p := model.toNatural(free)
		out := make([]float64, len(strikes))
		for j, k := range strikes {
			out[j] = model.vol(p, k, forward, t) - vols[j]
		}
		return out
	}
	c := config.GetConfig()
	start := model.toFree(model.initial(strikes, vols, forward, t))
	fit, err := solver.LeastSquares(residuals, start, c.GaussNewtonTolerance, c.JacobianBump, c.GaussNewtonMaxIterations)
	if err != nil {
		return nil, fmt.Errorf("%s fit: %w", model.name(), err)
	}
	logging.Get().Debug("smile fitted", "model", model.name(), "t", t, "sse", fit.SSE, "iterations", fit.Iterations)
	return model.toNatural(fit.Params), nil
}

// atmQuote returns the quoted vol at the strike closest to the forward.
func atmQuote(strikes, vols []float64, forward float64) float64 {
	best := 0
	for j, k := range strikes {
		if math.Abs(math.Log(k/forward)) < math.Abs(math.Log(strikes[best]/forward)) {
			best = j
		}
	}
	return vols[best]
}

// smileSurface interpolates per-expiry smile parameters across time.
type smileSurface struct {
	base
	model        smileModel
	settings     smileSettings
	expiries     []time.Time
	times        []float64
	labels       []string
	params       [][]float64
	forwards     []float64
	paramCurves  []interpolation.Interpolator
	forwardCurve interpolation.Interpolator
	source       smileSource
	cache        *resultCache
}

func newSmileSurface(m Meta, model smileModel, expiries []time.Time, forwards []float64, params [][]float64, source smileSource, s smileSettings) (*smileSurface, error) {
	n := len(expiries)
	if n == 0 || len(forwards) != n || len(params) != n {
		return nil, fmt.Errorf("%w: %d expiries, %d forwards, %d parameter sets", ErrInvalidInput, n, len(forwards), len(params))
	}
	ss := &smileSurface{
		model:    model,
		settings: s,
		expiries: append([]time.Time(nil), expiries...),
		times:    make([]float64, n),
		params:   make([][]float64, n),
		forwards: append([]float64(nil), forwards...),
		source:   source,
		cache:    newResultCache(),
	}
	ss.init(m)
	for i, e := range expiries {
		ss.times[i] = ss.TimeToMaturity(e)
		if ss.times[i] <= 0 || (i > 0 && !(ss.times[i] > ss.times[i-1])) {
			return nil, fmt.Errorf("%w: expiries must be after origin and strictly increasing (index %d)", ErrInvalidInput, i)
		}
		if forwards[i] <= 0 {
			return nil, fmt.Errorf("%w: non-positive forward %g at index %d", ErrInvalidInput, forwards[i], i)
		}
		if len(params[i]) != len(params[0]) {
			return nil, fmt.Errorf("%w: parameter set %d has %d entries", ErrInvalidInput, i, len(params[i]))
		}
		ss.params[i] = append([]float64(nil), params[i]...)
	}

	scaled := make([][]float64, n)
	for i := range params {
		scaled[i] = model.toTimeScaled(params[i], ss.times[i])
	}
	ss.paramCurves = make([]interpolation.Interpolator, len(params[0]))
	series := make([]float64, n)
	for k := range ss.paramCurves {
		for i := range scaled {
			series[i] = scaled[i][k]
		}
		in, err := interpolation.New(ss.times, series, s.paramKind)
		if err != nil {
			return nil, err
		}
		ss.paramCurves[k] = in
	}
	fwd, err := interpolation.New(ss.times, ss.forwards, interpolation.LinearFlat)
	if err != nil {
		return nil, err
	}
	ss.forwardCurve = fwd

	labels, err := pillarLabels(ss.expiries, s.labels)
	if err != nil {
		return nil, err
	}
	ss.labels = labels
	ss.pillars = labelIndex(labels, ss.expiries)
	return ss, nil
}

// fitSmileSurface fits every expiry from source in expiry order.
func fitSmileSurface(m Meta, model smileModel, expiries []time.Time, forwards []float64, source smileSource, s smileSettings) (*smileSurface, error) {
	for i, e := range expiries {
		if !e.After(m.Origin) || (i > 0 && !e.After(expiries[i-1])) {
			return nil, fmt.Errorf("%w: expiries must be after origin and strictly increasing (index %d)", ErrInvalidInput, i)
		}
	}
	params := make([][]float64, len(expiries))
	for i := range expiries {
		p, err := source.fit(model, i, 0)
		if err != nil {
			return nil, fmt.Errorf("expiry %s: %w", utils.FormatDate(expiries[i]), err)
		}
		params[i] = p
	}
	return newSmileSurface(m, model, expiries, forwards, params, source, s)
}

func (ss *smileSurface) paramsAt(t float64) []float64 {
	p := make([]float64, len(ss.paramCurves))
	for k, c := range ss.paramCurves {
		p[k] = c.Interpolate(t)
	}
	return ss.model.fromTimeScaled(p, t)
}

// volAt evaluates the smile and rejects parameter sets with no valid vol at strike.
func (ss *smileSurface) volAt(p []float64, strike, forward, t float64) (float64, error) {
	v := ss.model.vol(p, strike, forward, t)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: no valid %s vol at strike %g, maturity %g", ErrInvalidInput, ss.model.name(), strike, t)
	}
	return v, nil
}

// ForwardAt returns the interpolated calibration forward at t.
func (ss *smileSurface) ForwardAt(t float64) float64 {
	return ss.forwardCurve.Interpolate(t)
}

// Expiries returns a copy of the calibrated expiries.
func (ss *smileSurface) Expiries() []time.Time {
	return append([]time.Time(nil), ss.expiries...)
}

// forwardOr substitutes the calibration forward for a non-positive query forward.
func (ss *smileSurface) forwardOr(forward, t float64) float64 {
	if forward > 0 {
		return forward
	}
	return ss.ForwardAt(t)
}

// GetVolForAbsoluteStrike evaluates the smile with parameters interpolated to maturity. A
// non-positive forward selects the calibration forward.
func (ss *smileSurface) GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	return ss.cache.get(queryAbsolute, strike, maturity, forward, ss.volForAbsoluteStrike)
}

func (ss *smileSurface) volForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	if strike <= 0 || maturity <= 0 {
		return 0, fmt.Errorf("%s.GetVolForAbsoluteStrike: %w: strike %g, maturity %g", ss.model.name(), ErrInvalidInput, strike, maturity)
	}
	v, err := ss.volAt(ss.paramsAt(maturity), strike, ss.forwardOr(forward, maturity), maturity)
	if err != nil {
		return 0, fmt.Errorf("%s.GetVolForAbsoluteStrike: %w", ss.model.name(), err)
	}
	return v, nil
}

func (ss *smileSurface) GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error) {
	if err := checkDelta(deltaStrike); err != nil {
		return 0, fmt.Errorf("%s.GetVolForDeltaStrike: %w", ss.model.name(), err)
	}
	return ss.cache.get(queryDelta, deltaStrike, maturity, forward, ss.volForDeltaStrike)
}

func (ss *smileSurface) volForDeltaStrike(delta, maturity, forward float64) (float64, error) {
	fwd := ss.forwardOr(forward, maturity)
	p := ss.paramsAt(maturity)
	v, err := volForDelta(func(k float64) (float64, error) {
		return ss.volAt(p, k, fwd, maturity)
	}, delta, maturity, fwd)
	if err != nil {
		return 0, fmt.Errorf("%s.GetVolForDeltaStrike: %w", ss.model.name(), err)
	}
	return v, nil
}

// GetForwardATMVol uses the at-the-forward smile vol as the ATM term structure.
func (ss *smileSurface) GetForwardATMVol(start, end float64) (float64, error) {
	v, err := forwardATMVol(func(t float64) (float64, error) {
		f := ss.ForwardAt(t)
		return ss.volAt(ss.paramsAt(t), f, f, t)
	}, start, end)
	if err != nil {
		return 0, fmt.Errorf("%s.GetForwardATMVol: %w", ss.model.name(), err)
	}
	return v, nil
}

// scenarios refits one expiry at a time with its ATM level bumped.
func (ss *smileSurface) scenarios(bumpSize float64, lastDate *time.Time, wrap func(*smileSurface) Surface) (map[string]Surface, error) {
	if ss.source == nil {
		return nil, fmt.Errorf("%s surface built from parameters has no quotes to bump: %w", ss.model.name(), ErrNotSupported)
	}
	return buildScenarios(ss.labels, scenarioPillars(ss.expiries, lastDate), func(i int) (Surface, error) {
		p, err := ss.source.fit(ss.model, i, bumpSize)
		if err != nil {
			return nil, err
		}
		params := make([][]float64, len(ss.params))
		copy(params, ss.params)
		params[i] = p
		bumped, err := newSmileSurface(ss.meta(), ss.model, ss.expiries, ss.forwards, params, ss.source, ss.settings)
		if err != nil {
			return nil, err
		}
		return wrap(bumped), nil
	})
}

// checkStrikeVols validates direct-fit inputs.
func checkStrikeVols(expiries []time.Time, forwards []float64, strikes, vols [][]float64) error {
	n := len(expiries)
	if len(forwards) != n || len(strikes) != n || len(vols) != n {
		return fmt.Errorf("%w: %d expiries, %d forwards, %d strike rows, %d vol rows", ErrInvalidInput, n, len(forwards), len(strikes), len(vols))
	}
	for i := range strikes {
		if len(strikes[i]) == 0 || len(strikes[i]) != len(vols[i]) {
			return fmt.Errorf("%w: expiry %d has %d strikes for %d vols", ErrInvalidInput, i, len(strikes[i]), len(vols[i]))
		}
		for _, k := range strikes[i] {
			if k <= 0 {
				return fmt.Errorf("%w: non-positive strike %g at expiry %d", ErrInvalidInput, k, i)
			}
		}
	}
	return nil
}

func newStrikeVolSource(origin time.Time, expiries []time.Time, forwards []float64, strikes, vols [][]float64) *strikeVolSource {
	src := &strikeVolSource{
		expiries: append([]time.Time(nil), expiries...),
		times:    make([]float64, len(expiries)),
		forwards: append([]float64(nil), forwards...),
		strikes:  make([][]float64, len(strikes)),
		vols:     make([][]float64, len(vols)),
	}
	for i, e := range expiries {
		src.times[i] = utils.YearFraction(origin, e, utils.Act365F)
		src.strikes[i] = append([]float64(nil), strikes[i]...)
		src.vols[i] = append([]float64(nil), vols[i]...)
	}
	return src
}

func newRiskyFlySource(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, kind interpolation.Kind) (*riskyFlySource, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	perm, err := wingOrder(q.WingDeltas, conv.DeltaOrder)
	if err != nil {
		return nil, err
	}
	rows, err := q.rows(m.Origin, perm)
	if err != nil {
		return nil, err
	}
	return &riskyFlySource{rows: rows, conv: conv, kind: kind}, nil
}
