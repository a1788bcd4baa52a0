package vol

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/smile"
)

// sabrModel fits alpha = exp(u), beta = logistic(u), rho = tanh(u), nu = exp(u). A fixed beta
// drops it from the free vector.
type sabrModel struct {
	fixBeta bool
	beta    float64
}

func (sabrModel) name() string { return "SABR" }

func (sabrModel) vol(p []float64, strike, forward, t float64) float64 {
	return smile.SABRVol(strike, forward, t, smile.SABRFromVector(p))
}

// SABR parameters are already per unit time.
func (sabrModel) toTimeScaled(p []float64, _ float64) []float64 {
	return append([]float64(nil), p...)
}

func (sabrModel) fromTimeScaled(p []float64, _ float64) []float64 {
	return append([]float64(nil), p...)
}

func (m sabrModel) initial(strikes, vols []float64, forward, _ float64) []float64 {
	beta := m.beta
	if !m.fixBeta {
		beta = 0.7
	}
	atm := atmQuote(strikes, vols, forward)
	return []float64{atm * math.Pow(forward, 1-beta), beta, -0.1, 0.5}
}

func (m sabrModel) toFree(p []float64) []float64 {
	rho := math.Max(-0.999, math.Min(0.999, p[2]))
	if m.fixBeta {
		return []float64{math.Log(p[0]), math.Atanh(rho), math.Log(p[3])}
	}
	beta := math.Max(1e-6, math.Min(1-1e-6, p[1]))
	return []float64{math.Log(p[0]), math.Log(beta / (1 - beta)), math.Atanh(rho), math.Log(p[3])}
}

func (m sabrModel) toNatural(u []float64) []float64 {
	if m.fixBeta {
		return []float64{math.Exp(u[0]), m.beta, math.Tanh(u[1]), math.Exp(u[2])}
	}
	return []float64{math.Exp(u[0]), 1 / (1 + math.Exp(-u[1])), math.Tanh(u[2]), math.Exp(u[3])}
}

// SABRSurface interpolates Hagan SABR parameters across expiries.
type SABRSurface struct {
	*smileSurface
}

// NewSABRSurface builds a surface from given parameters. It has no quotes, so it offers no
// scenarios.
func NewSABRSurface(m Meta, expiries []time.Time, forwards []float64, params []smile.SABRParams, opts ...SmileOption) (*SABRSurface, error) {
	s := smileSettingsFrom(opts)
	vecs := make([][]float64, len(params))
	for i, p := range params {
		if p.Alpha <= 0 || p.Nu < 0 || math.Abs(p.Rho) >= 1 || p.Beta < 0 || p.Beta > 1 {
			return nil, fmt.Errorf("NewSABRSurface: %w: parameters %+v at index %d", ErrInvalidInput, p, i)
		}
		vecs[i] = p.Vector()
	}
	ss, err := newSmileSurface(m, sabrModel{}, expiries, forwards, vecs, nil, s)
	if err != nil {
		return nil, fmt.Errorf("NewSABRSurface: %w", err)
	}
	return &SABRSurface{ss}, nil
}

// FitSABRSurface fits one parameter set per expiry to strike/vol quotes by least squares.
func FitSABRSurface(m Meta, expiries []time.Time, forwards []float64, strikes, vols [][]float64, opts ...SmileOption) (*SABRSurface, error) {
	if err := checkStrikeVols(expiries, forwards, strikes, vols); err != nil {
		return nil, fmt.Errorf("FitSABRSurface: %w", err)
	}
	s := smileSettingsFrom(opts)
	model := sabrModel{fixBeta: true, beta: 1}
	if !math.IsNaN(s.beta) {
		model.beta = s.beta
	} else if minQuotes(strikes) >= 4 {
		model.fixBeta = false
	}
	src := newStrikeVolSource(m.Origin, expiries, forwards, strikes, vols)
	ss, err := fitSmileSurface(m, model, expiries, forwards, src, s)
	if err != nil {
		return nil, fmt.Errorf("FitSABRSurface: %w", err)
	}
	return &SABRSurface{ss}, nil
}

// NewSABRSurfaceFromRiskyFly solves each expiry's risky-fly row and fits SABR with beta = 1 to
// the resulting strikes and vols.
func NewSABRSurfaceFromRiskyFly(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, opts ...SmileOption) (*SABRSurface, error) {
	s := smileSettingsFrom(opts)
	src, err := newRiskyFlySource(m, q, conv, s.rowKind)
	if err != nil {
		return nil, fmt.Errorf("NewSABRSurfaceFromRiskyFly: %w", err)
	}
	ss, err := fitSmileSurface(m, sabrModel{fixBeta: true, beta: 1}, q.Expiries, q.Forwards, src, s)
	if err != nil {
		return nil, fmt.Errorf("NewSABRSurfaceFromRiskyFly: %w", err)
	}
	return &SABRSurface{ss}, nil
}

// Params returns the calibrated parameters per expiry.
func (s *SABRSurface) Params() []smile.SABRParams {
	out := make([]smile.SABRParams, len(s.params))
	for i, p := range s.params {
		out[i] = smile.SABRFromVector(p)
	}
	return out
}

// ParamsAt returns the parameters interpolated to maturity.
func (s *SABRSurface) ParamsAt(maturity float64) smile.SABRParams {
	return smile.SABRFromVector(s.paramsAt(maturity))
}

// GetATMVegaScenarios refits one expiry at a time with its quotes shifted by bumpSize.
func (s *SABRSurface) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	return s.scenarios(bumpSize, lastDate, func(ss *smileSurface) Surface { return &SABRSurface{ss} })
}

func smileSettingsFrom(opts []SmileOption) smileSettings {
	s := defaultSmileSettings()
	for _, o := range opts {
		o(&s)
	}
	return s
}

func minQuotes(strikes [][]float64) int {
	n := math.MaxInt
	for _, row := range strikes {
		n = min(n, len(row))
	}
	return n
}
