package vol

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/smile"
)

// sviModel fits (a, ln b, atanh rho, m, ln sigma).
type sviModel struct{}

func (sviModel) name() string { return "SVI" }

func (sviModel) vol(p []float64, strike, forward, t float64) float64 {
	return smile.SVIVol(strike, forward, t, smile.SVIFromVector(p))
}

// a and b are total variance; they interpolate as a/t and b/t so that a flat smile stays flat
// in vol between and beyond the pillars.
func (sviModel) toTimeScaled(p []float64, t float64) []float64 {
	out := append([]float64(nil), p...)
	out[0] /= t
	out[1] /= t
	return out
}

func (sviModel) fromTimeScaled(p []float64, t float64) []float64 {
	out := append([]float64(nil), p...)
	out[0] *= t
	out[1] *= t
	return out
}

func (sviModel) initial(strikes, vols []float64, forward, t float64) []float64 {
	atm := atmQuote(strikes, vols, forward)
	b := 0.1 * math.Max(t, 0.05)
	sigma := 0.1
	return []float64{atm*atm*t - b*sigma, b, 0, 0, sigma}
}

func (sviModel) toFree(p []float64) []float64 {
	rho := math.Max(-0.999, math.Min(0.999, p[2]))
	return []float64{p[0], math.Log(p[1]), math.Atanh(rho), p[3], math.Log(p[4])}
}

func (sviModel) toNatural(u []float64) []float64 {
	return []float64{u[0], math.Exp(u[1]), math.Tanh(u[2]), u[3], math.Exp(u[4])}
}

// SVISurface interpolates raw SVI parameters across expiries.
type SVISurface struct {
	*smileSurface
}

// NewSVISurface builds a surface from given parameters. It has no quotes, so it offers no
// scenarios.
func NewSVISurface(m Meta, expiries []time.Time, forwards []float64, params []smile.SVIParams, opts ...SmileOption) (*SVISurface, error) {
	vecs := make([][]float64, len(params))
	for i, p := range params {
		if p.B < 0 || math.Abs(p.Rho) >= 1 || p.Sigma <= 0 {
			return nil, fmt.Errorf("NewSVISurface: %w: parameters %+v at index %d", ErrInvalidInput, p, i)
		}
		vecs[i] = p.Vector()
	}
	ss, err := newSmileSurface(m, sviModel{}, expiries, forwards, vecs, nil, smileSettingsFrom(opts))
	if err != nil {
		return nil, fmt.Errorf("NewSVISurface: %w", err)
	}
	return &SVISurface{ss}, nil
}

// FitSVISurface fits one raw SVI slice per expiry to strike/vol quotes by least squares.
func FitSVISurface(m Meta, expiries []time.Time, forwards []float64, strikes, vols [][]float64, opts ...SmileOption) (*SVISurface, error) {
	if err := checkStrikeVols(expiries, forwards, strikes, vols); err != nil {
		return nil, fmt.Errorf("FitSVISurface: %w", err)
	}
	src := newStrikeVolSource(m.Origin, expiries, forwards, strikes, vols)
	ss, err := fitSmileSurface(m, sviModel{}, expiries, forwards, src, smileSettingsFrom(opts))
	if err != nil {
		return nil, fmt.Errorf("FitSVISurface: %w", err)
	}
	return &SVISurface{ss}, nil
}

// NewSVISurfaceFromRiskyFly solves each expiry's risky-fly row and fits SVI to the resulting
// strikes and vols.
func NewSVISurfaceFromRiskyFly(m Meta, q RiskyFlyQuotes, conv RiskyFlyConventions, opts ...SmileOption) (*SVISurface, error) {
	s := smileSettingsFrom(opts)
	src, err := newRiskyFlySource(m, q, conv, s.rowKind)
	if err != nil {
		return nil, fmt.Errorf("NewSVISurfaceFromRiskyFly: %w", err)
	}
	ss, err := fitSmileSurface(m, sviModel{}, q.Expiries, q.Forwards, src, s)
	if err != nil {
		return nil, fmt.Errorf("NewSVISurfaceFromRiskyFly: %w", err)
	}
	return &SVISurface{ss}, nil
}

// Params returns the calibrated parameters per expiry.
func (s *SVISurface) Params() []smile.SVIParams {
	out := make([]smile.SVIParams, len(s.params))
	for i, p := range s.params {
		out[i] = smile.SVIFromVector(p)
	}
	return out
}

// ParamsAt returns the parameters interpolated to maturity.
func (s *SVISurface) ParamsAt(maturity float64) smile.SVIParams {
	return smile.SVIFromVector(s.paramsAt(maturity))
}

// GetATMVegaScenarios refits one expiry at a time with its quotes shifted by bumpSize.
func (s *SVISurface) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	return s.scenarios(bumpSize, lastDate, func(ss *smileSurface) Surface { return &SVISurface{ss} })
}
