// Package surfacedef decodes the surface definitions read by the vol CLIs and builds surfaces
// from them.
package surfacedef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/utils"
	"github.com/meenmo/volib/vol"
)

// Definition is one surface plus the queries to run against it.
//
// Conventions:
// - dates are "2006-01-02"; expiries may also be tenors relative to origin ("6M", "1Y")
// - vols and quotes are decimals (0.20 means 20%)
// - deltas are call forward deltas; negative values are put deltas
type Definition struct {
	TaskID   string `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Kind     string `json:"kind" yaml:"kind"` // grid, riskyfly, sabr, svi, constant, sparse
	Origin   string `json:"origin" yaml:"origin"`
	Currency string `json:"currency" yaml:"currency"`
	AssetID  string `json:"asset_id" yaml:"asset_id"`

	Expiries []string  `json:"expiries" yaml:"expiries"`
	Labels   []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Forwards []float64 `json:"forwards,omitempty" yaml:"forwards,omitempty"`

	// grid
	StrikeType          string      `json:"strike_type,omitempty" yaml:"strike_type,omitempty"` // absolute or delta
	Strikes             []float64   `json:"strikes,omitempty" yaml:"strikes,omitempty"`
	Vols                [][]float64 `json:"vols,omitempty" yaml:"vols,omitempty"`
	StrikeInterpolation string      `json:"strike_interpolation,omitempty" yaml:"strike_interpolation,omitempty"`
	TimeInterpolation   string      `json:"time_interpolation,omitempty" yaml:"time_interpolation,omitempty"`
	FlatDeltaExtremes   bool        `json:"flat_delta_extremes,omitempty" yaml:"flat_delta_extremes,omitempty"`

	// riskyfly, and sabr/svi calibrated from risky-fly quotes
	ATMs       []float64   `json:"atms,omitempty" yaml:"atms,omitempty"`
	WingDeltas []float64   `json:"wing_deltas,omitempty" yaml:"wing_deltas,omitempty"`
	Riskies    [][]float64 `json:"riskies,omitempty" yaml:"riskies,omitempty"`
	Flies      [][]float64 `json:"flies,omitempty" yaml:"flies,omitempty"`
	WingQuotes string      `json:"wing_quotes,omitempty" yaml:"wing_quotes,omitempty"` // simple or market
	ATMType    string      `json:"atm_type,omitempty" yaml:"atm_type,omitempty"`       // dns or forward
	DeltaOrder string      `json:"delta_order,omitempty" yaml:"delta_order,omitempty"` // auto, ascending, descending

	// sabr/svi fitted to strike/vol smiles
	SmileStrikes [][]float64 `json:"smile_strikes,omitempty" yaml:"smile_strikes,omitempty"`
	SmileVols    [][]float64 `json:"smile_vols,omitempty" yaml:"smile_vols,omitempty"`
	Beta         *float64    `json:"beta,omitempty" yaml:"beta,omitempty"`

	// constant
	Vol float64 `json:"vol,omitempty" yaml:"vol,omitempty"`

	// sparse
	Points []Point `json:"points,omitempty" yaml:"points,omitempty"`

	Queries []Query `json:"queries,omitempty" yaml:"queries,omitempty"`
}

type Point struct {
	Expiry string  `json:"expiry" yaml:"expiry"`
	Strike float64 `json:"strike" yaml:"strike"`
	Vol    float64 `json:"vol" yaml:"vol"`
}

// Query is a vol lookup. Exactly one of Strike, Delta or Start is set; Start asks for the
// forward ATM vol between Start and Expiry.
type Query struct {
	Expiry  string   `json:"expiry" yaml:"expiry"`
	Forward float64  `json:"forward,omitempty" yaml:"forward,omitempty"`
	Strike  *float64 `json:"strike,omitempty" yaml:"strike,omitempty"`
	Delta   *float64 `json:"delta,omitempty" yaml:"delta,omitempty"`
	Start   string   `json:"start,omitempty" yaml:"start,omitempty"`
}

// Decode reads a single definition or an array of them. Input starting with '{' or '[' is
// JSON, anything else is YAML. The boolean reports whether the input was an array.
func Decode(raw []byte) ([]Definition, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	switch trimmed[0] {
	case '[':
		var defs []Definition
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, true, err
		}
		if len(defs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return defs, true, nil
	case '{':
		var def Definition
		if err := json.Unmarshal(trimmed, &def); err != nil {
			return nil, false, err
		}
		return []Definition{def}, false, nil
	}

	if trimmed[0] == '-' {
		var defs []Definition
		if err := yaml.Unmarshal(trimmed, &defs); err != nil {
			return nil, true, err
		}
		if len(defs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return defs, true, nil
	}
	var def Definition
	if err := yaml.Unmarshal(trimmed, &def); err != nil {
		return nil, false, err
	}
	return []Definition{def}, false, nil
}

// Meta returns the surface metadata of d.
func (d Definition) Meta() (vol.Meta, error) {
	origin, err := utils.ParseDate(d.Origin)
	if err != nil {
		return vol.Meta{}, fmt.Errorf("invalid origin: %v", err)
	}
	return vol.Meta{Origin: origin, Currency: d.Currency, AssetID: d.AssetID}, nil
}

// ParseExpiry resolves a date or a tenor relative to origin.
func ParseExpiry(origin time.Time, s string) (time.Time, error) {
	if d, err := utils.ParseDate(s); err == nil {
		return d, nil
	}
	d, err := utils.TenorToDate(origin, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}

func (d Definition) expiries(origin time.Time) ([]time.Time, error) {
	out := make([]time.Time, len(d.Expiries))
	for i, s := range d.Expiries {
		e, err := ParseExpiry(origin, s)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Build constructs the surface d describes.
func (d Definition) Build() (vol.Surface, error) {
	m, err := d.Meta()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(d.Kind) {
	case "grid":
		return d.buildGrid(m)
	case "riskyfly":
		q, conv, err := d.riskyFly(m.Origin)
		if err != nil {
			return nil, err
		}
		opts, err := d.gridOptions()
		if err != nil {
			return nil, err
		}
		return vol.NewRiskyFly(m, q, conv, opts...)
	case "sabr", "svi":
		return d.buildSmile(m)
	case "constant":
		return vol.NewConstant(m, d.Vol)
	case "sparse":
		points := make([]vol.SparsePoint, len(d.Points))
		for i, p := range d.Points {
			e, err := ParseExpiry(m.Origin, p.Expiry)
			if err != nil {
				return nil, err
			}
			points[i] = vol.SparsePoint{Expiry: e, Strike: p.Strike, Vol: p.Vol}
		}
		return vol.NewSparse(m, points)
	default:
		return nil, fmt.Errorf("unsupported kind %q", d.Kind)
	}
}

func (d Definition) gridOptions() ([]vol.GridOption, error) {
	var opts []vol.GridOption
	if d.StrikeInterpolation != "" {
		k, err := interpolation.ParseKind(d.StrikeInterpolation)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vol.WithStrikeInterpolation(k))
	}
	if d.TimeInterpolation != "" {
		k, err := interpolation.ParseKind(d.TimeInterpolation)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vol.WithTimeInterpolation(k))
	}
	if d.FlatDeltaExtremes {
		opts = append(opts, vol.WithFlatDeltaSmileInExtreme())
	}
	if d.Labels != nil {
		opts = append(opts, vol.WithPillarLabels(d.Labels))
	}
	return opts, nil
}

func (d Definition) buildGrid(m vol.Meta) (vol.Surface, error) {
	var st vol.StrikeType
	switch strings.ToLower(d.StrikeType) {
	case "absolute", "":
		st = vol.AbsoluteStrike
	case "delta":
		st = vol.ForwardDelta
	default:
		return nil, fmt.Errorf("unsupported strike_type %q", d.StrikeType)
	}
	expiries, err := d.expiries(m.Origin)
	if err != nil {
		return nil, err
	}
	opts, err := d.gridOptions()
	if err != nil {
		return nil, err
	}
	return vol.NewGrid(m, st, d.Strikes, expiries, d.Vols, opts...)
}

func (d Definition) riskyFly(origin time.Time) (vol.RiskyFlyQuotes, vol.RiskyFlyConventions, error) {
	var conv vol.RiskyFlyConventions
	switch strings.ToLower(d.WingQuotes) {
	case "simple", "":
		conv.WingQuoteType = vol.SimpleWingQuotes
	case "market":
		conv.WingQuoteType = vol.MarketWingQuotes
	default:
		return vol.RiskyFlyQuotes{}, conv, fmt.Errorf("unsupported wing_quotes %q", d.WingQuotes)
	}
	switch strings.ToLower(d.ATMType) {
	case "dns", "":
		conv.ATMType = vol.ATMDeltaNeutralStraddle
	case "forward":
		conv.ATMType = vol.ATMForward
	default:
		return vol.RiskyFlyQuotes{}, conv, fmt.Errorf("unsupported atm_type %q", d.ATMType)
	}
	switch strings.ToLower(d.DeltaOrder) {
	case "auto", "":
		conv.DeltaOrder = vol.DeltaOrderAuto
	case "ascending":
		conv.DeltaOrder = vol.DeltaOrderAscending
	case "descending":
		conv.DeltaOrder = vol.DeltaOrderDescending
	default:
		return vol.RiskyFlyQuotes{}, conv, fmt.Errorf("unsupported delta_order %q", d.DeltaOrder)
	}
	expiries, err := d.expiries(origin)
	if err != nil {
		return vol.RiskyFlyQuotes{}, conv, err
	}
	return vol.RiskyFlyQuotes{
		Expiries:   expiries,
		ATMs:       d.ATMs,
		WingDeltas: d.WingDeltas,
		Riskies:    d.Riskies,
		Flies:      d.Flies,
		Forwards:   d.Forwards,
	}, conv, nil
}

func (d Definition) buildSmile(m vol.Meta) (vol.Surface, error) {
	var opts []vol.SmileOption
	if d.Beta != nil {
		opts = append(opts, vol.WithSABRBeta(*d.Beta))
	}
	if d.Labels != nil {
		opts = append(opts, vol.WithSmilePillarLabels(d.Labels))
	}
	sabr := strings.EqualFold(d.Kind, "sabr")

	if len(d.ATMs) > 0 {
		q, conv, err := d.riskyFly(m.Origin)
		if err != nil {
			return nil, err
		}
		if sabr {
			return vol.NewSABRSurfaceFromRiskyFly(m, q, conv, opts...)
		}
		return vol.NewSVISurfaceFromRiskyFly(m, q, conv, opts...)
	}
	expiries, err := d.expiries(m.Origin)
	if err != nil {
		return nil, err
	}
	if sabr {
		return vol.FitSABRSurface(m, expiries, d.Forwards, d.SmileStrikes, d.SmileVols, opts...)
	}
	return vol.FitSVISurface(m, expiries, d.Forwards, d.SmileStrikes, d.SmileVols, opts...)
}

// Evaluate runs q against s.
func Evaluate(s vol.Surface, q Query) (float64, error) {
	expiry, err := ParseExpiry(s.OriginDate(), q.Expiry)
	if err != nil {
		return 0, err
	}
	switch {
	case q.Start != "":
		atm, ok := s.(vol.ATMSurface)
		if !ok {
			return 0, fmt.Errorf("forward ATM vol: %w", vol.ErrNotSupported)
		}
		start, err := ParseExpiry(s.OriginDate(), q.Start)
		if err != nil {
			return 0, err
		}
		return vol.ForwardATMVolBetween(atm, start, expiry)
	case q.Strike != nil && q.Delta != nil:
		return 0, fmt.Errorf("query sets both strike and delta")
	case q.Strike != nil:
		return vol.VolForAbsoluteStrikeAt(s, *q.Strike, expiry, q.Forward)
	case q.Delta != nil:
		return vol.VolForDeltaStrikeAt(s, *q.Delta, expiry, q.Forward)
	default:
		return 0, fmt.Errorf("query needs strike, delta or start")
	}
}

// ForwardAt returns the forward quoted for expiry, or fallback when expiry is not a quoted pillar.
func (d Definition) ForwardAt(expiry time.Time, fallback float64) float64 {
	origin, err := utils.ParseDate(d.Origin)
	if err != nil || len(d.Forwards) != len(d.Expiries) {
		return fallback
	}
	for i, s := range d.Expiries {
		if e, err := ParseExpiry(origin, s); err == nil && e.Equal(expiry) {
			return d.Forwards[i]
		}
	}
	return fallback
}

// ATMVol is the vol struck at the forward for expiry, the quantity scenario ladders report.
func ATMVol(s vol.Surface, expiry time.Time, forward float64) (float64, error) {
	return vol.VolForAbsoluteStrikeAt(s, forward, expiry, forward)
}
