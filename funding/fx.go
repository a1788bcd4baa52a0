package funding

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/calendar"
	"github.com/meenmo/volib/utils"
)

// FxPair describes a currency pair quoted as units of Foreign per one unit of Domestic
// (e.g. Domestic=USD, Foreign=ZAR quotes USDZAR).
type FxPair struct {
	Domestic string
	Foreign  string
	SpotLag  int
	// Calendars are the settlement calendars; spot dates must be business days in all of them.
	Calendars []calendar.CalendarID
}

// NewFxPair builds a pair with the currencies' own settlement calendars.
func NewFxPair(domestic, foreign string, spotLag int) FxPair {
	return FxPair{
		Domestic:  domestic,
		Foreign:   foreign,
		SpotLag:   spotLag,
		Calendars: []calendar.CalendarID{calendar.ForCurrency(domestic), calendar.ForCurrency(foreign)},
	}
}

// String returns the six-letter pair code.
func (p FxPair) String() string {
	return p.Domestic + p.Foreign
}

// SpotDate returns the delivery date for a trade on fromDate.
func (p FxPair) SpotDate(fromDate time.Time) time.Time {
	return calendar.AddJointBusinessDays(fromDate, p.SpotLag, p.Calendars...)
}

// Model holds per-currency discount curves and FX spot quotes as of an origin date.
type Model struct {
	origin time.Time
	curves map[string]*Curve
	pairs  map[string]FxPair
	spots  map[string]float64
}

// NewModel creates an empty model.
func NewModel(origin time.Time) *Model {
	return &Model{
		origin: origin,
		curves: make(map[string]*Curve),
		pairs:  make(map[string]FxPair),
		spots:  make(map[string]float64),
	}
}

// Origin returns the model's build date.
func (m *Model) Origin() time.Time {
	return m.origin
}

// AddCurve registers the discount curve of its currency, replacing any previous one.
func (m *Model) AddCurve(c *Curve) *Model {
	m.curves[c.Currency()] = c
	return m
}

// AddFxSpot registers a pair and its spot rate (Foreign per Domestic, for the pair's spot date).
func (m *Model) AddFxSpot(pair FxPair, spot float64) *Model {
	m.pairs[pair.String()] = pair
	m.spots[pair.String()] = spot
	return m
}

// Curve returns the discount curve for a currency.
func (m *Model) Curve(ccy string) (*Curve, error) {
	c, ok := m.curves[ccy]
	if !ok {
		return nil, fmt.Errorf("funding: no curve for %s", ccy)
	}
	return c, nil
}

// GetFxPair returns the pair definition for domestic/foreign, inverting a registered
// foreign/domestic pair when needed.
func (m *Model) GetFxPair(domesticCcy, foreignCcy string) (FxPair, error) {
	if p, ok := m.pairs[domesticCcy+foreignCcy]; ok {
		return p, nil
	}
	if p, ok := m.pairs[foreignCcy+domesticCcy]; ok {
		return FxPair{Domestic: domesticCcy, Foreign: foreignCcy, SpotLag: p.SpotLag, Calendars: p.Calendars}, nil
	}
	return FxPair{}, fmt.Errorf("funding: no FX pair %s%s", domesticCcy, foreignCcy)
}

// GetFxRate returns the forward rate (units of foreignCcy per domesticCcy) for delivery on
// date, by covered interest parity from the spot date:
// F = S * (DFdom(date)/DFdom(spot)) / (DFfor(date)/DFfor(spot)).
func (m *Model) GetFxRate(date time.Time, domesticCcy, foreignCcy string) (float64, error) {
	if domesticCcy == foreignCcy {
		return 1.0, nil
	}
	spot, pair, err := m.spotFor(domesticCcy, foreignCcy)
	if err != nil {
		return 0, err
	}
	dom, err := m.Curve(domesticCcy)
	if err != nil {
		return 0, err
	}
	forCurve, err := m.Curve(foreignCcy)
	if err != nil {
		return 0, err
	}
	spotDate := pair.SpotDate(m.origin)
	fwd := spot * (dom.DF(date) / dom.DF(spotDate)) / (forCurve.DF(date) / forCurve.DF(spotDate))
	return fwd, nil
}

// spotFor returns the spot in the requested orientation, inverting a registered reverse pair.
func (m *Model) spotFor(domesticCcy, foreignCcy string) (float64, FxPair, error) {
	if s, ok := m.spots[domesticCcy+foreignCcy]; ok {
		return s, m.pairs[domesticCcy+foreignCcy], nil
	}
	if s, ok := m.spots[foreignCcy+domesticCcy]; ok {
		if s == 0 {
			return 0, FxPair{}, fmt.Errorf("funding: zero spot for %s%s", foreignCcy, domesticCcy)
		}
		return 1 / s, m.pairs[foreignCcy+domesticCcy], nil
	}
	return 0, FxPair{}, fmt.Errorf("funding: no FX spot for %s%s", domesticCcy, foreignCcy)
}

// AssetForward returns a forward-price function t -> spot*exp(-carry*t)/DF(t) for an asset
// funded in ccy, with t in ACT/365F years from the model origin. carry is a continuous
// dividend/lease yield.
func (m *Model) AssetForward(spot float64, ccy string, carry float64) (func(t float64) float64, error) {
	c, err := m.Curve(ccy)
	if err != nil {
		return nil, err
	}
	return func(t float64) float64 {
		return spot * math.Exp(-carry*t) / c.DFYears(t)
	}, nil
}

// FxForward returns t -> GetFxRate at the date t years from origin, the forward function an FX
// vol surface is calibrated against.
func (m *Model) FxForward(domesticCcy, foreignCcy string) (func(t float64) float64, error) {
	if _, err := m.GetFxRate(m.origin, domesticCcy, foreignCcy); err != nil {
		return nil, err
	}
	return func(t float64) float64 {
		r, _ := m.GetFxRate(utils.DateFromYearFraction(m.origin, t, utils.Act365F), domesticCcy, foreignCcy)
		return r
	}, nil
}
