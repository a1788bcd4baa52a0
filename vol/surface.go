// Package vol implements implied volatility surfaces: the common query contract, the concrete
// parameterisations (constant, grid, risky-fly, SABR, SVI, sparse, composite, inverse FX),
// bucketed risk scenarios and strike-space distribution extraction.
package vol

import (
	"sync/atomic"
	"time"

	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/utils"
)

// Surface is the query contract every volatility surface satisfies.
//
// Maturities are year fractions from OriginDate (see TimeToMaturity). Strikes passed to
// GetVolForAbsoluteStrike are prices; GetVolForDeltaStrike takes an undiscounted forward delta,
// positive for calls and negative for puts. Implementations are safe for concurrent queries.
type Surface interface {
	OriginDate() time.Time
	Currency() string
	AssetID() string
	TimeToMaturity(expiry time.Time) float64

	// LocalVolGrid returns the local-vol grid attached with SetLocalVolGrid, or nil.
	LocalVolGrid() interpolation.Interpolator2D
	SetLocalVolGrid(grid interpolation.Interpolator2D)

	GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error)
	GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error)

	// GetATMVegaScenarios returns one bumped surface per pillar label. Pillars after lastDate
	// are skipped except for the first two; a nil lastDate keeps every pillar.
	GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error)

	// PillarDatesForLabel resolves a scenario label to its pillar expiry.
	PillarDatesForLabel(label string) (time.Time, bool)
}

// ATMSurface is a surface with a term structure of ATM volatility.
type ATMSurface interface {
	Surface

	// GetForwardATMVol returns the ATM volatility between two maturities implied by the ATM
	// total variance term structure. start must not exceed end.
	GetForwardATMVol(start, end float64) (float64, error)
}

// Meta identifies a surface.
type Meta struct {
	Origin   time.Time
	Currency string
	AssetID  string
}

// base carries the identity and the local-vol slot shared by all surface kinds.
// It must not be copied after first use.
type base struct {
	origin   time.Time
	currency string
	assetID  string
	dayCount utils.DayCount
	localVol atomic.Pointer[localVolSlot]
	pillars  map[string]time.Time
}

type localVolSlot struct {
	grid interpolation.Interpolator2D
}

func (b *base) init(m Meta) {
	b.origin = m.Origin
	b.currency = m.Currency
	b.assetID = m.AssetID
	b.dayCount = utils.Act365F
}

func (b *base) meta() Meta {
	return Meta{Origin: b.origin, Currency: b.currency, AssetID: b.assetID}
}

func (b *base) OriginDate() time.Time { return b.origin }
func (b *base) Currency() string      { return b.currency }
func (b *base) AssetID() string       { return b.assetID }

// TimeToMaturity returns the ACT/365F year fraction from the origin date to expiry.
func (b *base) TimeToMaturity(expiry time.Time) float64 {
	return utils.YearFraction(b.origin, expiry, b.dayCount)
}

func (b *base) LocalVolGrid() interpolation.Interpolator2D {
	if s := b.localVol.Load(); s != nil {
		return s.grid
	}
	return nil
}

func (b *base) SetLocalVolGrid(grid interpolation.Interpolator2D) {
	b.localVol.Store(&localVolSlot{grid: grid})
}

func (b *base) PillarDatesForLabel(label string) (time.Time, bool) {
	d, ok := b.pillars[label]
	return d, ok
}

// VolForAbsoluteStrikeAt queries s at an expiry date.
func VolForAbsoluteStrikeAt(s Surface, strike float64, expiry time.Time, forward float64) (float64, error) {
	return s.GetVolForAbsoluteStrike(strike, s.TimeToMaturity(expiry), forward)
}

// VolForDeltaStrikeAt queries s by delta at an expiry date.
func VolForDeltaStrikeAt(s Surface, deltaStrike float64, expiry time.Time, forward float64) (float64, error) {
	return s.GetVolForDeltaStrike(deltaStrike, s.TimeToMaturity(expiry), forward)
}

// ForwardATMVolBetween returns the forward ATM vol between two dates.
func ForwardATMVolBetween(s ATMSurface, start, end time.Time) (float64, error) {
	return s.GetForwardATMVol(s.TimeToMaturity(start), s.TimeToMaturity(end))
}
