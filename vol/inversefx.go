package vol

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/meenmo/volib/interpolation"
)

// InverseFx reads an FX surface for the reciprocal pair: strikes and forwards are inverted and
// deltas change sign. It holds no numeric state of its own.
type InverseFx struct {
	underlying Surface
	assetID    string
	currency   string
	localVol   atomic.Pointer[localVolSlot]
}

// NewInverseFx wraps s. A six-letter asset id such as USDZAR becomes ZARUSD, quoted in USD.
func NewInverseFx(s Surface) *InverseFx {
	id, ccy := s.AssetID(), s.Currency()
	if len(id) == 6 {
		id, ccy = id[3:]+id[:3], id[:3]
	}
	return &InverseFx{underlying: s, assetID: id, currency: ccy}
}

// Underlying returns the wrapped surface.
func (s *InverseFx) Underlying() Surface { return s.underlying }

func (s *InverseFx) OriginDate() time.Time { return s.underlying.OriginDate() }
func (s *InverseFx) Currency() string      { return s.currency }
func (s *InverseFx) AssetID() string       { return s.assetID }

func (s *InverseFx) TimeToMaturity(expiry time.Time) float64 {
	return s.underlying.TimeToMaturity(expiry)
}

func (s *InverseFx) LocalVolGrid() interpolation.Interpolator2D {
	if slot := s.localVol.Load(); slot != nil {
		return slot.grid
	}
	return nil
}

func (s *InverseFx) SetLocalVolGrid(grid interpolation.Interpolator2D) {
	s.localVol.Store(&localVolSlot{grid: grid})
}

func (s *InverseFx) PillarDatesForLabel(label string) (time.Time, bool) {
	return s.underlying.PillarDatesForLabel(label)
}

func (s *InverseFx) GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	if strike <= 0 || forward <= 0 {
		return 0, fmt.Errorf("InverseFx.GetVolForAbsoluteStrike: %w: strike %g, forward %g", ErrInvalidInput, strike, forward)
	}
	return s.underlying.GetVolForAbsoluteStrike(1/strike, maturity, 1/forward)
}

func (s *InverseFx) GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error) {
	if forward <= 0 {
		return 0, fmt.Errorf("InverseFx.GetVolForDeltaStrike: %w: forward %g", ErrInvalidInput, forward)
	}
	return s.underlying.GetVolForDeltaStrike(-deltaStrike, maturity, 1/forward)
}

// GetForwardATMVol delegates to an ATM-capable underlying: the ATM vol of the reciprocal pair
// is the same.
func (s *InverseFx) GetForwardATMVol(start, end float64) (float64, error) {
	atm, ok := s.underlying.(ATMSurface)
	if !ok {
		return 0, fmt.Errorf("InverseFx.GetForwardATMVol: %w", ErrNotSupported)
	}
	return atm.GetForwardATMVol(start, end)
}

// GetATMVegaScenarios wraps each scenario of the underlying surface.
func (s *InverseFx) GetATMVegaScenarios(bumpSize float64, lastDate *time.Time) (map[string]Surface, error) {
	scenarios, err := s.underlying.GetATMVegaScenarios(bumpSize, lastDate)
	if err != nil {
		return nil, fmt.Errorf("InverseFx.GetATMVegaScenarios: %w", err)
	}
	out := make(map[string]Surface, len(scenarios))
	for label, u := range scenarios {
		out[label] = NewInverseFx(u)
	}
	return out, nil
}
