package vol

import (
	"fmt"
	"time"
)

// ConstantPillarLabel keys the single vega scenario of a constant surface.
const ConstantPillarLabel = "ALL"

// Constant is a flat surface: the same vol at every strike and maturity.
type Constant struct {
	base
	vol float64
}

// NewConstant returns a flat surface. vol must be non-negative.
func NewConstant(m Meta, vol float64) (*Constant, error) {
	if vol < 0 {
		return nil, fmt.Errorf("NewConstant: %w: negative vol %g", ErrInvalidInput, vol)
	}
	c := &Constant{vol: vol}
	c.init(m)
	return c, nil
}

func (c *Constant) Vol() float64 { return c.vol }

func (c *Constant) GetVolForAbsoluteStrike(float64, float64, float64) (float64, error) {
	return c.vol, nil
}

func (c *Constant) GetVolForDeltaStrike(deltaStrike, _, _ float64) (float64, error) {
	if err := checkDelta(deltaStrike); err != nil {
		return 0, fmt.Errorf("Constant.GetVolForDeltaStrike: %w", err)
	}
	return c.vol, nil
}

func (c *Constant) GetForwardATMVol(start, end float64) (float64, error) {
	if start > end || start < 0 {
		return 0, fmt.Errorf("Constant.GetForwardATMVol: %w: start %g, end %g", ErrInvalidInput, start, end)
	}
	return c.vol, nil
}

// GetATMVegaScenarios returns the whole surface shifted, keyed by ConstantPillarLabel.
func (c *Constant) GetATMVegaScenarios(bumpSize float64, _ *time.Time) (map[string]Surface, error) {
	bumped, err := NewConstant(c.meta(), c.vol+bumpSize)
	if err != nil {
		return nil, err
	}
	return map[string]Surface{ConstantPillarLabel: bumped}, nil
}
