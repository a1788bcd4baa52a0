package vol

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/funding"
	"github.com/meenmo/volib/utils"
)

// FxModel is the funding collaborator of composite surfaces. *funding.Model satisfies it.
type FxModel interface {
	GetFxRate(date time.Time, domesticCcy, foreignCcy string) (float64, error)
	GetFxPair(domesticCcy, foreignCcy string) (funding.FxPair, error)
}

// CalculationType selects where the asset leg of a composite surface is read.
type CalculationType int

const (
	// CompositeBlack reads the asset vol at the asset forward.
	CompositeBlack CalculationType = iota
	// CompositeAssetSkewOnly reads the asset vol at the composite strike converted to asset
	// currency.
	CompositeAssetSkewOnly
)

func (c CalculationType) String() string {
	if c == CompositeAssetSkewOnly {
		return "AssetSkewOnly"
	}
	return "Black"
}

// Composite is the vol of an asset quoted in another currency (Meta.Currency). It combines the
// asset surface and the ATM vol of the FX surface for the pair asset currency/composite currency
// as sqrt(vA^2 + vFx^2 + 2*rho*vA*vFx).
type Composite struct {
	base
	asset       Surface
	fx          Surface
	correlation float64
	model       FxModel
	calculation CalculationType
}

// NewComposite wires the two surfaces. The surfaces are referenced, not copied.
func NewComposite(m Meta, asset, fx Surface, correlation float64, model FxModel, calculation CalculationType) (*Composite, error) {
	if asset == nil || fx == nil || model == nil {
		return nil, fmt.Errorf("NewComposite: %w: nil surface or funding model", ErrInvalidInput)
	}
	if correlation < -1 || correlation > 1 {
		return nil, fmt.Errorf("NewComposite: %w: correlation %g outside [-1, 1]", ErrInvalidInput, correlation)
	}
	c := &Composite{asset: asset, fx: fx, correlation: correlation, model: model, calculation: calculation}
	c.init(m)
	return c, nil
}

func (c *Composite) Correlation() float64 { return c.correlation }

// fxForward returns the FX forward (composite currency per asset currency) delivered at the
// spot date of the maturity's date.
func (c *Composite) fxForward(maturity float64) (float64, error) {
	pair, err := c.model.GetFxPair(c.asset.Currency(), c.currency)
	if err != nil {
		return 0, err
	}
	date := utils.DateFromYearFraction(c.origin, maturity, c.dayCount)
	return c.model.GetFxRate(pair.SpotDate(date), c.asset.Currency(), c.currency)
}

// GetVolForAbsoluteStrike takes a strike and forward in the composite currency.
func (c *Composite) GetVolForAbsoluteStrike(strike, maturity, forward float64) (float64, error) {
	fxFwd, err := c.fxForward(maturity)
	if err != nil {
		return 0, fmt.Errorf("Composite.GetVolForAbsoluteStrike: %w", err)
	}
	if fxFwd <= 0 {
		return 0, fmt.Errorf("Composite.GetVolForAbsoluteStrike: %w: FX forward %g", ErrInvalidInput, fxFwd)
	}
	assetFwd := forward / fxFwd
	assetStrike := assetFwd
	if c.calculation == CompositeAssetSkewOnly {
		assetStrike = strike / fxFwd
	}
	volAsset, err := c.asset.GetVolForAbsoluteStrike(assetStrike, maturity, assetFwd)
	if err != nil {
		return 0, fmt.Errorf("Composite.GetVolForAbsoluteStrike: asset: %w", err)
	}
	volFx, err := c.fx.GetVolForAbsoluteStrike(fxFwd, maturity, fxFwd)
	if err != nil {
		return 0, fmt.Errorf("Composite.GetVolForAbsoluteStrike: fx: %w", err)
	}
	return compositeVol(volAsset, volFx, c.correlation), nil
}

func compositeVol(volAsset, volFx, correlation float64) float64 {
	return math.Sqrt(volAsset*volAsset + volFx*volFx + 2*correlation*volAsset*volFx)
}

// GetVolForDeltaStrike inverts the composite smile for the strike matching deltaStrike.
func (c *Composite) GetVolForDeltaStrike(deltaStrike, maturity, forward float64) (float64, error) {
	v, err := volForDelta(func(k float64) (float64, error) {
		return c.GetVolForAbsoluteStrike(k, maturity, forward)
	}, deltaStrike, maturity, forward)
	if err != nil {
		return 0, fmt.Errorf("Composite.GetVolForDeltaStrike: %w", err)
	}
	return v, nil
}

// GetATMVegaScenarios is not offered: bump the asset or FX surface instead.
func (c *Composite) GetATMVegaScenarios(float64, *time.Time) (map[string]Surface, error) {
	return nil, fmt.Errorf("Composite.GetATMVegaScenarios: %w", ErrNotSupported)
}
