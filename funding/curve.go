// Package funding provides the discount-curve and FX collaborators consumed by vol surfaces:
// discount factors, FX forwards by covered interest parity, and forward-price functions.
package funding

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/volib/utils"
)

// Curve is a discount curve on pillar dates with log-linear interpolation of discount
// factors (piecewise flat forwards) and flat-forward extrapolation beyond the last pillar.
type Curve struct {
	origin   time.Time
	currency string
	pillars  []time.Time
	times    []float64
	dfs      map[time.Time]float64
	dayCount utils.DayCount
}

// NewCurveFromDFs creates a curve from explicitly provided discount factors. The origin is
// added as a pillar with DF = 1 when absent.
func NewCurveFromDFs(origin time.Time, currency string, dfs map[time.Time]float64) (*Curve, error) {
	c := &Curve{
		origin:   origin,
		currency: currency,
		dfs:      make(map[time.Time]float64, len(dfs)+1),
		dayCount: utils.Act365F,
	}
	for t, df := range dfs {
		if df <= 0 {
			return nil, fmt.Errorf("NewCurveFromDFs: non-positive discount factor %g on %s", df, utils.FormatDate(t))
		}
		if t.Before(origin) {
			return nil, fmt.Errorf("NewCurveFromDFs: pillar %s before origin", utils.FormatDate(t))
		}
		c.dfs[t] = df
	}
	if _, ok := c.dfs[origin]; !ok {
		c.dfs[origin] = 1.0
	}
	for t := range c.dfs {
		c.pillars = append(c.pillars, t)
	}
	utils.SortDates(c.pillars)
	c.times = make([]float64, len(c.pillars))
	for i, p := range c.pillars {
		c.times[i] = utils.YearFraction(origin, p, c.dayCount)
	}
	return c, nil
}

// NewFlatCurve creates a curve with a constant continuously-compounded zero rate.
func NewFlatCurve(origin time.Time, currency string, rate float64) *Curve {
	end := origin.AddDate(100, 0, 0)
	t := utils.YearFraction(origin, end, utils.Act365F)
	c, _ := NewCurveFromDFs(origin, currency, map[time.Time]float64{end: math.Exp(-rate * t)})
	return c
}

// Origin returns the curve's anchor date.
func (c *Curve) Origin() time.Time {
	return c.origin
}

// Currency returns the currency the curve discounts.
func (c *Curve) Currency() string {
	return c.currency
}

// DF returns the discount factor to date t.
func (c *Curve) DF(t time.Time) float64 {
	if df, ok := c.dfs[t]; ok {
		return df
	}
	return c.DFYears(utils.YearFraction(c.origin, t, c.dayCount))
}

// DFYears returns the discount factor to a time expressed in ACT/365F years from origin.
func (c *Curve) DFYears(t float64) float64 {
	if len(c.pillars) == 1 {
		return c.dfs[c.pillars[0]]
	}
	i := utils.BracketIndex(c.times, t)
	df1 := c.dfs[c.pillars[i]]
	df2 := c.dfs[c.pillars[i+1]]
	t1, t2 := c.times[i], c.times[i+1]
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(t-t1))
}

// ZeroRateAt returns the continuously-compounded zero rate to t, in decimal.
func (c *Curve) ZeroRateAt(t time.Time) float64 {
	yearFrac := utils.YearFraction(c.origin, t, c.dayCount)
	if yearFrac <= 0 {
		return 0
	}
	return -math.Log(c.DF(t)) / yearFrac
}
