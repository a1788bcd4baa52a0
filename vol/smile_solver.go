package vol

import (
	"fmt"
	"math"

	"github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/interpolation"
	"github.com/meenmo/volib/solver"
)

// WingQuoteType is the risk-reversal/butterfly quoting convention.
type WingQuoteType int

const (
	// SimpleWingQuotes: call = ATM + BF + RR/2 and put = ATM + BF - RR/2 at each wing delta.
	SimpleWingQuotes WingQuoteType = iota
	// MarketWingQuotes: BF is the market strangle. The smile must reprice a strangle struck at
	// the wing deltas of a single vol ATM + BF, and call - put vol at the smile deltas is RR.
	MarketWingQuotes
)

// ATMType is the ATM quoting convention.
type ATMType int

const (
	// ATMDeltaNeutralStraddle quotes ATM at the 0.5 call delta.
	ATMDeltaNeutralStraddle ATMType = iota
	// ATMForward quotes ATM at strike = forward.
	ATMForward
)

// DeltaOrder declares the order of the wing delta array.
type DeltaOrder int

const (
	// DeltaOrderAuto detects the order from the first two wings. A single wing is unambiguous.
	DeltaOrderAuto DeltaOrder = iota
	DeltaOrderAscending
	DeltaOrderDescending
)

func (o DeltaOrder) String() string {
	switch o {
	case DeltaOrderAscending:
		return "Ascending"
	case DeltaOrderDescending:
		return "Descending"
	default:
		return "Auto"
	}
}

// RiskyFlyConventions selects how risk-reversal, butterfly and ATM quotes are read.
type RiskyFlyConventions struct {
	WingQuoteType WingQuoteType
	ATMType       ATMType
	DeltaOrder    DeltaOrder
}

// wingOrder validates wing deltas and returns the permutation that sorts them ascending.
func wingOrder(wingDeltas []float64, order DeltaOrder) ([]int, error) {
	n := len(wingDeltas)
	if n == 0 {
		return nil, fmt.Errorf("%w: no wing deltas", ErrInvalidInput)
	}
	for _, w := range wingDeltas {
		if !(w > 0 && w < 0.5) {
			return nil, fmt.Errorf("%w: wing delta %g outside (0, 0.5)", ErrInvalidInput, w)
		}
	}
	ascending := true
	if n > 1 {
		ascending = wingDeltas[1] > wingDeltas[0]
		for j := 1; j < n; j++ {
			if (wingDeltas[j] > wingDeltas[j-1]) != ascending || wingDeltas[j] == wingDeltas[j-1] {
				return nil, fmt.Errorf("%w: wing deltas %v not strictly monotone", ErrInvalidInput, wingDeltas)
			}
		}
	}
	switch order {
	case DeltaOrderAscending:
		if !ascending {
			return nil, fmt.Errorf("%w: wing deltas %v are not ascending", ErrInvalidInput, wingDeltas)
		}
	case DeltaOrderDescending:
		if n > 1 && ascending {
			return nil, fmt.Errorf("%w: wing deltas %v are not descending", ErrInvalidInput, wingDeltas)
		}
	}
	perm := make([]int, n)
	for j := range perm {
		if ascending {
			perm[j] = j
		} else {
			perm[j] = n - 1 - j
		}
	}
	return perm, nil
}

// riskyFlyAxis lays out the call-delta axis for ascending wings: the wings, 0.5, then the
// complements 1-w in ascending order.
func riskyFlyAxis(wings []float64) []float64 {
	n := len(wings)
	axis := make([]float64, 2*n+1)
	for j, w := range wings {
		axis[j] = w
		axis[2*n-j] = 1 - w
	}
	axis[n] = 0.5
	return axis
}

// riskyFlyRow is one expiry's quotes with wings sorted ascending.
type riskyFlyRow struct {
	atm     float64
	forward float64
	t       float64
	wings   []float64
	riskies []float64
	flies   []float64
}

func (r riskyFlyRow) flat() bool {
	for j := range r.wings {
		if r.riskies[j] != 0 || r.flies[j] != 0 {
			return false
		}
	}
	return true
}

// fillRow writes call vols at the wing deltas, put vols at their complements and the centre.
func fillRow(axisLen int, calls, puts []float64, centre float64) []float64 {
	n := len(calls)
	vols := make([]float64, axisLen)
	for j := range calls {
		vols[j] = calls[j]
		vols[2*n-j] = puts[j]
	}
	vols[n] = centre
	return vols
}

// solveRiskyFlyRow returns the vols on riskyFlyAxis(r.wings) reproducing the row's quotes.
func solveRiskyFlyRow(r riskyFlyRow, conv RiskyFlyConventions, kind interpolation.Kind) ([]float64, error) {
	axis := riskyFlyAxis(r.wings)
	n := len(r.wings)
	if r.flat() {
		return fillRow(len(axis), make([]float64, n), make([]float64, n), r.atm), nil
	}

	calls := make([]float64, n)
	puts := make([]float64, n)
	for j := range r.wings {
		calls[j] = r.atm + r.flies[j] + r.riskies[j]/2
		puts[j] = r.atm + r.flies[j] - r.riskies[j]/2
	}

	if conv.WingQuoteType == SimpleWingQuotes {
		if conv.ATMType == ATMDeltaNeutralStraddle {
			return fillRow(len(axis), calls, puts, r.atm), nil
		}
		centre, err := solveForwardATMCentre(r, axis, calls, puts, kind)
		if err != nil {
			return nil, err
		}
		return fillRow(len(axis), calls, puts, centre), nil
	}
	return solveMarketRow(r, conv, axis, calls, kind)
}

// forwardATMDelta is the call delta of the strike equal to the forward at the ATM vol.
func forwardATMDelta(r riskyFlyRow) float64 {
	return blackscholes.NormCDF(0.5 * r.atm * math.Sqrt(r.t))
}

// solveForwardATMCentre finds the 0.5-delta vol that puts the ATM quote at strike = forward.
func solveForwardATMCentre(r riskyFlyRow, axis, calls, puts []float64, kind interpolation.Kind) (float64, error) {
	x := forwardATMDelta(r)
	f := func(centre float64) float64 {
		row, err := interpolation.New(axis, fillRow(len(axis), calls, puts, centre), kind)
		if err != nil {
			return math.NaN()
		}
		return row.Interpolate(x) - r.atm
	}
	c := config.GetConfig()
	centre, err := solver.Brent(f, c.ImpliedVolLower, c.ImpliedVolUpper, c.BrentTolerance, c.BrentMaxIterations)
	if err != nil {
		return 0, fmt.Errorf("forward ATM centre vol: %w", err)
	}
	return centre, nil
}

// solveMarketRow solves for call vols (puts follow from the risk reversals) so that each wing
// reprices its market strangle, plus the centre vol under the forward ATM convention.
func solveMarketRow(r riskyFlyRow, conv RiskyFlyConventions, axis, initialCalls []float64, kind interpolation.Kind) ([]float64, error) {
	n := len(r.wings)
	callStrikes := make([]float64, n)
	putStrikes := make([]float64, n)
	strangles := make([]float64, n)
	for j, w := range r.wings {
		ms := r.atm + r.flies[j]
		callStrikes[j] = blackscholes.AbsoluteStrikefromDeltaKAnalytic(r.forward, w, 0, r.t, ms)
		putStrikes[j] = blackscholes.AbsoluteStrikefromDeltaKAnalytic(r.forward, -w, 0, r.t, ms)
		strangles[j] = blackscholes.BlackPV(r.forward, callStrikes[j], 0, r.t, ms, blackscholes.Call) +
			blackscholes.BlackPV(r.forward, putStrikes[j], 0, r.t, ms, blackscholes.Put)
	}

	withCentre := conv.ATMType == ATMForward
	initial := append([]float64(nil), initialCalls...)
	if withCentre {
		initial = append(initial, r.atm)
	}

	rowFor := func(u []float64) (interpolation.Interpolator, error) {
		puts := make([]float64, n)
		for j := range puts {
			puts[j] = u[j] - r.riskies[j]
		}
		centre := r.atm
		if withCentre {
			centre = u[n]
		}
		return interpolation.New(axis, fillRow(len(axis), u[:n], puts, centre), kind)
	}

	residuals := func(u []float64) []float64 {
		out := make([]float64, len(u))
		row, err := rowFor(u)
		if err != nil {
			for i := range out {
				out[i] = math.NaN()
			}
			return out
		}
		volAt := row.Interpolate
		for j := range r.wings {
			vc, errC := deltaAxisVolAtStrike(volAt, callStrikes[j], r.t, r.forward)
			vp, errP := deltaAxisVolAtStrike(volAt, putStrikes[j], r.t, r.forward)
			if errC != nil || errP != nil {
				out[j] = math.NaN()
				continue
			}
			smileStrangle := blackscholes.BlackPV(r.forward, callStrikes[j], 0, r.t, vc, blackscholes.Call) +
				blackscholes.BlackPV(r.forward, putStrikes[j], 0, r.t, vp, blackscholes.Put)
			out[j] = (smileStrangle - strangles[j]) / r.forward
		}
		if withCentre {
			out[n] = volAt(forwardATMDelta(r)) - r.atm
		}
		return out
	}

	c := config.GetConfig()
	fit, err := solver.LeastSquares(residuals, initial, c.GaussNewtonTolerance, c.JacobianBump, c.GaussNewtonMaxIterations)
	if err != nil {
		return nil, fmt.Errorf("market strangle solve: %w", err)
	}
	puts := make([]float64, n)
	for j := range puts {
		puts[j] = fit.Params[j] - r.riskies[j]
	}
	centre := r.atm
	if withCentre {
		centre = fit.Params[n]
	}
	return fillRow(len(axis), fit.Params[:n], puts, centre), nil
}
