package vol

import (
	"fmt"
	"math"

	"github.com/meenmo/volib/blackscholes"
	"github.com/meenmo/volib/config"
	"github.com/meenmo/volib/logging"
	"github.com/meenmo/volib/solver"
)

func checkDelta(delta float64) error {
	if !(delta > -1 && delta < 1) {
		return fmt.Errorf("%w: %g", ErrDeltaOutOfRange, delta)
	}
	return nil
}

// callDelta maps a delta strike to the equivalent undiscounted call delta: puts map to 1+delta.
func callDelta(delta float64) float64 {
	if delta < 0 {
		return 1 + delta
	}
	return delta
}

// AbsoluteStrikeForDelta returns the strike whose Black forward delta, evaluated with the
// surface's own vol at that strike, equals delta (negative for puts). The search runs over
// (StrikeSearchLower, StrikeSearchUpperMultiple*forward); a root outside that range is an error.
func AbsoluteStrikeForDelta(s Surface, delta, maturity, forward float64) (float64, error) {
	return strikeForDelta(func(k float64) (float64, error) {
		return s.GetVolForAbsoluteStrike(k, maturity, forward)
	}, delta, maturity, forward)
}

func strikeForDelta(volAt func(strike float64) (float64, error), delta, maturity, forward float64) (float64, error) {
	if err := checkDelta(delta); err != nil {
		return 0, err
	}
	if maturity <= 0 || forward <= 0 {
		return 0, fmt.Errorf("%w: delta search needs positive maturity and forward, got %g and %g", ErrInvalidInput, maturity, forward)
	}
	cp := blackscholes.Call
	if delta < 0 {
		cp = blackscholes.Put
	}

	var queryErr error
	f := func(k float64) float64 {
		v, err := volAt(k)
		if err != nil {
			if queryErr == nil {
				queryErr = err
			}
			return math.NaN()
		}
		return blackscholes.BlackDelta(forward, k, 0, maturity, v, cp) - delta
	}

	c := config.GetConfig()
	k, err := solver.BrentStrict(f, c.StrikeSearchLower, c.StrikeSearchUpperMultiple*forward, c.BrentTolerance, c.BrentMaxIterations)
	if queryErr != nil {
		return 0, queryErr
	}
	if err != nil {
		return 0, fmt.Errorf("strike for delta %g at T=%g: %w", delta, maturity, err)
	}
	return k, nil
}

// volForDelta evaluates volAt at the strike matching delta.
func volForDelta(volAt func(strike float64) (float64, error), delta, maturity, forward float64) (float64, error) {
	k, err := strikeForDelta(volAt, delta, maturity, forward)
	if err != nil {
		return 0, err
	}
	return volAt(k)
}

// deltaAxisVolAtStrike inverts a smile quoted on call forward delta at an absolute strike.
// volAt maps a call delta to a vol. The search runs over put deltas (-1+eps, -eps). A strike
// beyond what that range reaches takes the vol of the nearer end: this is a bounded
// approximation, not an inversion.
func deltaAxisVolAtStrike(volAt func(callDelta float64) float64, strike, maturity, forward float64) (float64, error) {
	if maturity <= 0 || strike <= 0 || forward <= 0 {
		return 0, fmt.Errorf("%w: strike %g, maturity %g, forward %g", ErrInvalidInput, strike, maturity, forward)
	}
	c := config.GetConfig()
	f := func(putDelta float64) float64 {
		v := volAt(1 + putDelta)
		return blackscholes.AbsoluteStrikefromDeltaKAnalytic(forward, putDelta, 0, maturity, v) - strike
	}

	lo, hi := -1+c.FlatDeltaPoint, -c.FlatDeltaPoint
	flo, fhi := f(lo), f(hi)
	var putDelta float64
	switch {
	case flo == 0:
		putDelta = lo
	case fhi == 0:
		putDelta = hi
	case (flo > 0) == (fhi > 0):
		putDelta = lo
		if math.Abs(fhi) < math.Abs(flo) {
			putDelta = hi
		}
		logging.Get().Debug("strike outside delta range, using nearer bound",
			"strike", strike, "maturity", maturity, "forward", forward, "put_delta", putDelta)
	default:
		var err error
		putDelta, err = solver.Brent(f, lo, hi, c.BrentTolerance, c.BrentMaxIterations)
		if err != nil {
			return 0, fmt.Errorf("delta for strike %g at T=%g: %w", strike, maturity, err)
		}
	}
	return volAt(1 + putDelta), nil
}

// forwardATMVol applies variance additivity to an ATM term structure.
func forwardATMVol(atm func(t float64) (float64, error), start, end float64) (float64, error) {
	if start > end || start < 0 {
		return 0, fmt.Errorf("%w: forward vol needs 0 <= start <= end, got %g and %g", ErrInvalidInput, start, end)
	}
	volEnd, err := atm(end)
	if err != nil {
		return 0, err
	}
	if start == 0 || start == end {
		return volEnd, nil
	}
	volStart, err := atm(start)
	if err != nil {
		return 0, err
	}
	fwdVar := (volEnd*volEnd*end - volStart*volStart*start) / (end - start)
	if fwdVar < 0 {
		return 0, fmt.Errorf("%w: %g between T=%g and T=%g", ErrNegativeForwardVariance, fwdVar, start, end)
	}
	return math.Sqrt(fwdVar), nil
}
