package vol

import "errors"

var (
	// ErrInvalidInput reports a violated input contract: mismatched array lengths, unsorted
	// pillars, non-positive times or strikes, start > end.
	ErrInvalidInput = errors.New("vol: invalid input")

	// ErrDeltaOutOfRange reports a delta strike outside (-1, 1).
	ErrDeltaOutOfRange = errors.New("vol: delta strike outside (-1, 1)")

	// ErrNegativeForwardVariance reports an ATM term structure whose total variance decreases.
	ErrNegativeForwardVariance = errors.New("vol: negative forward variance")

	// ErrNotSupported reports an operation the surface kind does not offer.
	ErrNotSupported = errors.New("vol: not supported for this surface kind")

	// ErrPointNotFound reports a sparse-surface lookup with no quoted point.
	ErrPointNotFound = errors.New("vol: point not found")
)
