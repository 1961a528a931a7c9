package economy

import "errors"

var (
	// ErrInvalidQuantity is returned for non-finite ledger deltas.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidDays is returned when a time advance is not strictly positive.
	ErrInvalidDays = errors.New("invalid day count")

	// ErrUnknownCommodity is returned when decoding a commodity name that is not in the enum.
	ErrUnknownCommodity = errors.New("unknown commodity")

	// ErrCorruptState is returned by Validate for structurally invalid economy data.
	ErrCorruptState = errors.New("corrupt economy state")
)
