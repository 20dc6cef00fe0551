package rtree

import "errors"

// --- Error Definitions ---

var (
	ErrMalformedPage      = errors.New("malformed page: entry count exceeds page space")
	ErrDimensionMismatch  = errors.New("point dimensionality does not match index")
	ErrInvariantViolation = errors.New("tree invariant violation")
)
