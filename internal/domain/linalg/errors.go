package linalg

import "errors"

// Sentinel kinds for linear algebra errors.
var (
	// ErrSingularMatrix is returned when a pivot falls below PivotEpsilon.
	ErrSingularMatrix = errors.New("singular matrix")
)
