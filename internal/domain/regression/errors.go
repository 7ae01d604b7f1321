package regression

import "errors"

// Sentinel kinds for regression errors.
var (
	// ErrInsufficientData describes a fit with fewer points than unknowns.
	// Fitters never return it; they produce the zero result instead.
	ErrInsufficientData = errors.New("insufficient data for regression")
)
