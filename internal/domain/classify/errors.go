package classify

import "errors"

// Sentinel kinds for classification errors.
var (
	ErrUnknownScheme = errors.New("unknown classification scheme")
)
