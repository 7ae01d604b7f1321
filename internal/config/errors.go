package config

import "errors"

// Sentinel kinds returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("cannot load configuration")
)
