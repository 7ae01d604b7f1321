package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrCohortNotFound = errors.New("cohort not found")
	ErrJobNotFound    = errors.New("job not found")
	ErrJobExists      = errors.New("job already exists")
	ErrInvalidCohort  = errors.New("invalid cohort")
	ErrDataset        = errors.New("dataset")
)
