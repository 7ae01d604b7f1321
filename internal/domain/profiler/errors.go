package profiler

import "errors"

// Sentinel kinds for single-subject lookups. Batch aggregation never
// surfaces these; it skips the subject instead.
var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrNoQualifyingData = errors.New("no qualifying data")
)
