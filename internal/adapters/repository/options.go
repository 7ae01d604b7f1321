package repository

import "time"

// CohortOption applies a configuration option to the MemoryCohortStore.
type CohortOption func(*MemoryCohortStore)

// WithMaxSubjects caps the number of subjects per cohort. 0 disables the cap.
func WithMaxSubjects(n int) CohortOption {
	return func(s *MemoryCohortStore) {
		if n >= 0 {
			s.maxSubjects = n
		}
	}
}

// JobOption applies a configuration option to the MemoryJobStore.
type JobOption func(*MemoryJobStore)

// WithRetention sets how long finished jobs are kept. 0 keeps them forever.
func WithRetention(d time.Duration) JobOption {
	return func(s *MemoryJobStore) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithJanitorInterval sets how often expired jobs are pruned.
func WithJanitorInterval(d time.Duration) JobOption {
	return func(s *MemoryJobStore) {
		if d > 0 {
			s.janitorInterval = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) JobOption {
	return func(s *MemoryJobStore) {
		if now != nil {
			s.now = now
		}
	}
}
