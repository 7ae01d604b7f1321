package service

import (
	"time"

	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of job workers and the fan-out limit of
// multi-cohort analysis.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobRetention sets how long finished jobs stay queryable.
func WithJobRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.jobRetention = d
		}
	}
}

// WithMaxSubjects caps the number of subjects per stored cohort.
func WithMaxSubjects(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSubjects = n
		}
	}
}

// WithDefaultScheme sets the scheme used when a request names none.
func WithDefaultScheme(scheme classify.Scheme) Option {
	return func(s *Service) {
		if scheme.Valid() {
			s.defaultScheme = scheme
		}
	}
}

// WithPlaceholders keeps subjects without usable ratings in summaries.
func WithPlaceholders(include bool) Option {
	return func(s *Service) {
		s.placeholders = include
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
