package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/metrics"
)

// MemoryCohortStore is a map-backed CohortStore.
type MemoryCohortStore struct {
	mu          sync.RWMutex
	cohorts     map[string]*model.Cohort
	maxSubjects int
	validate    *validator.Validate
}

var _ CohortStore = (*MemoryCohortStore)(nil)

// NewCohortStore constructs an empty cohort store.
func NewCohortStore(opts ...CohortOption) *MemoryCohortStore {
	s := &MemoryCohortStore{
		cohorts:  make(map[string]*model.Cohort),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks c without storing it.
func (s *MemoryCohortStore) Validate(c *model.Cohort) error {
	if c == nil {
		return fmt.Errorf("%w: nil cohort", ErrInvalidCohort)
	}
	if err := s.validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCohort, c.ID, err)
	}
	if s.maxSubjects > 0 && len(c.Subjects) > s.maxSubjects {
		return fmt.Errorf("%w: %s: %d subjects exceeds limit %d", ErrInvalidCohort, c.ID, len(c.Subjects), s.maxSubjects)
	}
	return nil
}

func (s *MemoryCohortStore) Put(_ context.Context, c *model.Cohort) error {
	if err := s.Validate(c); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_cohort")
		return err
	}
	s.mu.Lock()
	s.cohorts[c.ID] = c
	n := len(s.cohorts)
	s.mu.Unlock()

	metrics.UpdateCohortsStored(n)
	return nil
}

func (s *MemoryCohortStore) Get(_ context.Context, id string) (*model.Cohort, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	c, ok := s.cohorts[id]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("%q: %w", id, ErrCohortNotFound)
	}
	return c, nil
}

func (s *MemoryCohortStore) List(_ context.Context) []model.CohortInfo {
	s.mu.RLock()
	out := make([]model.CohortInfo, 0, len(s.cohorts))
	for _, c := range s.cohorts {
		out = append(out, c.Info())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryCohortStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.cohorts[id]
	delete(s.cohorts, id)
	n := len(s.cohorts)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%q: %w", id, ErrCohortNotFound)
	}
	metrics.UpdateCohortsStored(n)
	return nil
}

func (s *MemoryCohortStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cohorts)
}
