package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/metrics"
)

const defaultJanitorInterval = time.Minute

// MemoryJobStore is a map-backed JobStore. Finished jobs older than the
// retention period are pruned by a background janitor.
type MemoryJobStore struct {
	mu              sync.RWMutex
	jobs            map[string]*model.Job
	retention       time.Duration
	janitorInterval time.Duration
	now             func() time.Time

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

var _ JobStore = (*MemoryJobStore)(nil)

// NewJobStore constructs a job store and starts its janitor. The janitor
// stops when ctx is cancelled or Close is called.
func NewJobStore(ctx context.Context, opts ...JobOption) *MemoryJobStore {
	s := &MemoryJobStore{
		jobs:            make(map[string]*model.Job),
		retention:       time.Hour,
		janitorInterval: defaultJanitorInterval,
		now:             time.Now,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retention > 0 {
		s.startJanitor(ctx)
	}
	return s
}

func (s *MemoryJobStore) startJanitor(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Prune()
			}
		}
	}()
}

// Close stops the janitor.
func (s *MemoryJobStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Prune drops finished jobs older than the retention period and returns
// how many were removed.
func (s *MemoryJobStore) Prune() int {
	if s.retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	removed := 0
	for id, j := range s.jobs {
		if j.Done() && j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	n := len(s.jobs)
	s.mu.Unlock()

	metrics.UpdateJobsStored(n)
	return removed
}

func (s *MemoryJobStore) Create(_ context.Context, job model.Job) error {
	s.mu.Lock()
	if _, ok := s.jobs[job.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%q: %w", job.ID, ErrJobExists)
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	s.jobs[job.ID] = &job
	n := len(s.jobs)
	s.mu.Unlock()

	metrics.UpdateJobsStored(n)
	return nil
}

func (s *MemoryJobStore) Start(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(j *model.Job) {
		j.Status = model.JobRunning
		j.StartedAt = &at
	})
}

func (s *MemoryJobStore) Complete(_ context.Context, id string, sum *model.Summary, at time.Time) error {
	return s.update(id, func(j *model.Job) {
		j.Status = model.JobSucceeded
		j.Summary = sum
		j.FinishedAt = &at
	})
}

func (s *MemoryJobStore) Fail(_ context.Context, id string, reason string, at time.Time) error {
	return s.update(id, func(j *model.Job) {
		j.Status = model.JobFailed
		j.Error = reason
		j.FinishedAt = &at
	})
}

func (s *MemoryJobStore) update(id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrJobNotFound)
	}
	fn(j)
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "job_not_found")
		return model.Job{}, fmt.Errorf("%q: %w", id, ErrJobNotFound)
	}
	return *j, nil
}

func (s *MemoryJobStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
