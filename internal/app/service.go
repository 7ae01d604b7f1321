// Package service wires the analysis core to storage, the job queue and
// the worker pool, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	jobqueue "github.com/okian/riskprofiler/internal/adapters/mq/queue"
	workerpool "github.com/okian/riskprofiler/internal/adapters/mq/worker"
	"github.com/okian/riskprofiler/internal/adapters/repository"
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/cohort"
	"github.com/okian/riskprofiler/internal/domain/dedupe"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/internal/domain/profiler"
	"github.com/okian/riskprofiler/pkg/logger"
	"github.com/okian/riskprofiler/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	stopTimeout = 30 * time.Second
	// keyStripes bounds the number of locks serialising submissions that
	// share an idempotency key.
	keyStripes = 64
)

// Service implements the API dependencies for the risk profiler.
type Service struct {
	mu sync.RWMutex

	cohorts    *repository.MemoryCohortStore
	jobs       *repository.MemoryJobStore
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	aggregators map[classify.Scheme]*cohort.Aggregator
	profilers   map[classify.Scheme]*profiler.Profiler

	workerCount   int
	queueSize     int
	dedupeSize    int
	jobRetention  time.Duration
	maxSubjects   int
	defaultScheme classify.Scheme
	placeholders  bool

	// keyLocks is held from Claim until the claimed job is stored and
	// queued, so a concurrent submission never sees a claim without its job.
	keyLocks [keyStripes]sync.Mutex

	// cancel stops the background context handed to workers and the job
	// store janitor. It is detached from the Start caller's context.
	cancel context.CancelFunc

	started bool
	logger  logger.Logger
}

// New constructs a Service. Cohorts can be stored and analysed right away;
// jobs need Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		dedupeSize:    10_000,
		jobRetention:  time.Hour,
		maxSubjects:   10_000,
		defaultScheme: classify.FourCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.cohorts = repository.NewCohortStore(repository.WithMaxSubjects(s.maxSubjects))
	s.aggregators = make(map[classify.Scheme]*cohort.Aggregator, 2)
	s.profilers = make(map[classify.Scheme]*profiler.Profiler, 2)
	for _, sc := range []classify.Scheme{classify.FourCategory, classify.FiveCategory} {
		s.aggregators[sc] = cohort.New(cohort.WithScheme(sc), cohort.WithPlaceholders(s.placeholders))
		s.profilers[sc] = profiler.New(profiler.WithScheme(sc))
	}
	return s
}

// Start creates the job store, queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting risk profiler service")

	// Workers outlive ctx so that Stop can drain the queue after a
	// signal cancelled it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.jobs = repository.NewJobStore(runCtx, repository.WithRetention(s.jobRetention))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s, s.jobs)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "risk profiler service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("default_scheme", s.defaultScheme.String()),
		logger.Bool("placeholders", s.placeholders),
	)
	return nil
}

// Stop refuses new jobs, drains the queue and stops the workers. Jobs that
// already exist stay readable through Job. Cancelling the context given to
// Start does not interrupt the drain.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping risk profiler service")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()
	_ = s.jobs.Close()

	s.started = false
	s.logger.Info(ctx, "risk profiler service stopped")
}

// ResolveScheme parses raw, mapping the empty string to the default scheme.
func (s *Service) ResolveScheme(raw string) (classify.Scheme, error) {
	if raw == "" {
		return s.defaultScheme, nil
	}
	return classify.ParseScheme(raw)
}

func (s *Service) scheme(sc classify.Scheme) classify.Scheme {
	if sc.Valid() {
		return sc
	}
	return s.defaultScheme
}

// PutCohort validates and stores c.
func (s *Service) PutCohort(ctx context.Context, c *model.Cohort) error {
	if err := s.cohorts.Put(ctx, c); err != nil {
		s.logger.Warn(ctx, "cohort rejected", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "cohort stored",
		logger.String("cohort_id", c.ID),
		logger.Int("subjects", len(c.Subjects)),
		logger.Int("questions", len(c.Catalog)),
	)
	return nil
}

// LoadDataset stores every cohort of the dataset file at path and returns
// how many were stored. It stops at the first invalid cohort.
func (s *Service) LoadDataset(ctx context.Context, path string) (int, error) {
	cohorts, err := repository.LoadFile(path)
	if err != nil {
		return 0, err
	}
	for i, c := range cohorts {
		if err := s.PutCohort(ctx, c); err != nil {
			return i, fmt.Errorf("%s: cohort %d: %w", path, i, err)
		}
	}
	s.logger.Info(ctx, "dataset loaded", logger.String("path", path), logger.Int("cohorts", len(cohorts)))
	return len(cohorts), nil
}

// Cohorts lists stored cohorts ordered by id.
func (s *Service) Cohorts(ctx context.Context) []model.CohortInfo {
	return s.cohorts.List(ctx)
}

// Cohort returns a stored cohort.
func (s *Service) Cohort(ctx context.Context, id string) (*model.Cohort, error) {
	return s.cohorts.Get(ctx, id)
}

// DeleteCohort removes a stored cohort.
func (s *Service) DeleteCohort(ctx context.Context, id string) error {
	return s.cohorts.Delete(ctx, id)
}

// AnalyzeCohort summarises a stored cohort. An invalid scheme falls back to
// the default.
func (s *Service) AnalyzeCohort(ctx context.Context, cohortID string, sc classify.Scheme) (model.Summary, error) {
	if err := ctx.Err(); err != nil {
		return model.Summary{}, err
	}
	c, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return model.Summary{}, err
	}

	sc = s.scheme(sc)
	start := time.Now()
	sum := s.aggregators[sc].Analyze(c)
	took := time.Since(start)

	recordSummary(sum)
	metrics.RecordAnalysisLatency(float64(took.Microseconds()) / 1000)
	s.logger.Debug(ctx, "cohort analysed",
		logger.String("cohort_id", cohortID),
		logger.String("scheme", sc.String()),
		logger.Int("profiles", sum.TotalSubjects),
		logger.Int("skipped", sum.SkippedSubjects),
		logger.Float64("average_coefficient", sum.AverageCoefficient),
		logger.Duration("took", took),
	)
	return sum, nil
}

func recordSummary(sum model.Summary) {
	metrics.RecordCohortAnalyzed(sum.Scheme.String())
	metrics.RecordSubjectsProfiled(sum.TotalSubjects)
	metrics.RecordSubjectsSkipped(sum.SkippedSubjects)
	for cat, n := range sum.Distribution {
		if n > 0 {
			metrics.RecordCategory(sum.Scheme.String(), string(cat), n)
		}
	}
	for i := range sum.Profiles {
		if m := sum.Profiles[i].Fit.Multi; m != nil {
			metrics.RecordRegressionPath(string(m.Path))
		}
	}
}

// AnalyzeCohorts summarises several cohorts concurrently. Results keep the
// order of ids; the first failure cancels the rest.
func (s *Service) AnalyzeCohorts(ctx context.Context, ids []string, sc classify.Scheme) ([]model.Summary, error) {
	out := make([]model.Summary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for i, id := range ids {
		g.Go(func() error {
			sum, err := s.AnalyzeCohort(gctx, id, sc)
			if err != nil {
				return fmt.Errorf("cohort %q: %w", id, err)
			}
			out[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeSubject profiles one subject of a stored cohort. It returns
// profiler.ErrSubjectNotFound or profiler.ErrNoQualifyingData where the
// batch path would skip.
func (s *Service) AnalyzeSubject(ctx context.Context, cohortID, subjectID string, sc classify.Scheme) (model.Profile, error) {
	c, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return model.Profile{}, err
	}
	p, err := s.profilers[s.scheme(sc)].Analyze(c, subjectID)
	if err != nil {
		s.logger.Debug(ctx, "subject not analysable",
			logger.String("cohort_id", cohortID),
			logger.String("subject_id", subjectID),
			logger.Error(err),
		)
		return model.Profile{}, err
	}
	return p, nil
}

// Chart returns the plotting projection of a cohort summary.
func (s *Service) Chart(ctx context.Context, cohortID string, sc classify.Scheme) (model.Chart, error) {
	sum, err := s.AnalyzeCohort(ctx, cohortID, sc)
	if err != nil {
		return model.Chart{}, err
	}
	return cohort.Chart(sum), nil
}

// Export returns the flat report rows of a cohort summary.
func (s *Service) Export(ctx context.Context, cohortID string, sc classify.Scheme) ([]model.Row, error) {
	sum, err := s.AnalyzeCohort(ctx, cohortID, sc)
	if err != nil {
		return nil, err
	}
	return cohort.Table(sum), nil
}

// SubmitJob queues a background analysis of a stored cohort. A non-empty
// idempotencyKey seen before returns the original job and true instead of
// queueing a new one. A full queue yields an error wrapping
// jobqueue.ErrFull.
func (s *Service) SubmitJob(ctx context.Context, cohortID string, sc classify.Scheme, idempotencyKey string) (model.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, false, ErrNotStarted
	}
	if _, err := s.cohorts.Get(ctx, cohortID); err != nil {
		return model.Job{}, false, err
	}

	job := model.Job{
		ID:          uuid.NewString(),
		CohortID:    cohortID,
		Scheme:      s.scheme(sc),
		Status:      model.JobPending,
		SubmittedAt: time.Now().UTC(),
	}

	if idempotencyKey != "" {
		lock := s.keyLock(idempotencyKey)
		lock.Lock()
		defer lock.Unlock()

		if prior, seen := s.deduper.Claim(ctx, idempotencyKey, job.ID); seen {
			existing, err := s.jobs.Get(ctx, prior)
			if err == nil {
				metrics.RecordJobEvent("duplicate")
				s.logger.Debug(ctx, "duplicate job submission",
					logger.String("idempotency_key", idempotencyKey),
					logger.String("job_id", prior),
				)
				return existing, true, nil
			}
			// The original job was pruned; the key starts over.
			s.deduper.Release(ctx, idempotencyKey, prior)
			s.deduper.Claim(ctx, idempotencyKey, job.ID)
		}
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		s.release(ctx, idempotencyKey, job.ID)
		return model.Job{}, false, err
	}
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.release(ctx, idempotencyKey, job.ID)
		_ = s.jobs.Fail(ctx, job.ID, err.Error(), time.Now().UTC())
		metrics.RecordJobEvent("rejected")
		s.logger.Warn(ctx, "job rejected", logger.String("job_id", job.ID), logger.Error(err))
		return model.Job{}, false, fmt.Errorf("submit job for %q: %w", cohortID, err)
	}

	metrics.RecordJobEvent("submitted")
	s.logger.Info(ctx, "job submitted",
		logger.String("job_id", job.ID),
		logger.String("cohort_id", cohortID),
		logger.String("scheme", job.Scheme.String()),
	)
	return job, false, nil
}

func (s *Service) release(ctx context.Context, key, jobID string) {
	if key != "" {
		s.deduper.Release(ctx, key, jobID)
	}
}

func (s *Service) keyLock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.keyLocks[h.Sum32()%keyStripes]
}

// Job returns the current state of a job. Before the first Start it
// returns ErrNotStarted.
func (s *Service) Job(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.jobs == nil {
		return model.Job{}, ErrNotStarted
	}
	return s.jobs.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	cohorts := s.cohorts.Count(ctx)
	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"defaultScheme":  s.defaultScheme.String(),
		"placeholders":   s.placeholders,
		"cohorts":        cohorts,
		"jobRetentionMs": s.jobRetention.Milliseconds(),
	}
	metrics.UpdateCohortsStored(cohorts)

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(ctx)
		stats["jobs"] = s.jobs.Count(ctx)
		stats["activeWorkers"] = s.workerPool.Active()
		stats["processedJobs"] = s.workerPool.Processed()
		stats["idempotencyKeys"] = s.deduper.Size()
	}
	return stats
}

// IsNotFound reports whether err means a cohort, subject or job is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrCohortNotFound) ||
		errors.Is(err, repository.ErrJobNotFound) ||
		errors.Is(err, profiler.ErrSubjectNotFound)
}
