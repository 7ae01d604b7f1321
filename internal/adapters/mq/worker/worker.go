// Package worker runs queued cohort analyses in the background.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/logger"
	"github.com/okian/riskprofiler/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Analyzer produces the summary of a stored cohort.
type Analyzer interface {
	AnalyzeCohort(ctx context.Context, cohortID string, scheme classify.Scheme) (model.Summary, error)
}

// Recorder persists job state transitions.
type Recorder interface {
	Start(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, sum *model.Summary, at time.Time) error
	Fail(ctx context.Context, id string, reason string, at time.Time) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// counter tracks busy workers and finished jobs across a pool.
type counter struct {
	active    atomic.Int64
	processed atomic.Int64
	total     int
}

func (c *counter) begin() {
	n := c.active.Add(1)
	metrics.UpdateWorkerActiveCount(int(n))
	metrics.UpdateWorkerIdleCount(c.total - int(n))
}

func (c *counter) end() {
	n := c.active.Add(-1)
	c.processed.Add(1)
	metrics.UpdateWorkerActiveCount(int(n))
	metrics.UpdateWorkerIdleCount(c.total - int(n))
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	recorder Recorder
	name     string
	now      func() time.Time
	counter  *counter

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, analyzer Analyzer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		analyzer: analyzer,
		recorder: recorder,
		name:     "worker",
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is cancelled, Shutdown
// is called, or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("job_id", j.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job. The returned error is the analysis failure, which
// has already been recorded on the job.
func (w *InMemoryWorker) process(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: jobs are passed by value through the channel
	start := time.Now()
	if w.counter != nil {
		w.counter.begin()
		defer w.counter.end()
	}
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.recorder.Start(ctx, j.ID, w.now()); err != nil {
		metrics.RecordErrorByComponent("worker", "record_start")
		return fmt.Errorf("start job %s: %w", j.ID, err)
	}

	sum, err := w.analyzer.AnalyzeCohort(ctx, j.CohortID, j.Scheme)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordJobEvent("failed")
		metrics.RecordErrorByComponent("worker", "analysis_error")
		if ferr := w.recorder.Fail(ctx, j.ID, err.Error(), w.now()); ferr != nil {
			w.logger.Error(ctx, "recording job failure", logger.String("job_id", j.ID), logger.Error(ferr))
		}
		return fmt.Errorf("analyze cohort %s: %w", j.CohortID, err)
	}

	if err := w.recorder.Complete(ctx, j.ID, &sum, w.now()); err != nil {
		metrics.RecordErrorByComponent("worker", "record_complete")
		return fmt.Errorf("complete job %s: %w", j.ID, err)
	}
	metrics.RecordJobEvent("succeeded")
	w.logger.Debug(ctx, "job done",
		logger.String("job_id", j.ID),
		logger.String("cohort_id", j.CohortID),
		logger.Int("profiles", len(sum.Profiles)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Pool manages a fixed set of workers reading from one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	counter *counter
	started time.Time

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers. Values below 1 default to
// runtime.NumCPU().
func NewPool(workerCount int, queue Queue, analyzer Analyzer, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counter:  &counter{total: workerCount},
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i)), withCounter(p.counter)}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, analyzer, recorder, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	metrics.UpdateWorkerJobsPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers currently running a job.
func (p *Pool) Active() int { return int(p.counter.active.Load()) }

// Processed returns the number of jobs finished since start.
func (p *Pool) Processed() int64 { return p.counter.processed.Load() }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	p.started = time.Now()
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
				metrics.UpdateWorkerJobsPerSecond(float64(p.Processed()) / elapsed)
			}
		}
	}
}

// Shutdown closes the queue so no new jobs arrive, then waits for the
// workers to drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
