// Package repository holds cohorts and analysis jobs in memory and loads
// cohort datasets from disk.
package repository

import (
	"context"
	"time"

	"github.com/okian/riskprofiler/internal/domain/model"
)

// CohortStore provides read/write access to cohorts. Stored cohorts are
// treated as immutable: Put replaces, it never edits in place.
type CohortStore interface {
	// Put validates and stores c, replacing any cohort with the same id.
	// Returns ErrInvalidCohort if validation fails.
	Put(ctx context.Context, c *model.Cohort) error
	// Get returns ErrCohortNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*model.Cohort, error)
	// List returns all cohorts ordered by id.
	List(ctx context.Context) []model.CohortInfo
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) int
}

// JobStore tracks the lifecycle of analysis jobs.
type JobStore interface {
	// Create stores a pending job. Returns ErrJobExists on id reuse.
	Create(ctx context.Context, job model.Job) error
	Start(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, sum *model.Summary, at time.Time) error
	Fail(ctx context.Context, id string, reason string, at time.Time) error
	// Get returns a copy of the job or ErrJobNotFound.
	Get(ctx context.Context, id string) (model.Job, error)
	Count(ctx context.Context) int
}
