package model

import (
	"time"

	"github.com/okian/riskprofiler/internal/domain/classify"
)

// JobStatus is the lifecycle state of an asynchronous analysis job.
type JobStatus string

// Job states.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a request to analyse a cohort in the background.
type Job struct {
	ID          string          `json:"id"`
	CohortID    string          `json:"cohort_id"`
	Scheme      classify.Scheme `json:"scheme"`
	Status      JobStatus       `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Summary     *Summary        `json:"summary,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}
