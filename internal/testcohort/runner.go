package testcohort

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/riskprofiler/internal/adapters/repository"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/logger"
)

// ErrJobFailed is returned when a submitted job ends in the failed state.
var ErrJobFailed = errors.New("analysis job failed")

// Submit uploads every cohort of cfg.Dataset and analyses it, synchronously
// or through jobs.
func Submit(ctx context.Context, cfg SubmitConfig) ([]Report, error) {
	log := logger.Get().Named("cohort-gen")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	cohorts, err := repository.LoadFile(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "dataset loaded", logger.String("path", cfg.Dataset), logger.Int("cohorts", len(cohorts)))

	reports := make([]Report, 0, len(cohorts))
	for _, c := range cohorts {
		info, err := client.PutCohort(ctx, c)
		if err != nil {
			return reports, fmt.Errorf("upload %s: %w", c.ID, err)
		}
		log.Info(ctx, "cohort uploaded", logger.String("cohort_id", info.ID), logger.Int("subjects", info.Subjects))

		rep, err := analyse(ctx, client, cfg, c.ID)
		if err != nil {
			return reports, err
		}
		log.Info(ctx, "cohort analysed",
			logger.String("cohort_id", rep.CohortID),
			logger.Int("profiled", rep.Profiled),
			logger.Int("skipped", rep.Skipped),
			logger.Float64("average_coefficient", rep.AverageCoefficient),
			logger.Any("distribution", rep.Distribution),
		)
		reports = append(reports, rep)
	}
	return reports, nil
}

func analyse(ctx context.Context, client *Client, cfg SubmitConfig, cohortID string) (Report, error) {
	if !cfg.Async {
		sum, err := client.Summary(ctx, cohortID, cfg.Scheme)
		if err != nil {
			return Report{}, fmt.Errorf("summary %s: %w", cohortID, err)
		}
		return reportOf(sum, ""), nil
	}

	job, err := client.SubmitJob(ctx, cohortID, cfg.Scheme, "")
	if err != nil {
		return Report{}, fmt.Errorf("submit %s: %w", cohortID, err)
	}
	done, err := client.WaitJob(ctx, job.ID, cfg.Poll)
	if err != nil {
		return Report{}, fmt.Errorf("wait %s: %w", job.ID, err)
	}
	if done.Status != model.JobSucceeded || done.Summary == nil {
		return Report{}, fmt.Errorf("%w: %s: %s", ErrJobFailed, job.ID, done.Error)
	}
	return reportOf(*done.Summary, job.ID), nil
}

func reportOf(sum model.Summary, jobID string) Report {
	dist := make(map[string]int, len(sum.Distribution))
	for k, v := range sum.Distribution {
		dist[string(k)] = v
	}
	return Report{
		CohortID:           sum.CohortID,
		Profiled:           sum.TotalSubjects,
		Skipped:            sum.SkippedSubjects,
		AverageCoefficient: sum.AverageCoefficient,
		Distribution:       dist,
		JobID:              jobID,
	}
}
