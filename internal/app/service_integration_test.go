package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/riskprofiler/internal/adapters/repository"
	service "github.com/okian/riskprofiler/internal/app"
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func waitForJob(ctx context.Context, svc *service.Service, id string) (model.Job, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := svc.Job(ctx, id)
		if err != nil {
			return model.Job{}, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service holding the golden cohort", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(50),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		So(svc.PutCohort(ctx, goldenCohort("g")), ShouldBeNil)

		Convey("When submitting a job", func() {
			job, dup, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(job.ID, ShouldNotBeEmpty)
			So(job.Status, ShouldEqual, model.JobPending)

			Convey("Then it completes with the cohort summary", func() {
				done, err := waitForJob(ctx, svc, job.ID)
				So(err, ShouldBeNil)
				So(done.Status, ShouldEqual, model.JobSucceeded)
				So(done.StartedAt, ShouldNotBeNil)
				So(done.FinishedAt, ShouldNotBeNil)
				So(done.Summary, ShouldNotBeNil)
				So(done.Summary.TotalSubjects, ShouldEqual, 1)
				So(done.Summary.Profiles[0].Coefficient, ShouldAlmostEqual, goldenCoefficient, 1e-9)
			})
		})

		Convey("When submitting with the five-category scheme", func() {
			job, _, err := svc.SubmitJob(ctx, "g", classify.FiveCategory, "")
			So(err, ShouldBeNil)

			Convey("Then the job summary uses that scheme", func() {
				done, err := waitForJob(ctx, svc, job.ID)
				So(err, ShouldBeNil)
				So(done.Summary.Scheme, ShouldEqual, classify.FiveCategory)
				So(done.Summary.Profiles[0].Category, ShouldEqual, classify.VeryRiskAverse)
			})
		})

		Convey("When the same idempotency key is submitted twice", func() {
			first, dup1, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "key-1")
			So(err, ShouldBeNil)
			second, dup2, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "key-1")
			So(err, ShouldBeNil)

			Convey("Then the second call returns the first job", func() {
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeTrue)
				So(second.ID, ShouldEqual, first.ID)
			})
		})

		Convey("When one idempotency key is submitted from many goroutines", func() {
			const n = 32
			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				ids    = make(map[string]struct{})
				fresh  int
				failed int
			)
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					job, dup, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "shared-key")
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failed++
						return
					}
					ids[job.ID] = struct{}{}
					if !dup {
						fresh++
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one job is created", func() {
				So(failed, ShouldEqual, 0)
				So(fresh, ShouldEqual, 1)
				So(len(ids), ShouldEqual, 1)
			})
		})

		Convey("When submitting for an unknown cohort", func() {
			_, _, err := svc.SubmitJob(ctx, "missing", classify.FourCategory, "key-2")

			Convey("Then it is rejected and the key stays free", func() {
				So(errors.Is(err, repository.ErrCohortNotFound), ShouldBeTrue)
				_, dup, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "key-2")
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			})
		})

		Convey("When looking up an unknown job", func() {
			_, err := svc.Job(ctx, "no-such-job")

			Convey("Then a not-found error is returned", func() {
				So(errors.Is(err, repository.ErrJobNotFound), ShouldBeTrue)
				So(service.IsNotFound(err), ShouldBeTrue)
			})
		})

		Convey("When many jobs are submitted concurrently", func() {
			const n = 20
			ids := make([]string, n)
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					job, _, err := svc.SubmitJob(ctx, "g", classify.FourCategory, fmt.Sprintf("bulk-%d", i))
					if err != nil {
						errs <- err
						return
					}
					ids[i] = job.ID
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every job succeeds", func() {
				So(errs, ShouldBeEmpty)
				for _, id := range ids {
					done, err := waitForJob(ctx, svc, id)
					So(err, ShouldBeNil)
					So(done.Status, ShouldEqual, model.JobSucceeded)
				}
				So(svc.GetStats()["jobs"], ShouldEqual, n)
			})
		})
	})
}

func TestServiceShutdownDrainsJobs(t *testing.T) {
	Convey("Given a started service with queued jobs", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		startCtx, cancelStart := context.WithCancel(ctx)
		defer cancelStart()

		svc := service.New(service.WithWorkerCount(1), service.WithJobRetention(0))
		So(svc.Start(startCtx), ShouldBeNil)
		So(svc.PutCohort(ctx, goldenCohort("g")), ShouldBeNil)

		var ids []string
		for range 5 {
			job, _, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "")
			So(err, ShouldBeNil)
			ids = append(ids, job.ID)
		}

		Convey("When stopping", func() {
			svc.Stop()

			Convey("Then queued jobs were processed and submission is refused", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				for _, id := range ids {
					job, err := svc.Job(ctx, id)
					So(err, ShouldBeNil)
					So(job.Status, ShouldEqual, model.JobSucceeded)
				}
				_, _, err := svc.SubmitJob(ctx, "g", classify.FourCategory, "")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the start context is cancelled before stopping", func() {
			cancelStart()
			svc.Stop()

			Convey("Then the queue is still drained", func() {
				for _, id := range ids {
					job, err := svc.Job(ctx, id)
					So(err, ShouldBeNil)
					So(job.Status, ShouldEqual, model.JobSucceeded)
				}
			})
		})
	})
}
