package testcohort

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/riskprofiler/internal/adapters/http/api"
	"github.com/okian/riskprofiler/internal/adapters/repository"
	service "github.com/okian/riskprofiler/internal/app"
	"github.com/okian/riskprofiler/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestSubmit(t *testing.T) {
	Convey("Given a running server and a generated dataset", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		gen := DefaultGenerateConfig()
		gen.Cohorts = 2
		gen.Subjects = 20
		gen.EmptyRate = 0
		path := filepath.Join(t.TempDir(), "cohorts.json")
		So(repository.SaveFile(path, Generate(gen)), ShouldBeNil)

		cfg := SubmitConfig{BaseURL: srv.URL, Dataset: path, Timeout: 5 * time.Second, Poll: 10 * time.Millisecond}

		Convey("When submitting synchronously", func() {
			reports, err := Submit(ctx, cfg)

			Convey("Then every cohort is reported", func() {
				So(err, ShouldBeNil)
				So(reports, ShouldHaveLength, 2)
				So(reports[0].CohortID, ShouldEqual, "cohort-1")
				So(reports[0].Profiled, ShouldEqual, 20)
				So(reports[0].JobID, ShouldBeEmpty)
			})
		})

		Convey("When submitting through jobs with the five-category scheme", func() {
			cfg.Async = true
			cfg.Scheme = "five"
			reports, err := Submit(ctx, cfg)

			Convey("Then every job succeeds", func() {
				So(err, ShouldBeNil)
				So(reports, ShouldHaveLength, 2)
				So(reports[1].JobID, ShouldNotBeEmpty)
				So(reports[1].Profiled, ShouldEqual, 20)
				total := 0
				for _, n := range reports[1].Distribution {
					total += n
				}
				So(total, ShouldEqual, 20)
			})
		})

		Convey("When the scheme is unknown", func() {
			cfg.Scheme = "seven"
			_, err := Submit(ctx, cfg)

			Convey("Then the server rejects it", func() {
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the dataset is missing", func() {
			cfg.Dataset = filepath.Join(t.TempDir(), "none.yaml")
			_, err := Submit(ctx, cfg)

			Convey("Then a dataset error is returned", func() {
				So(errors.Is(err, repository.ErrDataset), ShouldBeTrue)
			})
		})
	})
}
