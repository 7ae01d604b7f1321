package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given logger initialisation", t, func() {
		Convey("When Init is called without options", func() {
			err := Init()

			Convey("Then a text logger is installed", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When an unknown format is requested", func() {
			err := Init(WithFormat("xml"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an unknown level is requested", func() {
			err := Init(WithLevel("loud"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf), WithLevel("debug")), ShouldBeNil)
		ctx := context.Background()

		Convey("When a named logger writes a record with fields", func() {
			Named("cohort").Info(ctx, "analysed",
				String("cohort_id", "c1"),
				Int("subjects", 3),
				Float64("avg", 0.5),
				Bool("placeholders", false),
				Duration("took", time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then the record is valid JSON with the group and fields", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "analysed")
				So(rec["level"], ShouldEqual, "INFO")
				group, ok := rec["cohort"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["cohort_id"], ShouldEqual, "c1")
				So(group["subjects"], ShouldEqual, float64(3))
				So(group["error"], ShouldEqual, "boom")
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(ctx, "hidden")
			Get().Debug(ctx, "hidden")

			Convey("Then lower records are dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		Convey("Then known levels are accepted case-insensitively", func() {
			for _, l := range []string{"debug", "INFO", "", "warn", "Warning", " error "} {
				So(SetLevelString(l), ShouldBeNil)
			}
		})

		Convey("Then unknown levels are rejected", func() {
			err := SetLevelString("trace")
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "trace"), ShouldBeTrue)
		})
	})
}
