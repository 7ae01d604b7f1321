package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/riskprofiler/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is claimed for the first time", func() {
			id, seen := d.Claim(ctx, "key-1", "job-1")

			Convey("Then it is bound to the given job", func() {
				So(seen, ShouldBeFalse)
				So(id, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is claimed twice", func() {
			d.Claim(ctx, "key-1", "job-1")
			id, seen := d.Claim(ctx, "key-1", "job-2")

			Convey("Then the first job id is returned", func() {
				So(seen, ShouldBeTrue)
				So(id, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a claimed key is released", func() {
			d.Claim(ctx, "key-1", "job-1")
			d.Release(ctx, "key-1", "job-1")

			Convey("Then it can be claimed again", func() {
				So(d.Size(), ShouldEqual, 0)
				id, seen := d.Claim(ctx, "key-1", "job-2")
				So(seen, ShouldBeFalse)
				So(id, ShouldEqual, "job-2")
			})
		})

		Convey("When a key is released on behalf of a job it is no longer bound to", func() {
			d.Claim(ctx, "key-1", "job-1")
			d.Release(ctx, "key-1", "job-1")
			d.Claim(ctx, "key-1", "job-2")
			d.Release(ctx, "key-1", "job-1")

			Convey("Then the newer binding survives", func() {
				So(d.Size(), ShouldEqual, 1)
				id, seen := d.Claim(ctx, "key-1", "job-3")
				So(seen, ShouldBeTrue)
				So(id, ShouldEqual, "job-2")
			})
		})

		Convey("When an unknown key is released", func() {
			d.Claim(ctx, "key-1", "job-1")
			d.Release(ctx, "nope", "job-1")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestBoundedDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper bounded to three keys", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.Claim(ctx, fmt.Sprintf("key-%d", i), fmt.Sprintf("job-%d", i))
		}

		Convey("When a fourth key is claimed", func() {
			d.Claim(ctx, "key-4", "job-4")

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.Claim(ctx, "key-4", "x")
				So(seen, ShouldBeTrue)
				_, seen = d.Claim(ctx, "key-2", "x")
				So(seen, ShouldBeTrue)
				_, seen = d.Claim(ctx, "key-1", "job-1b")
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When the middle key is released and two more are claimed", func() {
			d.Release(ctx, "key-2", "job-2")
			d.Claim(ctx, "key-4", "job-4")
			d.Claim(ctx, "key-5", "job-5")

			Convey("Then the list stays consistent", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.Claim(ctx, "key-3", "x")
				So(seen, ShouldBeTrue)
				_, seen = d.Claim(ctx, "key-5", "x")
				So(seen, ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When many keys are claimed", func() {
			for i := 0; i < 500; i++ {
				d.Claim(ctx, fmt.Sprintf("key-%d", i), "job")
			}

			Convey("Then none are evicted", func() {
				So(d.Size(), ShouldEqual, 500)
			})
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given many goroutines claiming the same key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, seen := d.Claim(ctx, "shared", fmt.Sprintf("job-%d", i)); !seen {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one claim wins", func() {
			So(fresh, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
