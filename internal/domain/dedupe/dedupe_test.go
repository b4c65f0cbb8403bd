package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/studyhall-app/studyhall/internal/domain/dedupe"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a new in-memory deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When an ID is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "evt-1")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording it again reports a duplicate", func() {
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When distinct IDs are recorded", func() {
			So(d.SeenAndRecord(ctx, "evt-a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "evt-b"), ShouldBeFalse)

			Convey("Then each counts toward the size", func() {
				So(d.Size(), ShouldEqual, 2)
			})
		})
	})
}

func TestUnrecord(t *testing.T) {
	Convey("Given a deduper with a recorded ID", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)

		Convey("When the ID is unrecorded", func() {
			d.Unrecord(ctx, "evt-1")

			Convey("Then it can be recorded again as new", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown ID is unrecorded", func() {
			d.Unrecord(ctx, "evt-never-seen")

			Convey("Then the size is unchanged", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestBoundedEviction(t *testing.T) {
	Convey("Given a deduper bounded to 3 entries", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)
		So(d.SeenAndRecord(ctx, "evt-2"), ShouldBeFalse)
		So(d.SeenAndRecord(ctx, "evt-3"), ShouldBeFalse)

		Convey("When a fourth ID is recorded", func() {
			So(d.SeenAndRecord(ctx, "evt-4"), ShouldBeFalse)

			Convey("Then the oldest entry is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)
			})

			Convey("And the newer entries remain seen", func() {
				So(d.SeenAndRecord(ctx, "evt-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "evt-4"), ShouldBeTrue)
			})
		})

		Convey("When an entry is unrecorded before the bound is hit again", func() {
			d.Unrecord(ctx, "evt-2")
			So(d.SeenAndRecord(ctx, "evt-4"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "evt-5"), ShouldBeFalse)

			Convey("Then eviction skips the stale slot and drops the oldest live entry", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)
			})
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent submissions of the same IDs", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		const (
			goroutines = 10
			ids        = 100
		)

		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < ids; i++ {
					d.SeenAndRecord(ctx, fmt.Sprintf("evt-%d", i))
				}
			}()
		}
		wg.Wait()

		Convey("Then each ID is recorded exactly once", func() {
			So(d.Size(), ShouldEqual, ids)
		})
	})
}
