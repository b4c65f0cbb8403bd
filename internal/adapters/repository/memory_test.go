package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/studyhall-app/studyhall/internal/adapters/repository"
	"github.com/studyhall-app/studyhall/internal/domain/model"
)

func record(userID, subject, grade string, points int, ts time.Time) model.ScoreRecord {
	return model.ScoreRecord{
		UserID:    userID,
		Subject:   subject,
		Grade:     grade,
		Points:    points,
		Timestamp: ts,
	}
}

func TestAppendAndQuery(t *testing.T) {
	Convey("Given a memory store with mixed records", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()

		now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		So(store.Append(ctx, record("alice", "math", "grade-5", 10, now)), ShouldBeNil)
		So(store.Append(ctx, record("alice", "science", "grade-5", 20, now.Add(-48*time.Hour))), ShouldBeNil)
		So(store.Append(ctx, record("bob", "math", "grade-6", 30, now)), ShouldBeNil)

		Convey("When queried with the global scope and no lower bound", func() {
			records, err := store.Query(ctx, model.Scope{Level: model.ScopeGlobal}, time.Time{})

			Convey("Then every record is returned", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 3)
			})
		})

		Convey("When queried with a subject scope", func() {
			records, err := store.Query(ctx, model.Scope{Level: model.ScopeSubject, Value: "math"}, time.Time{})

			Convey("Then only matching records are returned", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
				for _, r := range records {
					So(r.Subject, ShouldEqual, "math")
				}
			})
		})

		Convey("When queried with a time lower bound", func() {
			records, err := store.Query(ctx, model.Scope{Level: model.ScopeGlobal}, now.Add(-time.Hour))

			Convey("Then older records are excluded", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
			})
		})

		Convey("When a single user's records are queried", func() {
			records, err := store.QueryUser(ctx, "alice")

			Convey("Then only that user's records are returned", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
			})
		})

		Convey("When counts are read", func() {
			Convey("Then records and learners are tracked separately", func() {
				So(store.CountRecords(ctx), ShouldEqual, 3)
				So(store.CountLearners(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestAppendValidation(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()

		Convey("When a record without a user id is appended", func() {
			err := store.Append(ctx, record("", "math", "", 10, time.Now()))

			Convey("Then the append is rejected", func() {
				So(err, ShouldWrap, repository.ErrInvalidRecord)
				So(store.CountRecords(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a record with negative points is appended", func() {
			err := store.Append(ctx, record("alice", "math", "", -5, time.Now()))

			Convey("Then the append is rejected", func() {
				So(err, ShouldWrap, repository.ErrInvalidRecord)
			})
		})
	})
}

func TestXPTotals(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()

		Convey("When XP is incremented", func() {
			total, err := store.Increment(ctx, "alice", 100)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 100)

			total, err = store.Increment(ctx, "alice", 50)
			So(err, ShouldBeNil)

			Convey("Then the running total accumulates", func() {
				So(total, ShouldEqual, 150)
				stored, err := store.Total(ctx, "alice")
				So(err, ShouldBeNil)
				So(stored, ShouldEqual, 150)
			})
		})

		Convey("When XP is incremented concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = store.Increment(ctx, "bob", 10)
				}()
			}
			wg.Wait()

			Convey("Then no grant is lost", func() {
				total, err := store.Total(ctx, "bob")
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 500)
			})
		})

		Convey("When an unknown user's total is read", func() {
			total, err := store.Total(ctx, "nobody")

			Convey("Then the total is zero", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 0)
			})
		})
	})
}

func TestReviewStates(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()

		Convey("When a never-reviewed card is read", func() {
			state, err := store.Get(ctx, "alice", "card-1")

			Convey("Then the initial schedule is returned", func() {
				So(err, ShouldBeNil)
				So(state.IntervalDays, ShouldEqual, model.InitialIntervalDays)
				So(state.EaseFactor, ShouldEqual, model.InitialEaseFactor)
				So(state.Repetitions, ShouldEqual, 0)
			})
		})

		Convey("When a review state is stored", func() {
			state := model.NewReviewState("alice", "card-1")
			state.IntervalDays = 6
			state.Repetitions = 2
			state.LastRating = model.RatingMedium
			So(store.Put(ctx, state), ShouldBeNil)

			Convey("Then the stored state is returned on the next read", func() {
				got, err := store.Get(ctx, "alice", "card-1")
				So(err, ShouldBeNil)
				So(got.IntervalDays, ShouldEqual, 6)
				So(got.Repetitions, ShouldEqual, 2)
			})

			Convey("And the user's review count increments per put", func() {
				So(store.Put(ctx, state), ShouldBeNil)
				count, err := store.ReviewCount(ctx, "alice")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)
			})
		})

		Convey("When a state without identifiers is stored", func() {
			err := store.Put(ctx, model.ReviewState{})

			Convey("Then the put is rejected", func() {
				So(err, ShouldWrap, repository.ErrInvalidRecord)
			})
		})
	})
}

func TestSnapshots(t *testing.T) {
	Convey("Given a memory store with a short snapshot interval", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx,
			repository.WithSnapshotInterval(10*time.Millisecond),
			repository.WithTopCacheSize(2),
		)
		defer store.Close()

		now := time.Now()
		So(store.Append(ctx, record("alice", "math", "", 30, now)), ShouldBeNil)
		So(store.Append(ctx, record("bob", "math", "", 50, now)), ShouldBeNil)
		So(store.Append(ctx, record("carol", "math", "", 10, now)), ShouldBeNil)

		Convey("When a snapshot interval elapses", func() {
			deadline := time.Now().Add(2 * time.Second)
			var snap *repository.Snapshot
			for time.Now().Before(deadline) {
				snap = store.LatestSnapshot()
				if snap != nil && len(snap.TotalsByUser) == 3 {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then the snapshot holds totals and a bounded top cache", func() {
				So(snap, ShouldNotBeNil)
				So(snap.TotalsByUser["alice"], ShouldEqual, 30)
				So(snap.TopCache, ShouldHaveLength, 2)
				So(snap.TopCache[0].UserID, ShouldEqual, "bob")
				So(snap.TopCache[1].UserID, ShouldEqual, "alice")
			})
		})
	})
}
