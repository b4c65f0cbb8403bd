package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/studyhall-app/studyhall/internal/app"
	"github.com/studyhall-app/studyhall/internal/domain/leveling"
	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/ranking"
	"github.com/studyhall-app/studyhall/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(t *testing.T, opts ...service.Option) (*service.Service, context.Context) {
	t.Helper()
	ctx := context.Background()
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, ctx
}

func practice(eventID, userID string, subject ...string) model.Activity {
	a := model.Activity{
		EventID:    eventID,
		UserID:     userID,
		Kind:       model.KindPracticeCorrect,
		OccurredAt: time.Now(),
	}
	if len(subject) > 0 {
		a.Subject = subject[0]
	}
	return a
}

// waitProcessed polls until the async pipeline has drained the submitted
// activities into score records.
func waitProcessed(ctx context.Context, svc *service.Service, userID string, want int) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		entry, err := svc.RankFor(ctx, userID, model.Scope{Level: model.ScopeGlobal}, model.WindowAllTime)
		if err == nil && entry.TotalPoints >= want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestSubmitActivity(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(t)

		Convey("When an activity is submitted", func() {
			accepted, duplicate := svc.SubmitActivity(ctx, practice("evt-1", "alice"))

			Convey("Then it is accepted as new", func() {
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeFalse)
				So(svc.Size(), ShouldEqual, 1)
			})

			Convey("And resubmitting the same event id reports a duplicate", func() {
				accepted, duplicate = svc.SubmitActivity(ctx, practice("evt-1", "alice"))
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an activity arrives without an event id", func() {
			accepted, duplicate := svc.SubmitActivity(ctx, model.Activity{
				UserID: "bob",
				Kind:   model.KindPracticeSession,
			})

			Convey("Then an id is generated and the event is accepted", func() {
				So(accepted, ShouldBeTrue)
				So(duplicate, ShouldBeFalse)
			})
		})
	})
}

func TestLeaderboardPipeline(t *testing.T) {
	Convey("Given a service with processed activities", t, func() {
		svc, ctx := startService(t)

		// practice_correct awards 10 points.
		for i, userID := range []string{"alice", "alice", "bob"} {
			accepted, _ := svc.SubmitActivity(ctx, practice("evt-"+string(rune('a'+i)), userID, "math"))
			So(accepted, ShouldBeTrue)
		}
		So(waitProcessed(ctx, svc, "alice", 20), ShouldBeTrue)
		So(waitProcessed(ctx, svc, "bob", 10), ShouldBeTrue)

		Convey("When the global all-time leaderboard is read", func() {
			page, err := svc.Leaderboard(ctx,
				model.Scope{Level: model.ScopeGlobal},
				model.WindowAllTime,
				ranking.Pagination{Limit: 10},
			)

			Convey("Then learners are ranked by total points", func() {
				So(err, ShouldBeNil)
				So(page.TotalCount, ShouldEqual, 2)
				So(page.Entries[0].UserID, ShouldEqual, "alice")
				So(page.Entries[0].Rank, ShouldEqual, 1)
				So(page.Entries[0].TotalPoints, ShouldEqual, 20)
				So(page.Entries[1].UserID, ShouldEqual, "bob")
				So(page.Entries[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When a subject-scoped rank is read", func() {
			entry, err := svc.RankFor(ctx, "bob",
				model.Scope{Level: model.ScopeSubject, Value: "math"},
				model.WindowAllTime,
			)

			Convey("Then the entry reflects the scoped totals", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.TotalPoints, ShouldEqual, 10)
			})
		})

		Convey("When an unranked user is looked up", func() {
			_, err := svc.RankFor(ctx, "nobody",
				model.Scope{Level: model.ScopeGlobal},
				model.WindowAllTime,
			)

			Convey("Then the not-ranked sentinel is returned", func() {
				So(err, ShouldWrap, ranking.ErrNotRanked)
			})
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Given a learner with processed activities", t, func() {
		svc, ctx := startService(t)

		accepted, _ := svc.SubmitActivity(ctx, practice("evt-1", "alice"))
		So(accepted, ShouldBeTrue)
		So(waitProcessed(ctx, svc, "alice", 10), ShouldBeTrue)

		Convey("When the profile is read", func() {
			profile, err := svc.Profile(ctx, "alice")

			Convey("Then XP, level, streak, and badges are assembled", func() {
				So(err, ShouldBeNil)
				So(profile.UserID, ShouldEqual, "alice")
				So(profile.TotalXP, ShouldEqual, 10)
				So(profile.Level.Level, ShouldEqual, 1)
				So(profile.CurrentStreak, ShouldEqual, 1)
				So(profile.Badges, ShouldNotBeEmpty)
			})
		})

		Convey("When a profile is read for a learner with no history", func() {
			profile, err := svc.Profile(ctx, "nobody")

			Convey("Then an empty progression is returned", func() {
				So(err, ShouldBeNil)
				So(profile.TotalXP, ShouldEqual, 0)
				So(profile.Level.Level, ShouldEqual, 1)
				So(profile.CurrentStreak, ShouldEqual, 0)
			})
		})
	})
}

func TestReviewFlashcard(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(t)

		Convey("When a card is reviewed for the first time", func() {
			state, err := svc.ReviewFlashcard(ctx, "alice", "card-1", model.RatingMedium)

			Convey("Then the schedule advances from the initial state", func() {
				So(err, ShouldBeNil)
				So(state.Repetitions, ShouldEqual, 1)
				So(state.IntervalDays, ShouldEqual, 1)
				So(state.EaseFactor, ShouldEqual, 2.5)
			})

			Convey("And the next review builds on the stored state", func() {
				state, err = svc.ReviewFlashcard(ctx, "alice", "card-1", model.RatingMedium)
				So(err, ShouldBeNil)
				So(state.Repetitions, ShouldEqual, 2)
				So(state.IntervalDays, ShouldEqual, 6)
			})

			Convey("And the review earns points through the pipeline", func() {
				// flashcard_review awards 5 points.
				So(waitProcessed(ctx, svc, "alice", 5), ShouldBeTrue)
			})
		})

		Convey("When an unknown rating is submitted", func() {
			_, err := svc.ReviewFlashcard(ctx, "alice", "card-1", model.Rating("impossible"))

			Convey("Then the review is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestGrantXP(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(t)

		Convey("When XP is granted directly", func() {
			grant, err := svc.GrantXP(ctx, "alice", 150)

			Convey("Then the total and level reflect the grant", func() {
				So(err, ShouldBeNil)
				So(grant.NewTotalXP, ShouldEqual, 150)
				So(grant.LeveledUp, ShouldBeTrue)
				So(grant.NewLevel, ShouldEqual, 2)
			})
		})

		Convey("When a non-positive amount is granted", func() {
			_, err := svc.GrantXP(ctx, "alice", 0)

			Convey("Then the grant is rejected", func() {
				So(err, ShouldWrap, leveling.ErrInvalidAmount)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startService(t)

		accepted, _ := svc.SubmitActivity(ctx, practice("evt-1", "alice"))
		So(accepted, ShouldBeTrue)
		So(waitProcessed(ctx, svc, "alice", 10), ShouldBeTrue)

		Convey("When stats are read", func() {
			stats := svc.GetStats()

			Convey("Then backlog and store counters are exposed", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats, ShouldContainKey, "queueLength")
				So(stats, ShouldContainKey, "totalRecords")
				So(stats["totalLearners"], ShouldEqual, 1)
				So(stats["timezone"], ShouldEqual, "UTC")
			})
		})
	})
}
