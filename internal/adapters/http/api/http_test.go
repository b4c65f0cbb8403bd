package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/studyhall-app/studyhall/internal/adapters/http/api"
	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/ranking"
	"github.com/studyhall-app/studyhall/internal/domain/srs"
	"github.com/studyhall-app/studyhall/internal/domain/types"
)

// fakeDeps implements api.Dependencies with canned responses so handler
// behavior can be exercised without the full pipeline.
type fakeDeps struct {
	accepted  bool
	duplicate bool

	page       types.Page
	pageErr    error
	entry      types.Entry
	entryErr   error
	profile    types.Profile
	profileErr error
	review     model.ReviewState
	reviewErr  error

	submitted []model.Activity
}

func (f *fakeDeps) SubmitActivity(ctx context.Context, a model.Activity) (bool, bool) {
	f.submitted = append(f.submitted, a)
	return f.accepted, f.duplicate
}

func (f *fakeDeps) Leaderboard(ctx context.Context, scope model.Scope, window model.Window, page ranking.Pagination) (types.Page, error) {
	return f.page, f.pageErr
}

func (f *fakeDeps) RankFor(ctx context.Context, userID string, scope model.Scope, window model.Window) (types.Entry, error) {
	return f.entry, f.entryErr
}

func (f *fakeDeps) Profile(ctx context.Context, userID string) (types.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeDeps) ReviewFlashcard(ctx context.Context, userID, cardID string, rating model.Rating) (model.ReviewState, error) {
	return f.review, f.reviewErr
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}).Register(context.Background(), mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPostActivity(t *testing.T) {
	Convey("Given the activities endpoint", t, func() {
		deps := &fakeDeps{accepted: true}
		mux := newTestMux(deps)

		Convey("When a valid activity is posted", func() {
			rec := doRequest(mux, http.MethodPost, "/activities",
				`{"event_id":"evt-1","user_id":"alice","kind":"practice_correct","subject":"math"}`)

			Convey("Then the activity is acknowledged as accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				var ack struct {
					Status    string `json:"status"`
					Duplicate bool   `json:"duplicate"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.Duplicate, ShouldBeFalse)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Subject, ShouldEqual, "math")
			})
		})

		Convey("When a duplicate event is posted", func() {
			deps.duplicate = true
			rec := doRequest(mux, http.MethodPost, "/activities",
				`{"event_id":"evt-1","user_id":"alice","kind":"practice_correct"}`)

			Convey("Then the duplicate is acknowledged with 200", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the queue applies backpressure", func() {
			deps.accepted = false
			rec := doRequest(mux, http.MethodPost, "/activities",
				`{"event_id":"evt-1","user_id":"alice","kind":"practice_correct"}`)

			Convey("Then the request is rejected with 429", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When required fields are missing", func() {
			rec := doRequest(mux, http.MethodPost, "/activities", `{"kind":"practice_correct"}`)

			Convey("Then the request is rejected with 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "user_id")
			})
		})

		Convey("When occurred_at is not RFC3339", func() {
			rec := doRequest(mux, http.MethodPost, "/activities",
				`{"user_id":"alice","kind":"practice_correct","occurred_at":"yesterday"}`)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			rec := doRequest(mux, http.MethodPost, "/activities", "not-json")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method is GET", func() {
			rec := doRequest(mux, http.MethodGet, "/activities", "")

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		delta := -1
		deps := &fakeDeps{
			page: types.Page{
				Entries: []types.Entry{
					{Rank: 1, UserID: "alice", TotalPoints: 120, RankDelta: &delta},
					{Rank: 2, UserID: "bob", TotalPoints: 80},
				},
				TotalCount: 2,
			},
		}
		mux := newTestMux(deps)

		Convey("When the leaderboard is requested", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?window=week&limit=10", "")

			Convey("Then the page is returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var page types.Page
				So(json.Unmarshal(rec.Body.Bytes(), &page), ShouldBeNil)
				So(page.TotalCount, ShouldEqual, 2)
				So(page.Entries[0].UserID, ShouldEqual, "alice")
				So(*page.Entries[0].RankDelta, ShouldEqual, -1)
			})
		})

		Convey("When an unknown scope is requested", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?scope=planet", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is not an integer", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?limit=lots", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is zero", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?limit=0", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the engine rejects the window", func() {
			deps.pageErr = fmt.Errorf("window: %w", ranking.ErrInvalidWindow)
			rec := doRequest(mux, http.MethodGet, "/leaderboard?window=fortnight", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetRank(t *testing.T) {
	Convey("Given the rank endpoint", t, func() {
		deps := &fakeDeps{entry: types.Entry{Rank: 3, UserID: "carol", TotalPoints: 42}}
		mux := newTestMux(deps)

		Convey("When a ranked user is requested", func() {
			rec := doRequest(mux, http.MethodGet, "/rank/carol?window=today", "")

			Convey("Then the entry is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var entry types.Entry
				So(json.Unmarshal(rec.Body.Bytes(), &entry), ShouldBeNil)
				So(entry.Rank, ShouldEqual, 3)
				So(entry.UserID, ShouldEqual, "carol")
			})
		})

		Convey("When an unranked user is requested", func() {
			deps.entryErr = fmt.Errorf("user nobody: %w", ranking.ErrNotRanked)
			rec := doRequest(mux, http.MethodGet, "/rank/nobody", "")

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the user id is missing from the path", func() {
			rec := doRequest(mux, http.MethodGet, "/rank/", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetProfile(t *testing.T) {
	Convey("Given the profile endpoint", t, func() {
		toNext := 40
		deps := &fakeDeps{
			profile: types.Profile{
				UserID:  "alice",
				TotalXP: 160,
				Level: types.LevelInfo{
					Level: 2, Title: "Learner", XPIntoLevel: 60, XPToNextLevel: &toNext,
				},
				CurrentStreak: 3,
				LongestStreak: 7,
			},
		}
		mux := newTestMux(deps)

		Convey("When the profile is requested", func() {
			rec := doRequest(mux, http.MethodGet, "/profile/alice", "")

			Convey("Then the assembled progression is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var profile types.Profile
				So(json.Unmarshal(rec.Body.Bytes(), &profile), ShouldBeNil)
				So(profile.TotalXP, ShouldEqual, 160)
				So(profile.Level.Title, ShouldEqual, "Learner")
				So(profile.CurrentStreak, ShouldEqual, 3)
			})
		})

		Convey("When the path has extra segments", func() {
			rec := doRequest(mux, http.MethodGet, "/profile/alice/badges", "")

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPostReview(t *testing.T) {
	Convey("Given the flashcard review endpoint", t, func() {
		due := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
		deps := &fakeDeps{
			review: model.ReviewState{
				CardID:       "card-1",
				UserID:       "alice",
				IntervalDays: 6,
				EaseFactor:   2.5,
				Repetitions:  2,
				DueAt:        due,
			},
		}
		mux := newTestMux(deps)

		Convey("When a valid review is posted", func() {
			rec := doRequest(mux, http.MethodPost, "/flashcards/review",
				`{"user_id":"alice","card_id":"card-1","rating":"medium"}`)

			Convey("Then the updated schedule is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					CardID       string  `json:"card_id"`
					IntervalDays float64 `json:"interval_days"`
					DueAt        string  `json:"due_at"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.CardID, ShouldEqual, "card-1")
				So(resp.IntervalDays, ShouldEqual, 6)
				So(resp.DueAt, ShouldEqual, due.Format(time.RFC3339))
			})
		})

		Convey("When the rating is unknown", func() {
			deps.reviewErr = fmt.Errorf("rating: %w", srs.ErrInvalidRating)
			rec := doRequest(mux, http.MethodPost, "/flashcards/review",
				`{"user_id":"alice","card_id":"card-1","rating":"impossible"}`)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the card id is missing", func() {
			rec := doRequest(mux, http.MethodPost, "/flashcards/review",
				`{"user_id":"alice","rating":"medium"}`)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When health is requested", func() {
			rec := doRequest(mux, http.MethodGet, "/healthz", "")

			Convey("Then the service reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When stats are requested", func() {
			rec := doRequest(mux, http.MethodGet, "/stats", "")

			Convey("Then the stats map is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When metrics are requested", func() {
			rec := doRequest(mux, http.MethodGet, "/metrics", "")

			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
