// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studyhall-app/studyhall/internal/adapters/repository"
	"github.com/studyhall-app/studyhall/internal/domain/leveling"
	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/ranking"
	"github.com/studyhall-app/studyhall/internal/domain/srs"
	"github.com/studyhall-app/studyhall/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitActivity enqueues an activity for async processing. A false
	// accepted return means backpressure.
	SubmitActivity(ctx context.Context, a model.Activity) (accepted bool, duplicate bool)

	// Read operations expose progression data.
	Leaderboard(ctx context.Context, scope model.Scope, window model.Window, page ranking.Pagination) (types.Page, error)
	RankFor(ctx context.Context, userID string, scope model.Scope, window model.Window) (types.Entry, error)
	Profile(ctx context.Context, userID string) (types.Profile, error)

	// ReviewFlashcard applies a review rating and returns the new schedule.
	ReviewFlashcard(ctx context.Context, userID, cardID string, rating model.Rating) (model.ReviewState, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	activitiesHandler  *ActivitiesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	profileHandler     *ProfileHandler
	reviewHandler      *ReviewHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		activitiesHandler:  NewActivitiesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		profileHandler:     NewProfileHandler(deps),
		reviewHandler:      NewReviewHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/activities", MetricsMiddleware(s.activitiesHandler.HandlePostActivity, "activities"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/profile/", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profile"))
	mux.HandleFunc("/flashcards/review", MetricsMiddleware(s.reviewHandler.HandlePostReview, "flashcards_review"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain sentinel errors into HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ranking.ErrInvalidScope),
		errors.Is(err, ranking.ErrInvalidWindow),
		errors.Is(err, ranking.ErrInvalidPagination),
		errors.Is(err, leveling.ErrInvalidAmount),
		errors.Is(err, srs.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ranking.ErrNotRanked):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
