// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/ranking"
)

// Query parameter defaults.
const (
	defaultLimit = 25
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests. Query parameters:
// scope (global|subject|grade), subject, grade, window
// (today|week|month|all_time), limit, offset.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	scope, err := parseScope(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	window := parseWindow(q)
	page, err := parsePagination(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.deps.Leaderboard(r.Context(), scope, window, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseScope builds the scope from query parameters. An absent scope
// defaults to global; subject and grade scopes take their value from the
// parameter of the same name.
func parseScope(q url.Values) (model.Scope, error) {
	level := q.Get("scope")
	if level == "" {
		level = string(model.ScopeGlobal)
	}
	switch model.ScopeLevel(level) {
	case model.ScopeGlobal:
		return model.Scope{Level: model.ScopeGlobal}, nil
	case model.ScopeSubject:
		return model.Scope{Level: model.ScopeSubject, Value: q.Get("subject")}, nil
	case model.ScopeGrade:
		return model.Scope{Level: model.ScopeGrade, Value: q.Get("grade")}, nil
	default:
		return model.Scope{}, fmt.Errorf("%w: unknown scope %q", ErrBadRequest, level)
	}
}

// parseWindow defaults to all_time; the ranking engine rejects unknown
// values.
func parseWindow(q url.Values) model.Window {
	if w := q.Get("window"); w != "" {
		return model.Window(w)
	}
	return model.WindowAllTime
}

func parsePagination(q url.Values) (ranking.Pagination, error) {
	page := ranking.Pagination{Limit: defaultLimit}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ranking.Pagination{}, fmt.Errorf("%w: limit must be an integer", ErrBadRequest)
		}
		page.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ranking.Pagination{}, fmt.Errorf("%w: offset must be an integer", ErrBadRequest)
		}
		page.Offset = n
	}
	if page.Limit < 1 {
		return ranking.Pagination{}, fmt.Errorf("%w: limit must be positive", ErrBadRequest)
	}
	return page, nil
}
