// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
)

// activityRequest mirrors the OpenAPI schema for POST /activities.
type activityRequest struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	Subject    string `json:"subject"`
	Grade      string `json:"grade"`
	OccurredAt string `json:"occurred_at"`
}

func (a activityRequest) validate() error {
	switch {
	case strings.TrimSpace(a.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(a.Kind) == "":
		return errors.New("missing kind")
	}
	if a.OccurredAt != "" {
		if _, err := time.Parse(time.RFC3339, a.OccurredAt); err != nil {
			return errors.New("invalid occurred_at; must be RFC3339")
		}
	}
	return nil
}

func (a activityRequest) toModel() model.Activity {
	occurred := time.Time{}
	if a.OccurredAt != "" {
		occurred, _ = time.Parse(time.RFC3339, a.OccurredAt)
	}
	return model.Activity{
		EventID:    a.EventID,
		UserID:     a.UserID,
		Kind:       a.Kind,
		Subject:    a.Subject,
		Grade:      a.Grade,
		OccurredAt: occurred,
	}
}

// ActivitiesHandler handles activity submissions.
type ActivitiesHandler struct {
	deps Dependencies
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps Dependencies) *ActivitiesHandler {
	return &ActivitiesHandler{deps: deps}
}

// HandlePostActivity handles POST /activities requests.
func (h *ActivitiesHandler) HandlePostActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	accepted, duplicate := h.deps.SubmitActivity(r.Context(), req.toModel())
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
