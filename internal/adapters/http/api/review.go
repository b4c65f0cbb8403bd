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

// reviewRequest mirrors the OpenAPI schema for POST /flashcards/review.
type reviewRequest struct {
	UserID string `json:"user_id"`
	CardID string `json:"card_id"`
	Rating string `json:"rating"`
}

func (rr reviewRequest) validate() error {
	switch {
	case strings.TrimSpace(rr.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(rr.CardID) == "":
		return errors.New("missing card_id")
	case strings.TrimSpace(rr.Rating) == "":
		return errors.New("missing rating")
	}
	return nil
}

// reviewResponse reports the updated schedule for the reviewed card.
type reviewResponse struct {
	CardID       string  `json:"card_id"`
	IntervalDays float64 `json:"interval_days"`
	EaseFactor   float64 `json:"ease_factor"`
	Repetitions  int     `json:"repetitions"`
	DueAt        string  `json:"due_at"`
}

// ReviewHandler handles flashcard review submissions.
type ReviewHandler struct {
	deps Dependencies
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(deps Dependencies) *ReviewHandler {
	return &ReviewHandler{deps: deps}
}

// HandlePostReview handles POST /flashcards/review requests.
func (h *ReviewHandler) HandlePostReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	state, err := h.deps.ReviewFlashcard(r.Context(), req.UserID, req.CardID, model.Rating(req.Rating))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{
		CardID:       state.CardID,
		IntervalDays: state.IntervalDays,
		EaseFactor:   state.EaseFactor,
		Repetitions:  state.Repetitions,
		DueAt:        state.DueAt.Format(time.RFC3339),
	})
}
