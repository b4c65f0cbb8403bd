// Package srs computes flashcard review schedules with an SM-2 derived rule.
//
// Schedule is a pure function: it never touches storage, so persisting the
// returned state is the caller's responsibility. Callers must serialize
// concurrent reviews of the same (user, card) pair; applying two outputs
// derived from the same prior state would double-count the ease adjustment.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
)

// SM-2 constants. The ease floor keeps repeated failures from driving the
// interval growth factor below a usable minimum.
const (
	minEaseFactor = 1.3

	againEasePenalty = 0.2
	hardEasePenalty  = 0.15
	easyEaseBonus    = 0.1

	firstIntervalDays  = 1.0
	secondIntervalDays = 6.0
)

// Schedule applies a difficulty rating to a review state and returns the
// updated schedule. An "again" rating restarts the learning interval while
// keeping the compounding ease penalty; the other ratings advance the
// standard 1-day, 6-day, then interval-times-ease progression.
func Schedule(state model.ReviewState, rating model.Rating, now time.Time) (model.ReviewState, error) {
	if !rating.Valid() {
		return model.ReviewState{}, fmt.Errorf("%w: %q", ErrInvalidRating, rating)
	}

	next := state
	next.LastRating = rating

	if rating == model.RatingAgain {
		next.Repetitions = 0
		next.IntervalDays = firstIntervalDays
		next.EaseFactor = floorEase(state.EaseFactor - againEasePenalty)
		next.DueAt = now.Add(dayDuration(next.IntervalDays))
		return next, nil
	}

	next.Repetitions = state.Repetitions + 1
	switch rating {
	case model.RatingHard:
		next.EaseFactor = floorEase(state.EaseFactor - hardEasePenalty)
	case model.RatingEasy:
		next.EaseFactor = state.EaseFactor + easyEaseBonus
	default: // medium leaves ease untouched
		next.EaseFactor = state.EaseFactor
	}

	switch {
	case next.Repetitions == 1:
		next.IntervalDays = firstIntervalDays
	case next.Repetitions == 2:
		next.IntervalDays = secondIntervalDays
	default:
		next.IntervalDays = math.Max(1, math.Round(state.IntervalDays*next.EaseFactor))
	}
	next.DueAt = now.Add(dayDuration(next.IntervalDays))
	return next, nil
}

// Due reports whether the card is due for review at the given time. Cards
// that have never been reviewed (zero DueAt) are always due.
func Due(state model.ReviewState, now time.Time) bool {
	return state.DueAt.IsZero() || !state.DueAt.After(now)
}

func floorEase(ease float64) float64 {
	if ease < minEaseFactor {
		return minEaseFactor
	}
	return ease
}

func dayDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
