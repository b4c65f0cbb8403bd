package model

import "time"

// Rating is the learner's self-reported recall difficulty for a flashcard.
type Rating string

// Supported difficulty ratings.
const (
	RatingAgain  Rating = "again"
	RatingHard   Rating = "hard"
	RatingMedium Rating = "medium"
	RatingEasy   Rating = "easy"
)

// Valid reports whether r is one of the four supported ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingMedium, RatingEasy:
		return true
	}
	return false
}

// Default scheduling state for a card that has never been reviewed.
const (
	InitialIntervalDays = 1.0
	InitialEaseFactor   = 2.5
)

// ReviewState holds the spaced-repetition schedule for one (user, card)
// pair. It is replaced wholesale after every review submission.
type ReviewState struct {
	CardID       string
	UserID       string
	IntervalDays float64 // always > 0
	EaseFactor   float64 // never below 1.3
	Repetitions  int     // consecutive non-"again" reviews
	DueAt        time.Time
	LastRating   Rating
}

// NewReviewState returns the initial schedule for a card's first review.
func NewReviewState(userID, cardID string) ReviewState {
	return ReviewState{
		CardID:       cardID,
		UserID:       userID,
		IntervalDays: InitialIntervalDays,
		EaseFactor:   InitialEaseFactor,
	}
}
