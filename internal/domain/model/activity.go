// Package model contains domain models passed between layers.
package model

import "time"

// Well-known activity kinds. The points policy maps each kind to a base
// award; unknown kinds fall back to a default.
const (
	KindPracticeCorrect    = "practice_correct"
	KindPracticeSession    = "practice_session"
	KindChallengeWin       = "challenge_win"
	KindFlashcardReview    = "flashcard_review"
	KindDiagnosticComplete = "diagnostic_complete"
)

// Activity represents a completed learning activity submitted by clients.
// Fields mirror the OpenAPI schema for /activities.
type Activity struct {
	EventID    string    // unique id for idempotency
	UserID     string    // learner identifier
	Kind       string    // activity kind, e.g. "practice_correct"
	Subject    string    // optional subject, e.g. "math"; empty means unscoped
	Grade      string    // optional grade band, e.g. "grade-5"; empty means unscoped
	OccurredAt time.Time // when the activity completed
}

// ScoreRecord is one immutable scoring event derived from an activity.
// Records are append-only; leaderboards are aggregations over them.
type ScoreRecord struct {
	UserID    string
	Subject   string // empty means the record counts only toward global scope
	Grade     string
	Points    int // non-negative
	Timestamp time.Time
}
