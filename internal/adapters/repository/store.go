// Package repository defines the progression store interfaces and errors.
package repository

import (
	"context"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
)

// ScoreStore persists immutable score records and serves scope-filtered
// reads for the ranking engine.
type ScoreStore interface {
	// Append adds one score record. Records are never mutated afterwards.
	Append(ctx context.Context, record model.ScoreRecord) error

	// Query returns records matching scope with Timestamp >= since.
	// A zero since means no lower bound.
	Query(ctx context.Context, scope model.Scope, since time.Time) ([]model.ScoreRecord, error)

	// QueryUser returns all records for one user, any scope.
	QueryUser(ctx context.Context, userID string) ([]model.ScoreRecord, error)

	// CountRecords returns the number of stored score records.
	CountRecords(ctx context.Context) int

	// CountLearners returns the number of distinct users with records.
	CountLearners(ctx context.Context) int
}

// XPStore persists cumulative XP totals. Increment must be atomic so
// concurrent grants are never lost.
type XPStore interface {
	Increment(ctx context.Context, userID string, amount int) (int, error)
	Total(ctx context.Context, userID string) (int, error)
}

// FlashcardStore persists per-(user, card) review schedules.
type FlashcardStore interface {
	// Get returns the stored state, or the default initial state when the
	// pair has never been reviewed.
	Get(ctx context.Context, userID, cardID string) (model.ReviewState, error)

	// Put replaces the stored state and counts one review for the user.
	Put(ctx context.Context, state model.ReviewState) error

	// ReviewCount returns how many reviews the user has submitted.
	ReviewCount(ctx context.Context, userID string) (int, error)
}

// Store bundles the three persistence contracts the service needs.
type Store interface {
	ScoreStore
	XPStore
	FlashcardStore

	// Close releases store resources.
	Close() error
}
