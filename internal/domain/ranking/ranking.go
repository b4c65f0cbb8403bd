// Package ranking computes ordered leaderboards from score records.
//
// The engine is a pure computation: callers fetch the relevant records
// from a store and pass them in together with the query and the current
// time. Ordering is deterministic: total points descending, then user id
// ascending on ties.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/types"
)

// Default engine configuration constants.
const (
	defaultMaxLimit = 100
)

// Pagination selects a slice of the full ranking.
type Pagination struct {
	Limit  int // 1..max
	Offset int // >= 0
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLocation sets the timezone used for window boundary computation.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithMaxLimit caps the pagination limit accepted by Rank.
func WithMaxLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLimit = n
		}
	}
}

// Engine computes rankings for a scope and time window.
type Engine struct {
	loc      *time.Location
	maxLimit int
}

// New constructs an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		loc:      time.UTC,
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank aggregates records matching scope and window, orders users by total
// points, assigns competition ranks (ties share the lower rank number and
// the next distinct score resumes at position count+1), computes rank
// deltas against the previous window of the same length, and returns the
// requested page. TotalCount is the full ranking size before pagination.
func (e *Engine) Rank(records []model.ScoreRecord, scope model.Scope, window model.Window, page Pagination, now time.Time) (types.Page, error) {
	if err := validateScope(scope); err != nil {
		return types.Page{}, err
	}
	if !window.Valid() {
		return types.Page{}, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}
	if page.Limit < 1 || page.Limit > e.maxLimit {
		return types.Page{}, fmt.Errorf("%w: limit %d outside 1..%d", ErrInvalidPagination, page.Limit, e.maxLimit)
	}
	if page.Offset < 0 {
		return types.Page{}, fmt.Errorf("%w: negative offset %d", ErrInvalidPagination, page.Offset)
	}

	entries := e.fullRanking(records, scope, window, now)

	total := len(entries)
	lo := page.Offset
	if lo > total {
		lo = total
	}
	hi := lo + page.Limit
	if hi > total {
		hi = total
	}
	return types.Page{Entries: entries[lo:hi], TotalCount: total}, nil
}

// RankFor returns the single entry for userID in the given scope and
// window, or ErrNotRanked when the user has no matching score records.
func (e *Engine) RankFor(records []model.ScoreRecord, scope model.Scope, window model.Window, userID string, now time.Time) (types.Entry, error) {
	if err := validateScope(scope); err != nil {
		return types.Entry{}, err
	}
	if !window.Valid() {
		return types.Entry{}, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}
	for _, entry := range e.fullRanking(records, scope, window, now) {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %s", ErrNotRanked, userID)
}

// fullRanking builds the complete ordered ranking with deltas.
func (e *Engine) fullRanking(records []model.ScoreRecord, scope model.Scope, window model.Window, now time.Time) []types.Entry {
	start, bounded := e.windowStart(window, now)
	entries := rankTotals(aggregate(records, scope, start, now, bounded))

	if !bounded {
		// all_time has no previous period; every delta stays nil
		return entries
	}

	prevStart, prevEnd := e.previousWindow(window, start)
	// prevEnd is exclusive: a record stamped exactly at the current window
	// start belongs to the current window only.
	prevRanks := make(map[string]int)
	for _, prev := range rankTotals(aggregate(records, scope, prevStart, prevEnd.Add(-time.Nanosecond), true)) {
		prevRanks[prev.UserID] = prev.Rank
	}
	for i := range entries {
		if prevRank, ok := prevRanks[entries[i].UserID]; ok {
			delta := entries[i].Rank - prevRank
			entries[i].RankDelta = &delta
		}
	}
	return entries
}

// aggregate sums points per user for records inside scope and [start, end).
// The end bound is inclusive of "now" for the current window, so the upper
// comparison excludes only strictly-later timestamps.
func aggregate(records []model.ScoreRecord, scope model.Scope, start, end time.Time, bounded bool) map[string]int {
	totals := make(map[string]int)
	for _, r := range records {
		if !scope.Matches(r) {
			continue
		}
		if bounded && r.Timestamp.Before(start) {
			continue
		}
		if r.Timestamp.After(end) {
			continue
		}
		totals[r.UserID] += r.Points
	}
	return totals
}

// rankTotals orders the totals map and assigns competition ranks.
func rankTotals(totals map[string]int) []types.Entry {
	entries := make([]types.Entry, 0, len(totals))
	for userID, points := range totals {
		entries = append(entries, types.Entry{UserID: userID, TotalPoints: points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		if i > 0 && entries[i].TotalPoints == entries[i-1].TotalPoints {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries
}

// Horizon returns the earliest timestamp a store query must cover to
// serve the window, including the previous period needed for deltas.
// Zero for all_time, meaning no lower bound.
func (e *Engine) Horizon(window model.Window, now time.Time) time.Time {
	start, bounded := e.windowStart(window, now)
	if !bounded {
		return time.Time{}
	}
	prevStart, _ := e.previousWindow(window, start)
	return prevStart
}

// windowStart computes the inclusive lower boundary of the window in the
// engine's timezone. The second return is false for all_time.
func (e *Engine) windowStart(window model.Window, now time.Time) (time.Time, bool) {
	local := now.In(e.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
	switch window {
	case model.WindowToday:
		return midnight, true
	case model.WindowWeek:
		// Week starts on the most recent Monday 00:00.
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -daysSinceMonday), true
	case model.WindowMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, e.loc), true
	default:
		return time.Time{}, false
	}
}

// previousWindow returns the half-open bounds of the window immediately
// preceding one that starts at start.
func (e *Engine) previousWindow(window model.Window, start time.Time) (time.Time, time.Time) {
	switch window {
	case model.WindowToday:
		return start.AddDate(0, 0, -1), start
	case model.WindowWeek:
		return start.AddDate(0, 0, -7), start
	default: // month
		return start.AddDate(0, -1, 0), start
	}
}

func validateScope(scope model.Scope) error {
	switch scope.Level {
	case model.ScopeGlobal:
		return nil
	case model.ScopeSubject, model.ScopeGrade:
		if scope.Value == "" {
			return fmt.Errorf("%w: %s scope requires a value", ErrInvalidScope, scope.Level)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown level %q", ErrInvalidScope, scope.Level)
	}
}
