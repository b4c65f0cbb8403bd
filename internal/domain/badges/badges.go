// Package badges evaluates badge unlock state and progress for a learner.
package badges

import (
	"fmt"

	"github.com/studyhall-app/studyhall/internal/domain/types"
)

// Metric names a progression counter a badge criterion can reference.
type Metric string

// Supported criterion metrics.
const (
	MetricTotalXP    Metric = "total_xp"
	MetricLevel      Metric = "level"
	MetricActivities Metric = "activities"
	MetricStreakDays Metric = "streak_days"
	MetricReviews    Metric = "reviews"
)

// Definition describes one badge: unlocked once the referenced metric
// reaches Threshold.
type Definition struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Metric      Metric `koanf:"metric"`
	Threshold   int    `koanf:"threshold"`
}

// Snapshot carries the learner metrics criteria are evaluated against.
type Snapshot struct {
	TotalXP    int
	Level      int
	Activities int
	StreakDays int
	Reviews    int
}

// Set is an immutable, validated collection of badge definitions.
type Set struct {
	defs []Definition
}

// NewSet validates definitions and builds a Set. IDs must be unique and
// thresholds positive.
func NewSet(defs []Definition) (*Set, error) {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: badge without id", ErrInvalidDefinition)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge id %q", ErrInvalidDefinition, d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Threshold <= 0 {
			return nil, fmt.Errorf("%w: badge %q needs a positive threshold", ErrInvalidDefinition, d.ID)
		}
		switch d.Metric {
		case MetricTotalXP, MetricLevel, MetricActivities, MetricStreakDays, MetricReviews:
		default:
			return nil, fmt.Errorf("%w: badge %q references unknown metric %q", ErrInvalidDefinition, d.ID, d.Metric)
		}
	}
	owned := make([]Definition, len(defs))
	copy(owned, defs)
	return &Set{defs: owned}, nil
}

// DefaultSet returns the built-in badge catalog used when the
// configuration supplies none.
func DefaultSet() *Set {
	s, err := NewSet([]Definition{
		{ID: "first-steps", Name: "First Steps", Description: "Complete your first activity", Metric: MetricActivities, Threshold: 1},
		{ID: "centurion", Name: "Centurion", Description: "Earn 100 XP", Metric: MetricTotalXP, Threshold: 100},
		{ID: "scholar", Name: "Scholar", Description: "Reach level 4", Metric: MetricLevel, Threshold: 4},
		{ID: "on-fire", Name: "On Fire", Description: "Keep a 7-day streak", Metric: MetricStreakDays, Threshold: 7},
		{ID: "deck-runner", Name: "Deck Runner", Description: "Review 50 flashcards", Metric: MetricReviews, Threshold: 50},
		{ID: "dedicated", Name: "Dedicated", Description: "Keep a 30-day streak", Metric: MetricStreakDays, Threshold: 30},
	})
	if err != nil {
		panic(err) // built-in catalog is statically valid
	}
	return s
}

// Evaluate returns the unlock state and progress fraction of every badge
// for the given metrics. Progress is clamped to [0,1].
func (s *Set) Evaluate(snap Snapshot) []types.BadgeStatus {
	out := make([]types.BadgeStatus, 0, len(s.defs))
	for _, d := range s.defs {
		value := snap.value(d.Metric)
		progress := float64(value) / float64(d.Threshold)
		if progress > 1 {
			progress = 1
		}
		if progress < 0 {
			progress = 0
		}
		out = append(out, types.BadgeStatus{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Unlocked:    value >= d.Threshold,
			Progress:    progress,
		})
	}
	return out
}

func (s Snapshot) value(m Metric) int {
	switch m {
	case MetricTotalXP:
		return s.TotalXP
	case MetricLevel:
		return s.Level
	case MetricActivities:
		return s.Activities
	case MetricStreakDays:
		return s.StreakDays
	case MetricReviews:
		return s.Reviews
	default:
		return 0
	}
}
