// Package points defines the policy mapping activity kinds to awarded points.
package points

import (
	"github.com/studyhall-app/studyhall/internal/domain/model"
)

// Default policy configuration constants.
const (
	defaultUnknownKindAward = 5
)

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithAwardsFromConfig sets per-kind awards from a configuration map.
// An empty map keeps the built-in table; non-positive awards are dropped.
func WithAwardsFromConfig(awards map[string]int, defaultAward int) Option {
	return func(p *Policy) {
		if len(awards) > 0 {
			p.awards = make(map[string]int)
			for kind, award := range awards {
				if award > 0 {
					p.awards[kind] = award
				}
			}
		}
		if defaultAward > 0 {
			p.defaultAward = defaultAward
		}
	}
}

// Policy awards points for completed activities.
type Policy struct {
	awards       map[string]int
	defaultAward int
}

// New creates a Policy with the built-in kind table, overridable through
// options.
func New(opts ...Option) *Policy {
	p := &Policy{
		awards: map[string]int{
			model.KindPracticeCorrect:    10,
			model.KindPracticeSession:    25,
			model.KindChallengeWin:       50,
			model.KindFlashcardReview:    5,
			model.KindDiagnosticComplete: 40,
		},
		defaultAward: defaultUnknownKindAward,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Award returns the points granted for one activity of the given kind.
func (p *Policy) Award(kind string) int {
	if award, ok := p.awards[kind]; ok {
		return award
	}
	return p.defaultAward
}

// Record converts an activity into the immutable score record appended to
// the score log.
func (p *Policy) Record(a model.Activity) model.ScoreRecord {
	return model.ScoreRecord{
		UserID:    a.UserID,
		Subject:   a.Subject,
		Grade:     a.Grade,
		Points:    p.Award(a.Kind),
		Timestamp: a.OccurredAt,
	}
}
