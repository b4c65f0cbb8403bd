// Package leveling maps cumulative XP to levels and grants XP atomically.
package leveling

import (
	"context"
	"fmt"
	"sort"

	"github.com/studyhall-app/studyhall/internal/domain/types"
)

// Definition is one rung of the level curve. MinXP is the cumulative XP
// at which the level is reached.
type Definition struct {
	Level int    `koanf:"level"`
	MinXP int    `koanf:"min_xp"`
	Title string `koanf:"title"`
}

// Curve is an immutable, validated level curve.
type Curve struct {
	defs []Definition
}

// NewCurve validates and builds a curve. Definitions must be sorted by
// MinXP, strictly increasing, and start at level 1 with MinXP 0.
func NewCurve(defs []Definition) (*Curve, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: empty curve", ErrInvalidCurve)
	}
	if defs[0].Level != 1 || defs[0].MinXP != 0 {
		return nil, fmt.Errorf("%w: curve must start at level 1 with min_xp 0", ErrInvalidCurve)
	}
	for i := 1; i < len(defs); i++ {
		if defs[i].MinXP <= defs[i-1].MinXP {
			return nil, fmt.Errorf("%w: min_xp not strictly increasing at level %d", ErrInvalidCurve, defs[i].Level)
		}
		if defs[i].Level <= defs[i-1].Level {
			return nil, fmt.Errorf("%w: level numbers not strictly increasing at index %d", ErrInvalidCurve, i)
		}
	}
	owned := make([]Definition, len(defs))
	copy(owned, defs)
	return &Curve{defs: owned}, nil
}

// DefaultCurve returns the built-in ten-level curve used when the
// configuration supplies none.
func DefaultCurve() *Curve {
	c, err := NewCurve([]Definition{
		{Level: 1, MinXP: 0, Title: "Novice"},
		{Level: 2, MinXP: 100, Title: "Learner"},
		{Level: 3, MinXP: 250, Title: "Apprentice"},
		{Level: 4, MinXP: 500, Title: "Scholar"},
		{Level: 5, MinXP: 1000, Title: "Achiever"},
		{Level: 6, MinXP: 2000, Title: "Specialist"},
		{Level: 7, MinXP: 3500, Title: "Expert"},
		{Level: 8, MinXP: 5500, Title: "Master"},
		{Level: 9, MinXP: 8000, Title: "Sage"},
		{Level: 10, MinXP: 11000, Title: "Legend"},
	})
	if err != nil {
		panic(err) // built-in curve is statically valid
	}
	return c
}

// LevelFor finds the greatest definition whose MinXP does not exceed
// totalXP. XPToNextLevel is nil at the maximum level.
func (c *Curve) LevelFor(totalXP int) (types.LevelInfo, error) {
	if totalXP < 0 {
		return types.LevelInfo{}, fmt.Errorf("%w: negative total xp %d", ErrInvalidAmount, totalXP)
	}
	// First definition strictly above totalXP; the one before it applies.
	idx := sort.Search(len(c.defs), func(i int) bool { return c.defs[i].MinXP > totalXP })
	def := c.defs[idx-1]
	info := types.LevelInfo{
		Level:       def.Level,
		Title:       def.Title,
		XPIntoLevel: totalXP - def.MinXP,
	}
	if idx < len(c.defs) {
		toNext := c.defs[idx].MinXP - totalXP
		info.XPToNextLevel = &toNext
	}
	return info, nil
}

// MaxLevel returns the highest level on the curve.
func (c *Curve) MaxLevel() int {
	return c.defs[len(c.defs)-1].Level
}

// XPStore provides the atomic increment the engine needs for grants.
// The store must guarantee no lost updates under concurrent grants.
type XPStore interface {
	// Increment adds amount to the user's total and returns the new total.
	Increment(ctx context.Context, userID string, amount int) (int, error)
	// Total returns the user's cumulative XP, zero for unknown users.
	Total(ctx context.Context, userID string) (int, error)
}

// Engine grants XP through an XPStore and reports level transitions.
type Engine struct {
	curve *Curve
	store XPStore
}

// NewEngine constructs an Engine over the given curve and store.
func NewEngine(curve *Curve, store XPStore) *Engine {
	return &Engine{curve: curve, store: store}
}

// Curve exposes the engine's level curve for read paths.
func (e *Engine) Curve() *Curve {
	return e.curve
}

// GrantXP atomically increments the user's XP and reports whether the
// grant crossed a level boundary. Fails with ErrInvalidAmount for
// non-positive amounts before any mutation.
func (e *Engine) GrantXP(ctx context.Context, userID string, amount int) (types.GrantResult, error) {
	if amount <= 0 {
		return types.GrantResult{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	newTotal, err := e.store.Increment(ctx, userID, amount)
	if err != nil {
		return types.GrantResult{}, fmt.Errorf("increment xp: %w", err)
	}
	before, err := e.curve.LevelFor(newTotal - amount)
	if err != nil {
		return types.GrantResult{}, err
	}
	after, err := e.curve.LevelFor(newTotal)
	if err != nil {
		return types.GrantResult{}, err
	}
	return types.GrantResult{
		NewTotalXP: newTotal,
		LeveledUp:  after.Level > before.Level,
		NewLevel:   after.Level,
	}, nil
}
