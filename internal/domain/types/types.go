// Package types contains read shapes shared between the service and the API.
package types

// Entry represents one leaderboard row. RankDelta is the movement versus
// the previous window of the same length; nil means the user was not
// ranked in the previous window ("new" in the UI).
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	RankDelta   *int   `json:"rank_delta,omitempty"`
}

// Page is a paginated leaderboard slice. TotalCount is the cardinality of
// the full ranking before pagination was applied.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"total_count"`
}

// LevelInfo describes where a learner sits on the level curve.
// XPToNextLevel is nil at the maximum level.
type LevelInfo struct {
	Level         int    `json:"level"`
	Title         string `json:"title"`
	XPIntoLevel   int    `json:"xp_into_level"`
	XPToNextLevel *int   `json:"xp_to_next_level,omitempty"`
}

// GrantResult reports the outcome of an XP grant.
type GrantResult struct {
	NewTotalXP int  `json:"new_total_xp"`
	LeveledUp  bool `json:"leveled_up"`
	NewLevel   int  `json:"new_level"`
}

// BadgeStatus is the unlock state of one badge for one learner.
// Progress is in [0,1] and reaches 1 exactly when Unlocked is true.
type BadgeStatus struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Unlocked    bool    `json:"unlocked"`
	Progress    float64 `json:"progress"`
}

// Profile aggregates a learner's progression for the profile endpoint.
type Profile struct {
	UserID        string        `json:"user_id"`
	TotalXP       int           `json:"total_xp"`
	Level         LevelInfo     `json:"level"`
	CurrentStreak int           `json:"current_streak_days"`
	LongestStreak int           `json:"longest_streak_days"`
	Badges        []BadgeStatus `json:"badges"`
}
