// Package loadgen drives the running service with synthetic learner
// activity and verifies the resulting rankings.
package loadgen

import "time"

// Config holds configuration for the load test.
type Config struct {
	BaseURL       string        // Base URL of the service
	NumLearners   int           // Number of distinct learners
	NumActivities int           // Number of activities to generate
	TopN          int           // Number of top entries to fetch
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for generated activities
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Activity represents an activity to be submitted.
type Activity struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	Subject    string `json:"subject"`
	Grade      string `json:"grade"`
	OccurredAt string `json:"occurred_at"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	RankDelta   *int   `json:"rank_delta"`
}

// Page represents a leaderboard page.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"total_count"`
}

// AckResponse represents the response from activity submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Profile mirrors the read shape of GET /profile/{user_id}.
type Profile struct {
	UserID        string `json:"user_id"`
	TotalXP       int    `json:"total_xp"`
	CurrentStreak int    `json:"current_streak_days"`
	LongestStreak int    `json:"longest_streak_days"`
	Level         struct {
		Level int    `json:"level"`
		Title string `json:"title"`
	} `json:"level"`
}

// Stats holds test statistics.
type Stats struct {
	ActivitiesGenerated  int
	ActivitiesSubmitted  int
	ActivitiesSuccessful int
	ActivitiesDuplicate  int
	ActivitiesFailed     int
	RankingsRetrieved    int
	LeaderboardEntries   int
	ProfilesChecked      int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
