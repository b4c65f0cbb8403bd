// Package streak computes consecutive-active-day streaks from activity
// timestamps.
package streak

import (
	"sort"
	"time"
)

// Streak summarizes a learner's activity-day runs. A day counts as active
// when at least one activity falls on it in the configured timezone.
type Streak struct {
	CurrentDays int
	LongestDays int
}

// Compute derives the current and longest streaks from the given activity
// timestamps. The current streak counts back from today (or yesterday, so
// a learner who has not practiced yet today keeps their run alive until
// midnight).
func Compute(timestamps []time.Time, now time.Time, loc *time.Location) Streak {
	if len(timestamps) == 0 {
		return Streak{}
	}
	if loc == nil {
		loc = time.UTC
	}

	days := make(map[time.Time]struct{}, len(timestamps))
	for _, ts := range timestamps {
		days[dayOf(ts, loc)] = struct{}{}
	}
	ordered := make([]time.Time, 0, len(days))
	for d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	var longest, run int
	for i, d := range ordered {
		// AddDate rather than a fixed 24h so DST transitions keep runs intact
		if i > 0 && ordered[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	current := 0
	today := dayOf(now, loc)
	anchor := today
	if _, active := days[anchor]; !active {
		anchor = today.AddDate(0, 0, -1)
	}
	for {
		if _, active := days[anchor]; !active {
			break
		}
		current++
		anchor = anchor.AddDate(0, 0, -1)
	}

	return Streak{CurrentDays: current, LongestDays: longest}
}

func dayOf(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
