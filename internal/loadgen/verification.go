package loadgen

import (
	"fmt"
	"log"
	"sort"
)

// Number of profiles to spot-check after submission.
const profileSampleSize = 5

// verifyResults checks the leaderboard against the individually
// retrieved rankings.
func verifyResults(config *Config, rankings []Entry, leaderboard Page, stats *Stats) error {
	log.Println("verifying results...")

	if len(rankings) == 0 {
		return fmt.Errorf("no rankings to verify")
	}

	sorted := make([]Entry, len(rankings))
	copy(sorted, rankings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	if len(leaderboard.Entries) > 0 {
		if err := verifyLeaderboardConsistency(sorted, leaderboard.Entries); err != nil {
			log.Printf("leaderboard consistency warning: %v", err)
		} else {
			log.Println("leaderboard consistency verified")
		}
	}

	displayTopLearners(sorted, leaderboard.Entries, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks ordering, tie handling, and that
// the leaderboard head matches the best individually retrieved rank.
func verifyLeaderboardConsistency(sorted, leaderboard []Entry) error {
	topRanking := sorted[0]
	topBoard := leaderboard[0]

	if topRanking.TotalPoints != topBoard.TotalPoints {
		return fmt.Errorf("top leaderboard points (%d) do not match top ranked points (%d)",
			topBoard.TotalPoints, topRanking.TotalPoints)
	}

	for i := 1; i < len(leaderboard); i++ {
		prev, cur := leaderboard[i-1], leaderboard[i]
		if cur.TotalPoints > prev.TotalPoints {
			return fmt.Errorf("leaderboard not sorted: entry %d outranks entry %d on points", i, i-1)
		}
		// Competition ranking: ties share a rank and the next distinct
		// score resumes at its position.
		switch {
		case cur.TotalPoints == prev.TotalPoints && cur.Rank != prev.Rank:
			return fmt.Errorf("tied entries %d and %d carry different ranks", i-1, i)
		case cur.TotalPoints < prev.TotalPoints && cur.Rank != i+1:
			return fmt.Errorf("entry %d has rank %d, want %d", i, cur.Rank, i+1)
		}
	}

	return nil
}

// verifyProfiles spot-checks a few learner profiles for sane values.
func verifyProfiles(config *Config, rankings []Entry, stats *Stats) error {
	if len(rankings) == 0 {
		return nil
	}

	client := newHTTPClient(config.Timeout)
	sample := profileSampleSize
	if len(rankings) < sample {
		sample = len(rankings)
	}

	for i := 0; i < sample; i++ {
		p, err := getProfile(client, config.BaseURL, rankings[i].UserID)
		if err != nil {
			return fmt.Errorf("profile %s: %w", rankings[i].UserID, err)
		}
		if p.TotalXP <= 0 {
			return fmt.Errorf("profile %s: non-positive total xp %d", p.UserID, p.TotalXP)
		}
		if p.Level.Level < 1 {
			return fmt.Errorf("profile %s: level %d below 1", p.UserID, p.Level.Level)
		}
		stats.ProfilesChecked++
	}

	log.Printf("spot-checked %d profiles", stats.ProfilesChecked)
	return nil
}

// displayTopLearners shows the top learners from rankings and leaderboard.
func displayTopLearners(sorted, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("top %d learners from rankings:", topN)
	for i := 0; i < topN; i++ {
		log.Printf("   %d. %s - points: %d", sorted[i].Rank, sorted[i].UserID, sorted[i].TotalPoints)
	}

	if len(leaderboard) > 0 {
		boardTopN := topN
		if len(leaderboard) < boardTopN {
			boardTopN = len(leaderboard)
		}
		log.Printf("top %d learners from leaderboard:", boardTopN)
		for i := 0; i < boardTopN; i++ {
			log.Printf("   %d. %s - points: %d", leaderboard[i].Rank, leaderboard[i].UserID, leaderboard[i].TotalPoints)
		}
	}

	if verbose && len(sorted) > 0 {
		log.Printf("point statistics: average=%.1f max=%d min=%d",
			averagePoints(sorted), sorted[0].TotalPoints, sorted[len(sorted)-1].TotalPoints)
	}
}

func averagePoints(rankings []Entry) float64 {
	sum := 0
	for _, entry := range rankings {
		sum += entry.TotalPoints
	}
	return float64(sum) / float64(len(rankings))
}
