package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// retrieveRankings fetches each learner's all_time global rank
// concurrently.
func retrieveRankings(ctx context.Context, config *Config, activities []Activity, stats *Stats) ([]Entry, error) {
	userIDs := uniqueUserIDs(activities)
	log.Printf("retrieving rankings for %d learners with %d workers...", len(userIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	rankings := make([]Entry, len(userIDs))
	var failed int64

	indexChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				entry, err := retrieveSingleRanking(client, config.BaseURL, userIDs[index])
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Printf("failed to get rank for %s: %v", userIDs[index], err)
					}
					continue
				}
				rankings[index] = entry
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range userIDs {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Filter out empty entries (failed retrievals).
	valid := make([]Entry, 0, len(rankings))
	for _, entry := range rankings {
		if entry.UserID != "" {
			valid = append(valid, entry)
		}
	}

	stats.RankingsRetrieved = len(valid)
	log.Printf("ranking retrieval completed: retrieved=%d failed=%d", len(valid), atomic.LoadInt64(&failed))

	return valid, nil
}

// retrieveSingleRanking fetches one learner's entry.
func retrieveSingleRanking(client *HTTPClient, baseURL, userID string) (Entry, error) {
	url := fmt.Sprintf("%s/rank/%s?window=all_time", baseURL, userID)

	resp, err := client.Get(url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return entry, nil
}

// getLeaderboard retrieves the top N all_time leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) (Page, error) {
	log.Printf("getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?window=all_time&limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return Page{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return Page{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return Page{}, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(page.Entries)
	log.Printf("retrieved %d leaderboard entries (total ranked: %d)", len(page.Entries), page.TotalCount)

	return page, nil
}

// getProfile fetches one learner's progression profile.
func getProfile(client *HTTPClient, baseURL, userID string) (Profile, error) {
	resp, err := client.Get(baseURL + "/profile/" + userID)
	if err != nil {
		return Profile{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return Profile{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return p, nil
}

// uniqueUserIDs extracts the distinct learner ids in submission order.
func uniqueUserIDs(activities []Activity) []string {
	seen := make(map[string]struct{}, len(activities))
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	return ids
}
