package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/studyhall-app/studyhall/pkg/logger"
)

// File permission and pacing constants.
const (
	directoryPermission = 0750
	processingDelay     = 3 * time.Second
)

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting studyhall load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("learners", config.NumLearners),
		logger.Int("activities", config.NumActivities),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	activities, err := generateActivities(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("activity generation failed: %w", err)
	}

	if err := submitActivities(ctx, config, activities, stats); err != nil {
		return fmt.Errorf("activity submission failed: %w", err)
	}

	// Give the async pipeline time to drain the queue.
	logger.Get().Info(ctx, "waiting for activities to be processed")
	time.Sleep(processingDelay)

	rankings, err := retrieveRankings(ctx, config, activities, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyResults(config, rankings, leaderboard, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := verifyProfiles(config, rankings, stats); err != nil {
		return fmt.Errorf("profile verification failed: %w", err)
	}

	if err := saveActivitiesToFile(ctx, config, activities); err != nil {
		logger.Get().Warn(ctx, "failed to save activities to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(config.BaseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveActivitiesToFile saves the generated activities to a JSON file.
func saveActivitiesToFile(ctx context.Context, config *Config, activities []Activity) error {
	if len(activities) == 0 {
		return fmt.Errorf("no activities to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_activities_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(activities); err != nil {
		return fmt.Errorf("failed to write activities: %w", err)
	}

	logger.Get().Info(ctx, "activities saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, activitiesPerSecond float64

	if stats.ActivitiesSubmitted > 0 {
		successRate = float64(stats.ActivitiesSuccessful) / float64(stats.ActivitiesSubmitted) * 100
	}
	if stats.Duration > 0 {
		activitiesPerSecond = float64(stats.ActivitiesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("activitiesGenerated", stats.ActivitiesGenerated),
		logger.Int("activitiesSubmitted", stats.ActivitiesSubmitted),
		logger.Int("activitiesSuccessful", stats.ActivitiesSuccessful),
		logger.Int("activitiesDuplicate", stats.ActivitiesDuplicate),
		logger.Int("activitiesFailed", stats.ActivitiesFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("profilesChecked", stats.ProfilesChecked),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("activitiesPerSecond", activitiesPerSecond),
	)
}
