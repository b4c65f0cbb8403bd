package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/studyhall-app/studyhall/internal/loadgen"
)

// Default configuration constants.
const (
	defaultNumLearners   = 500
	defaultNumActivities = 10000
	defaultTopN          = 50
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numLearners   = flag.Int("learners", defaultNumLearners, "Number of distinct learners")
		numActivities = flag.Int("activities", defaultNumActivities, "Number of activities to generate and submit")
		topN          = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile    = flag.String("output", "", "Output file for generated activities (default: generated_activities_TIMESTAMP.json)")
		logFile       = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:       *baseURL,
		NumLearners:   *numLearners,
		NumActivities: *numActivities,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := loadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
