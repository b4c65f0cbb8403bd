package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Progress reporting interval for the submission loop.
const reportInterval = 1 * time.Second

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitActivities submits activities concurrently using a worker pool.
func submitActivities(ctx context.Context, config *Config, activities []Activity, stats *Stats) error {
	log.Printf("submitting %d activities with %d workers...", len(activities), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/activities"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var lastReport time.Time

	activityChan := make(chan Activity, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for a := range activityChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				result := submitSingleActivity(client, url, a)

				atomic.AddInt64(&submitted, 1)
				switch result {
				case "success":
					atomic.AddInt64(&successful, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				if time.Since(lastReport) >= reportInterval {
					lastReport = time.Now()
					if config.Verbose {
						log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
							atomic.LoadInt64(&submitted), len(activities),
							atomic.LoadInt64(&successful), atomic.LoadInt64(&duplicate), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(activityChan)
		for _, a := range activities {
			select {
			case <-ctx.Done():
				return
			case activityChan <- a:
			}
		}
	}()

	wg.Wait()

	stats.ActivitiesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ActivitiesSuccessful = int(atomic.LoadInt64(&successful))
	stats.ActivitiesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.ActivitiesFailed = int(atomic.LoadInt64(&failed))

	log.Printf("activity submission completed: successful=%d duplicate=%d failed=%d",
		stats.ActivitiesSuccessful, stats.ActivitiesDuplicate, stats.ActivitiesFailed)

	return nil
}

// submitSingleActivity submits one activity and classifies the outcome.
func submitSingleActivity(client *HTTPClient, url string, a Activity) string {
	resp, err := client.Post(url, a)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return "success"
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
