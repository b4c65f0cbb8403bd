package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/studyhall-app/studyhall/pkg/logger"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// Maintenance job intervals.
const (
	gaugeRefreshInterval  = 30 * time.Second
	systemMetricsInterval = 15 * time.Second
)

// maintainer runs the service's periodic maintenance jobs on a shared
// scheduler.
type maintainer struct {
	svc       *Service
	scheduler *gocron.Scheduler
}

func newMaintainer(svc *Service) *maintainer {
	return &maintainer{
		svc:       svc,
		scheduler: gocron.NewScheduler(svc.location),
	}
}

// start registers the jobs and launches the scheduler in the background.
func (m *maintainer) start(ctx context.Context) error {
	if _, err := m.scheduler.Every(gaugeRefreshInterval).Do(m.refreshGauges, ctx); err != nil {
		return fmt.Errorf("schedule gauge refresh: %w", err)
	}
	if _, err := m.scheduler.Every(systemMetricsInterval).Do(m.collectSystemMetrics); err != nil {
		return fmt.Errorf("schedule system metrics: %w", err)
	}
	// Local midnight in the scheduler's location marks the day window
	// boundary for leaderboards and streaks.
	if _, err := m.scheduler.Every(1).Day().At("00:00").Do(m.dailyRollover, ctx); err != nil {
		return fmt.Errorf("schedule daily rollover: %w", err)
	}
	m.scheduler.StartAsync()
	return nil
}

func (m *maintainer) stop() {
	m.scheduler.Stop()
}

// refreshGauges republishes store and queue gauges so they stay fresh
// even when no requests arrive.
func (m *maintainer) refreshGauges(ctx context.Context) {
	queueLen := m.svc.queue.Len(ctx)
	learners := m.svc.store.CountLearners(ctx)
	records := m.svc.store.CountRecords(ctx)

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateTotalLearners(learners)
	metrics.UpdateStoreRecordsTotal(records)

	m.svc.logger.Debug(ctx, "refreshed store gauges",
		logger.Int("queueLength", queueLen),
		logger.Int("learners", learners),
		logger.Int("records", records),
	)
}

// dailyRollover logs the previous day's totals when the day window rolls
// over. Rankings are computed on read, so no materialized state changes.
func (m *maintainer) dailyRollover(ctx context.Context) {
	m.svc.logger.Info(ctx, "day window rolled over",
		logger.String("timezone", m.svc.location.String()),
		logger.Int("learners", m.svc.store.CountLearners(ctx)),
		logger.Int("records", m.svc.store.CountRecords(ctx)),
	)
}

func (m *maintainer) collectSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
