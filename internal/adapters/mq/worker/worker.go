// Package worker defines the asynchronous activity-processing pipeline:
// each dequeued activity is turned into a score record and an XP grant.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/types"
	"github.com/studyhall-app/studyhall/pkg/logger"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Activity is what workers read off the queue.
type Activity = model.Activity

// Recorder appends score records derived from activities.
type Recorder interface {
	Append(ctx context.Context, record model.ScoreRecord) error
}

// Granter credits XP for a processed activity.
type Granter interface {
	GrantXP(ctx context.Context, userID string, amount int) (types.GrantResult, error)
}

// Policy converts an activity into its score record.
type Policy interface {
	Record(a model.Activity) model.ScoreRecord
}

// Queue defines how workers receive activities.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Activity
}

// Worker consumes activities until stopped.
type Worker struct {
	queue    Queue
	policy   Policy
	recorder Recorder
	granter  Granter
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, policy Policy, recorder Recorder, granter Granter, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		policy:   policy,
		recorder: recorder,
		granter:  granter,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled, Shutdown is called,
// or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	activities := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case a, ok := <-activities:
			if !ok {
				return
			}
			if err := w.process(ctx, a); err != nil {
				w.logger.Error(ctx, "activity processing failed",
					logger.String("eventID", a.EventID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight activity.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process turns one activity into a score record and an XP grant.
func (w *Worker) process(ctx context.Context, a Activity) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	record := w.policy.Record(a)
	if err := w.recorder.Append(ctx, record); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		return fmt.Errorf("append score record for %s: %w", a.EventID, err)
	}
	metrics.RecordPointsAwarded(record.Points)

	grant, err := w.granter.GrantXP(ctx, a.UserID, record.Points)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "grant_error")
		return fmt.Errorf("grant xp for %s: %w", a.EventID, err)
	}
	metrics.RecordXPGranted(record.Points)
	if grant.LeveledUp {
		metrics.RecordLevelUp()
		w.logger.Info(ctx, "learner leveled up",
			logger.String("userID", a.UserID),
			logger.Int("level", grant.NewLevel),
		)
	}

	metrics.RecordActivityProcessed()
	return nil
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*Worker

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count defaults to twice
// the CPU count.
func NewPool(workerCount int, queue Queue, policy Policy, recorder Recorder, granter Granter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(queue, policy, recorder, granter,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each to finish.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
