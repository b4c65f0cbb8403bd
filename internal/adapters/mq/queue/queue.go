// Package queue defines the contract for enqueuing and consuming
// activity events between the API and the worker pool.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 100000
)

// Activity is the payload type flowing through the queue.
type Activity = model.Activity

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an activity to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, a Activity) bool

	// Dequeue returns a channel that receives activities as they become
	// available. The channel closes when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Activity

	// Len returns the current number of queued activities.
	Len(ctx context.Context) int

	// Close stops the queue; no new activities are accepted afterwards.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	activities chan Activity
	capacity   int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration
// options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.activities = make(chan Activity, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds an activity to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a Activity) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.activities <- a:
		metrics.RecordQueueEnqueue()
		q.publishGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives activities as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Activity {
	out := make(chan Activity)
	go func() {
		defer close(out)
		for a := range q.activities {
			select {
			case out <- a:
				metrics.RecordQueueDequeue()
				q.publishGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued activities.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.activities)
}

// Close stops the queue. The dequeue channel closes once drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.activities)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishGauges() {
	size := len(q.activities)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
