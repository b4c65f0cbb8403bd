package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/studyhall-app/studyhall/internal/adapters/mq/queue"
	"github.com/studyhall-app/studyhall/internal/domain/model"
)

func activity(eventID string) model.Activity {
	return model.Activity{
		EventID:    eventID,
		UserID:     "learner-1",
		Kind:       model.KindPracticeCorrect,
		OccurredAt: time.Now(),
	}
}

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))

		Convey("When activities are enqueued", func() {
			So(q.Enqueue(ctx, activity("evt-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, activity("evt-2")), ShouldBeTrue)

			Convey("Then the length reflects the backlog", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And dequeue delivers them in order", func() {
				out := q.Dequeue(ctx)
				first := <-out
				second := <-out
				So(first.EventID, ShouldEqual, "evt-1")
				So(second.EventID, ShouldEqual, "evt-2")
			})
		})
	})
}

func TestEnqueueBackpressure(t *testing.T) {
	Convey("Given a queue at capacity", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		So(q.Enqueue(ctx, activity("evt-1")), ShouldBeTrue)
		So(q.Enqueue(ctx, activity("evt-2")), ShouldBeTrue)

		Convey("When another activity is enqueued", func() {
			accepted := q.Enqueue(ctx, activity("evt-3"))

			Convey("Then it is rejected without blocking", func() {
				So(accepted, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestQueueClose(t *testing.T) {
	Convey("Given a queue with pending activities", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		So(q.Enqueue(ctx, activity("evt-1")), ShouldBeTrue)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects new activities", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, activity("evt-2")), ShouldBeFalse)
			})

			Convey("And the dequeue channel drains then closes", func() {
				out := q.Dequeue(ctx)
				a, ok := <-out
				So(ok, ShouldBeTrue)
				So(a.EventID, ShouldEqual, "evt-1")

				_, ok = <-out
				So(ok, ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestDequeueContextCancel(t *testing.T) {
	Convey("Given a consumer with a cancelled context", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx, cancel := context.WithCancel(context.Background())

		out := q.Dequeue(ctx)

		Convey("When the context is cancelled and the queue closes", func() {
			cancel()
			So(q.Enqueue(context.Background(), activity("evt-1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then the consumer channel closes", func() {
				deadline := time.After(time.Second)
				closed := false
				for !closed {
					select {
					case _, ok := <-out:
						closed = !ok
					case <-deadline:
						closed = true
						So("timeout waiting for channel close", ShouldBeEmpty)
					}
				}
			})
		})
	})
}
