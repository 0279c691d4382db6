// Package queue buffers feedback events between intake and the workers that
// apply them to interest vectors.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. It never blocks; ErrFull and ErrClosed report rejection.
	Enqueue(ctx context.Context, e model.FeedbackEvent) error

	// Dequeue returns a channel that yields events until the queue is closed
	// and drained or ctx is done.
	Dequeue(ctx context.Context) <-chan model.FeedbackEvent

	// Len returns the current number of queued events.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops intake. Buffered events remain available to Dequeue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

type envelope struct {
	event      model.FeedbackEvent
	enqueuedAt time.Time
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan envelope
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan envelope, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.FeedbackEvent) error { //nolint:gocritic // hugeParam: events travel by value through the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.events <- envelope{event: e, enqueuedAt: time.Now()}:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive events as they become available.
// Each call starts its own forwarder, so several workers may share one queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.FeedbackEvent {
	out := make(chan model.FeedbackEvent)
	go func() {
		defer close(out)
		for {
			var env envelope
			var ok bool
			select {
			case env, ok = <-q.events:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}

			select {
			case out <- env.event:
				metrics.RecordQueueDequeue()
				metrics.RecordQueueProcessingLatency(float64(time.Since(env.enqueuedAt).Milliseconds()))
				q.updateGauges()
			case <-ctx.Done():
				q.putBack(env)
				return
			}
		}
	}()
	return out
}

// putBack returns an event taken by a cancelled forwarder.
func (q *InMemoryQueue) putBack(env envelope) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.RecordErrorByComponent("queue", "dropped_on_shutdown")
		return
	}
	select {
	case q.events <- env:
	default:
		metrics.RecordErrorByComponent("queue", "dropped_on_shutdown")
	}
}

func (q *InMemoryQueue) updateGauges() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	q.updateGauges()
	return len(q.events)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
