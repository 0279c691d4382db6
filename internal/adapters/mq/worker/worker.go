// Package worker drains the feedback queue and applies each event through a
// Processor, optionally skipping redelivered events.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
)

// Processor applies one feedback event.
type Processor interface {
	Process(ctx context.Context, event model.FeedbackEvent) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, event model.FeedbackEvent) error

func (f ProcessorFunc) Process(ctx context.Context, event model.FeedbackEvent) error { //nolint:gocritic // hugeParam: events travel by value
	return f(ctx, event)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.FeedbackEvent
}

// Stats are cumulative counters for a pool.
type Stats struct {
	processed  atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Duplicates int64 `json:"duplicates"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Processed:  s.processed.Load(),
		Failed:     s.failed.Load(),
		Duplicates: s.duplicates.Load(),
	}
}

// Worker processes events until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	deduper   dedupe.Deduper
	stats     *Stats
	name      string

	stop chan struct{}
	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		stats:     &Stats{},
		name:      "worker",
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Stats returns the worker's counters.
func (w *InMemoryWorker) Stats() Snapshot { return w.stats.Snapshot() }

// Run consumes events until the queue closes, ctx is done, or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	events := w.queue.Dequeue(runCtx)
	for {
		select {
		case <-runCtx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing feedback event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight event to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event model.FeedbackEvent) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if w.deduper != nil && event.ID != "" && w.deduper.SeenAndRecord(ctx, event.ID) {
		w.stats.duplicates.Add(1)
		metrics.RecordFeedbackDuplicate()
		w.logger.Debug(ctx, "duplicate feedback event skipped", logger.String("event_id", event.ID))
		return nil
	}

	if err := w.processor.Process(ctx, event); err != nil {
		if w.deduper != nil && event.ID != "" {
			w.deduper.Unrecord(ctx, event.ID)
		}
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		return fmt.Errorf("process event %s: %w", event.ID, err)
	}

	w.stats.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *Stats
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Non-positive counts default to NumCPU.
// Options are applied to every worker.
func NewPool(workerCount int, q Queue, p Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &Stats{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{
			WithName("worker-" + strconv.Itoa(i)),
			withStats(pool.stats),
		}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, p, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Stats returns the pool's cumulative counters.
func (p *Pool) Stats() Snapshot { return p.stats.Snapshot() }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop stops every worker without draining the queue.
func (p *Pool) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}

// Shutdown closes the queue, lets the workers drain what is buffered and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
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
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			return p.Stop(ctx)
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
