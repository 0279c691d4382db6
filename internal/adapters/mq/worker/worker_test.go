package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/curio/internal/adapters/mq/queue"
	"github.com/okian/curio/internal/adapters/mq/worker"
	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type mockQueue struct {
	events chan model.FeedbackEvent
}

func newMockQueue() *mockQueue {
	return &mockQueue{events: make(chan model.FeedbackEvent, 16)}
}

func (m *mockQueue) Dequeue(context.Context) <-chan model.FeedbackEvent { return m.events }

func (m *mockQueue) Close() error {
	close(m.events)
	return nil
}

type recordingProcessor struct {
	mu      sync.Mutex
	applied []string
	failFor map[string]error
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{failFor: make(map[string]error)}
}

func (r *recordingProcessor) Process(_ context.Context, e model.FeedbackEvent) error { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[e.ID]; ok {
		return err
	}
	r.applied = append(r.applied, e.ID)
	return nil
}

func (r *recordingProcessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

func feedback(id string) model.FeedbackEvent {
	return model.FeedbackEvent{ID: id, UserID: "u1", PaperID: "p1", Action: model.ActionSave}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a mock queue", t, func() {
		q := newMockQueue()
		proc := newRecordingProcessor()
		w := worker.NewInMemoryWorker(q, proc, worker.WithName("test-worker"), worker.WithLogger(logger.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events arrive they are processed", func() {
			q.events <- feedback("e1")
			q.events <- feedback("e2")

			convey.So(eventually(func() bool { return proc.count() == 2 }), convey.ShouldBeTrue)
			convey.So(eventually(func() bool { return w.Stats().Processed == 2 }), convey.ShouldBeTrue)
		})

		convey.Convey("When processing fails the failure is counted", func() {
			proc.failFor["bad"] = errors.New("boom")
			q.events <- feedback("bad")
			q.events <- feedback("good")

			convey.So(eventually(func() bool { return proc.count() == 1 }), convey.ShouldBeTrue)
			convey.So(eventually(func() bool { return w.Stats().Failed == 1 }), convey.ShouldBeTrue)
		})

		convey.Convey("When shut down it stops", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newRecordingProcessor(), worker.WithLogger(logger.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(stopped)
		}()
		cancel()

		convey.Convey("Then Run returns", func() {
			select {
			case <-stopped:
			case <-time.After(time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestWorkerDeduplication(t *testing.T) {
	convey.Convey("Given a worker with a deduper", t, func() {
		q := newMockQueue()
		proc := newRecordingProcessor()
		d := dedupe.NewMemory()
		w := worker.NewInMemoryWorker(q, proc, worker.WithDeduper(d), worker.WithLogger(logger.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("A redelivered event is applied once", func() {
			q.events <- feedback("e1")
			q.events <- feedback("e1")
			q.events <- feedback("e2")

			convey.So(eventually(func() bool { return w.Stats().Duplicates == 1 }), convey.ShouldBeTrue)
			convey.So(eventually(func() bool { return proc.count() == 2 }), convey.ShouldBeTrue)
		})

		convey.Convey("A failed event can be retried", func() {
			proc.mu.Lock()
			proc.failFor["e1"] = errors.New("transient")
			proc.mu.Unlock()
			q.events <- feedback("e1")
			convey.So(eventually(func() bool { return w.Stats().Failed == 1 }), convey.ShouldBeTrue)

			proc.mu.Lock()
			delete(proc.failFor, "e1")
			proc.mu.Unlock()
			q.events <- feedback("e1")

			convey.So(eventually(func() bool { return proc.count() == 1 }), convey.ShouldBeTrue)
			convey.So(w.Stats().Duplicates, convey.ShouldEqual, 0)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over the in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		proc := newRecordingProcessor()
		pool := worker.NewPool(4, q, proc, worker.WithLogger(logger.Nop()))

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many events are enqueued and the pool drains", func() {
			for i := 0; i < 100; i++ {
				convey.So(q.Enqueue(ctx, feedback(fmt.Sprintf("e%d", i))), convey.ShouldBeNil)
			}
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)

			convey.Convey("Then every event was processed exactly once", func() {
				convey.So(proc.count(), convey.ShouldEqual, 100)
				convey.So(pool.Stats().Processed, convey.ShouldEqual, 100)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stopped without draining", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(pool.Stop(sctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), worker.ProcessorFunc(func(context.Context, model.FeedbackEvent) error { return nil }))

		convey.Convey("Then it defaults to at least one worker", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
