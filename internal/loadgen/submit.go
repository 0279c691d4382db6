package loadgen

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/curio/pkg/logger"
)

// submitFeedback posts events concurrently using a worker pool.
func submitFeedback(ctx context.Context, config *Config, client *HTTPClient, events []Feedback, stats *Stats) {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting feedback", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	var (
		accepted  int64
		throttled int64
		failed    int64
		submitted int64
	)

	var lastReport atomic.Int64
	eventChan := make(chan Feedback, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				status, err := client.Do(ctx, http.MethodPost, "/feedback", event, nil)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err == nil:
					atomic.AddInt64(&accepted, 1)
				case status == http.StatusTooManyRequests:
					atomic.AddInt64(&throttled, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "feedback rejected", logger.String("event_id", event.EventID), logger.Error(err))
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
						logger.Int("total", len(events)),
						logger.Int("accepted", int(atomic.LoadInt64(&accepted))),
						logger.Int("throttled", int(atomic.LoadInt64(&throttled))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsAccepted = int(atomic.LoadInt64(&accepted))
	stats.EventsThrottled = int(atomic.LoadInt64(&throttled))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "feedback submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("throttled", stats.EventsThrottled),
		logger.Int("failed", stats.EventsFailed))
}
