package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/curio/internal/adapters/mq/kafka"
	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/app"
	"github.com/okian/curio/internal/domain/feedback"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func enrichedPaper(id string, emb model.Embedding) model.Paper {
	return model.Paper{
		ID:          id,
		Title:       "paper " + id,
		Abstract:    "First sentence about " + id + ". Second sentence. Third sentence.",
		PublishedAt: now.Add(-time.Hour),
		Enrichment: &model.Enrichment{
			Embedding: emb,
			Evidence:  model.EvidenceFlags{Baselines: true, Ablations: true, Code: true, Data: true, MultipleEvals: true},
		},
	}
}

func seed(ctx context.Context, store repository.Store) {
	p := model.NewProfile("u1")
	p.InterestVector = model.Embedding{1, 0}
	p.ScoreThreshold = 0.3
	p.NoiseCap = 2
	p.ExplorationRate = 0
	So(store.SaveProfile(ctx, p), ShouldBeNil)
	So(store.SavePaper(ctx, enrichedPaper("p1", model.Embedding{1, 0})), ShouldBeNil)
	So(store.SavePaper(ctx, enrichedPaper("p2", model.Embedding{0.6, 0.8})), ShouldBeNil)
	So(store.SavePaper(ctx, enrichedPaper("p3", model.Embedding{0, 1})), ShouldBeNil)
}

func newService(store repository.Store, opts ...app.Option) *app.Service {
	base := []app.Option{
		app.WithStore(store),
		app.WithWorkerCount(2),
		app.WithQueueSize(16),
		app.WithRankingUserID("u1"),
		app.WithClock(func() time.Time { return now }),
		app.WithIDGenerator(func() string { return "evt-fixed" }),
		app.WithLogger(logger.Nop()),
	}
	return app.New(append(base, opts...)...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.FeedbackEvent
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, e model.FeedbackEvent) error { //nolint:gocritic // hugeParam
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

type replayConsumer struct {
	events []model.FeedbackEvent
	closed bool
}

func (c *replayConsumer) Run(ctx context.Context, sink kafka.Sink) error {
	for _, e := range c.events {
		if err := sink.Enqueue(ctx, e); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

func (c *replayConsumer) Close() error {
	c.closed = true
	return nil
}

func TestSubmitFeedback(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seed(ctx, store)
		svc := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("A valid event is stamped and applied asynchronously", func() {
			ev, err := svc.SubmitFeedback(ctx, model.FeedbackEvent{UserID: "u1", PaperID: "p3", Action: model.ActionSave})
			So(err, ShouldBeNil)
			So(ev.ID, ShouldEqual, "evt-fixed")
			So(ev.Timestamp, ShouldEqual, now)
			So(ev.Weight, ShouldEqual, 1)

			moved := waitFor(func() bool {
				p, err := store.GetProfile(ctx, "u1")
				return err == nil && p.InterestVector[1] > 0
			})
			So(moved, ShouldBeTrue)

			events, err := store.ListFeedback(ctx, "u1")
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 1)
		})

		Convey("A redelivered event id moves the vector once", func() {
			ev := model.FeedbackEvent{ID: "dup", UserID: "u1", PaperID: "p3", Action: model.ActionSave}
			_, err := svc.SubmitFeedback(ctx, ev)
			So(err, ShouldBeNil)
			_, err = svc.SubmitFeedback(ctx, ev)
			So(err, ShouldBeNil)

			So(svc.Stop(ctx), ShouldBeNil)

			events, err := store.ListFeedback(ctx, "u1")
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 1)
			So(svc.GetStats()["dedupeEntries"], ShouldEqual, int64(1))
		})

		Convey("Missing ids are rejected", func() {
			_, err := svc.SubmitFeedback(ctx, model.FeedbackEvent{UserID: " ", PaperID: "p1", Action: model.ActionSave})
			So(errors.Is(err, app.ErrInvalidFeedback), ShouldBeTrue)
		})

		Convey("Unknown actions are rejected", func() {
			_, err := svc.SubmitFeedback(ctx, model.FeedbackEvent{UserID: "u1", PaperID: "p1", Action: "star"})
			So(errors.Is(err, model.ErrUnknownAction), ShouldBeTrue)
		})

		Convey("Stats report the running pipeline", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["rankingUserID"], ShouldEqual, "u1")
			So(stats, ShouldContainKey, "queueLength")
		})
	})

	Convey("Given a service that was not started", t, func() {
		svc := newService(repository.NewMemStore())

		Convey("Submission fails", func() {
			_, err := svc.SubmitFeedback(context.Background(), model.FeedbackEvent{UserID: "u1", PaperID: "p1", Action: model.ActionHide})
			So(errors.Is(err, app.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Stop is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestKafkaWiring(t *testing.T) {
	Convey("Given a service with a publisher", t, func() {
		ctx := context.Background()
		pub := &recordingPublisher{}
		svc := newService(repository.NewMemStore(), app.WithPublisher(pub))

		Convey("Feedback goes to the log instead of the queue", func() {
			ev, err := svc.SubmitFeedback(ctx, model.FeedbackEvent{UserID: "u1", PaperID: "p1", Action: model.ActionThumbsUp})
			So(err, ShouldBeNil)
			So(len(pub.events), ShouldEqual, 1)
			So(pub.events[0].ID, ShouldEqual, ev.ID)
		})
	})

	Convey("Given a service with a consumer", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seed(ctx, store)
		consumer := &replayConsumer{events: []model.FeedbackEvent{
			{ID: "k1", UserID: "u1", PaperID: "p3", Action: model.ActionSave, Timestamp: now},
		}}
		svc := newService(store, app.WithConsumer(consumer))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Consumed events are applied and the consumer is closed on stop", func() {
			So(waitFor(func() bool {
				events, err := store.ListFeedback(ctx, "u1")
				return err == nil && len(events) == 1
			}), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
			So(consumer.closed, ShouldBeTrue)
		})
	})
}

func TestRankingAndDigest(t *testing.T) {
	Convey("Given seeded papers and a profile", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seed(ctx, store)
		svc := newService(store)

		results, err := svc.RunRanking(ctx)
		So(err, ShouldBeNil)
		So(len(results), ShouldEqual, 3)
		for _, r := range results {
			So(r.Err, ShouldBeNil)
		}

		Convey("A second ranking run finds nothing new", func() {
			again, err := svc.RunRanking(ctx)
			So(err, ShouldBeNil)
			So(again, ShouldBeEmpty)
		})

		Convey("The digest exploits the closest papers and can be read back", func() {
			b, err := svc.GenerateDigest(ctx, "u1")
			So(err, ShouldBeNil)
			So(b.PaperIDs, ShouldResemble, []string{"p1", "p2"})
			So(b.Date, ShouldEqual, model.DigestDate(now))

			got, err := svc.GetBriefing(ctx, "u1", now.Add(5*time.Hour))
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, b.ID)

			Convey("Regenerating the same day keeps one briefing", func() {
				again, err := svc.GenerateDigest(ctx, "u1")
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, b.ID)
			})
		})

		Convey("Unknown users have no digest", func() {
			_, err := svc.GenerateDigest(ctx, "ghost")
			So(errors.Is(err, model.ErrProfileNotFound), ShouldBeTrue)
		})

		Convey("Summaries are generated from the abstract and cached", func() {
			s, err := svc.Summary(ctx, "p1")
			So(err, ShouldBeNil)
			So(string(s), ShouldStartWith, "First sentence about p1.")
			So(svc.WarmSummaries(ctx, []string{"p1", "p2", "missing"}), ShouldEqual, 2)
		})
	})
}

func TestSaveProfile(t *testing.T) {
	Convey("Given a stored profile with a learned vector", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seed(ctx, store)
		svc := newService(store)

		Convey("Saving preferences without a vector keeps the learned one", func() {
			p := model.NewProfile("u1")
			p.IncludeTopics = []string{"retrieval"}
			So(svc.SaveProfile(ctx, p), ShouldBeNil)

			got, err := svc.GetProfile(ctx, "u1")
			So(err, ShouldBeNil)
			So(got.InterestVector, ShouldResemble, model.Embedding{1, 0})
			So(got.IncludeTopics, ShouldResemble, []string{"retrieval"})
			So(got.UpdatedAt, ShouldEqual, now)
		})

		Convey("A new user gets a profile without a vector", func() {
			So(svc.SaveProfile(ctx, model.NewProfile("u2")), ShouldBeNil)
			got, err := svc.GetProfile(ctx, "u2")
			So(err, ShouldBeNil)
			So(got.InterestVector, ShouldBeEmpty)
		})

		Convey("A stale vector in the request is ignored", func() {
			p := model.NewProfile("u1")
			p.InterestVector = model.Embedding{0, 1}
			So(svc.SaveProfile(ctx, p), ShouldBeNil)

			got, err := svc.GetProfile(ctx, "u1")
			So(err, ShouldBeNil)
			So(got.InterestVector, ShouldResemble, model.Embedding{1, 0})
		})
	})

	Convey("Given a feedback step that commits while settings are being saved", t, func() {
		ctx := context.Background()
		mem := repository.NewMemStore()
		seed(ctx, mem)
		updater := feedback.NewUpdater(mem, feedback.WithLogger(logger.Nop()))
		store := &interleavingStore{MemStore: mem, before: func() {
			_, err := updater.Apply(ctx, model.FeedbackEvent{ID: "mid", UserID: "u1", PaperID: "p3", Action: model.ActionSave})
			So(err, ShouldBeNil)
		}}
		svc := newService(store)

		p := model.NewProfile("u1")
		p.ExcludeTopics = []string{"crypto"}
		So(svc.SaveProfile(ctx, p), ShouldBeNil)

		Convey("Then the learned step survives the settings write", func() {
			got, err := svc.GetProfile(ctx, "u1")
			So(err, ShouldBeNil)
			So(got.InterestVector[1], ShouldBeGreaterThan, 0)
			So(got.InterestVector[0], ShouldBeLessThan, 1)
			So(got.ExcludeTopics, ShouldResemble, []string{"crypto"})
		})
	})
}

// interleavingStore runs before ahead of every settings write.
type interleavingStore struct {
	*repository.MemStore
	before func()
}

func (s *interleavingStore) UpdateSettings(ctx context.Context, p model.UserProfile) error { //nolint:gocritic // hugeParam
	s.before()
	return s.MemStore.UpdateSettings(ctx, p)
}
