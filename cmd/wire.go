package main

import (
	"context"
	"fmt"

	"github.com/okian/curio/internal/adapters/cache"
	"github.com/okian/curio/internal/adapters/mq/kafka"
	"github.com/okian/curio/internal/adapters/repository/postgres"
	"github.com/okian/curio/internal/app"
	"github.com/okian/curio/internal/config"
	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/internal/domain/scoring"
	"github.com/okian/curio/pkg/logger"
)

// serviceOptions turns configuration into service options. The returned
// cleanup releases connections the service does not own.
func serviceOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	// closers run on cleanup; owned are handed to the service and only
	// closed here when wiring fails.
	var closers, owned []func() error
	release := func(fns []func() error) {
		for i := len(fns) - 1; i >= 0; i-- {
			_ = fns[i]()
		}
	}
	cleanup := func() { release(closers) }
	fail := func(err error) ([]app.Option, func(), error) {
		release(owned)
		cleanup()
		return nil, func() {}, err
	}

	scorer := scoring.NewScorer(
		scoring.WithWeights(cfg.Weights),
		scoring.WithVelocitySignal(scoring.ConstantVelocity(cfg.VelocityPlaceholder)),
	)
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithScorer(scorer),
		app.WithRankingUserID(cfg.RankingUserID),
		app.WithLookback(cfg.Lookback()),
	}

	if cfg.StoreDriver == config.StorePostgres {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		store := postgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fail(fmt.Errorf("ensure schema: %w", err))
		}
		owned = append(owned, store.Close)
		opts = append(opts, app.WithStore(store))
		log.Info(ctx, "using postgres store")
	}

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		opts = append(opts,
			app.WithArtifactCache(cache.NewRedisCache(client, cache.WithTTL(cfg.ArtifactTTL()))),
			app.WithDeduper(dedupe.NewRedis(client, dedupe.WithTTL(cfg.DedupeTTL()), dedupe.WithLogger(log.Named("dedupe")))),
		)
		log.Info(ctx, "using redis for artifacts and dedupe", logger.String("addr", cfg.RedisAddr))
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		pub, err := kafka.NewPublisher(brokers, cfg.KafkaTopic, kafka.WithLogger(log.Named("kafka_publisher")))
		if err != nil {
			return fail(err)
		}
		owned = append(owned, pub.Close)
		cons, err := kafka.NewConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, kafka.WithLogger(log.Named("kafka_consumer")))
		if err != nil {
			return fail(err)
		}
		opts = append(opts, app.WithPublisher(pub), app.WithConsumer(cons))
		log.Info(ctx, "feedback routed through kafka",
			logger.Any("brokers", brokers),
			logger.String("topic", cfg.KafkaTopic))
	}

	return opts, cleanup, nil
}
