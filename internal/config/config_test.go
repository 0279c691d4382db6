package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/curio/internal/config"
	"github.com/okian/curio/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.RankingUserID, convey.ShouldEqual, "default")
			convey.So(cfg.Lookback(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.ScheduleInterval(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.Weights, convey.ShouldResemble, scoring.DefaultWeights())
			convey.So(cfg.Brokers(), convey.ShouldBeEmpty)
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Lists(t *testing.T) {
	convey.Convey("Given comma separated lists", t, func() {
		cfg := config.New()
		cfg.KafkaBrokers = " k1:9092, ,k2:9092 "
		cfg.DigestUserIDs = "alice,bob"

		convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
		convey.So(cfg.DigestUsers(), convey.ShouldResemble, []string{"alice", "bob"})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs that break a rule", t, func() {
		ctx := context.Background()
		cases := map[string]func(*config.Config){
			"addr must not be empty":    func(c *config.Config) { c.Addr = " " },
			"log_format":                func(c *config.Config) { c.LogFormat = "xml" },
			"queue_size":                func(c *config.Config) { c.QueueSize = 0 },
			"worker_count":              func(c *config.Config) { c.WorkerCount = -1 },
			"store_driver":              func(c *config.Config) { c.StoreDriver = "sqlite" },
			"database_url":              func(c *config.Config) { c.StoreDriver = config.StorePostgres },
			"lookback_hours":            func(c *config.Config) { c.LookbackHours = 0 },
			"schedule_interval_minutes": func(c *config.Config) { c.ScheduleIntervalMinutes = -5 },
			"velocity_placeholder":      func(c *config.Config) { c.VelocityPlaceholder = 1.5 },
			"ranking_user_id":           func(c *config.Config) { c.RankingUserID = "" },
			"kafka_topic is required":   func(c *config.Config) { c.KafkaBrokers = "k:9092"; c.KafkaTopic = "" },
		}

		for msg, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, msg)
		}
	})

	convey.Convey("Given a postgres config with a database url", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.StorePostgres
		cfg.DatabaseURL = "postgres://localhost/curio"
		cfg.ScheduleIntervalMinutes = 0

		convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		convey.So(cfg.ScheduleInterval(), convey.ShouldEqual, time.Duration(0))
	})
}
