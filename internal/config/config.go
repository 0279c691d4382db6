// Package config loads process configuration from defaults, an optional
// YAML file and CURIO_ environment variables.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/curio/internal/domain/scoring"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory feedback queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of feedback workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the in-memory deduper.
	DedupeSize int `koanf:"dedupe_size"`
	// DedupeTTLMinutes is how long the Redis deduper remembers an event.
	DedupeTTLMinutes int `koanf:"dedupe_ttl_minutes"`

	// StoreDriver selects memory or postgres.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables the Redis artifact cache and deduper when set.
	RedisAddr          string `koanf:"redis_addr"`
	RedisPassword      string `koanf:"redis_password"`
	RedisDB            int    `koanf:"redis_db"`
	ArtifactTTLMinutes int    `koanf:"artifact_ttl_minutes"`

	// KafkaBrokers is a comma separated list. When set, feedback travels through Kafka.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
	KafkaGroupID string `koanf:"kafka_group_id"`

	// RankingUserID owns the persisted scores.
	RankingUserID string `koanf:"ranking_user_id"`
	// DigestUserIDs is a comma separated list of users the scheduler builds digests for.
	DigestUserIDs string `koanf:"digest_user_ids"`
	// LookbackHours is the digest candidate window.
	LookbackHours int `koanf:"lookback_hours"`
	// ScheduleIntervalMinutes is the pause between pipeline cycles. Zero disables the scheduler.
	ScheduleIntervalMinutes int `koanf:"schedule_interval_minutes"`

	// VelocityPlaceholder is the constant velocity signal until a real source exists.
	VelocityPlaceholder float64 `koanf:"velocity_placeholder"`
	// Weights are the fusion weights; only settable from the YAML file.
	Weights scoring.Weights `koanf:"weights"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              50_000,
		DedupeTTLMinutes:        24 * 60,
		StoreDriver:             StoreMemory,
		ArtifactTTLMinutes:      7 * 24 * 60,
		KafkaTopic:              "curio.feedback",
		KafkaGroupID:            "curio-feedback",
		RankingUserID:           "default",
		LookbackHours:           24,
		ScheduleIntervalMinutes: 60,
		Weights:                 scoring.DefaultWeights(),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StorePostgres:
		return fmt.Errorf("%w: store_driver must be %s or %s", ErrInvalidConfig, StoreMemory, StorePostgres)
	case c.StoreDriver == StorePostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.LookbackHours <= 0:
		return fmt.Errorf("%w: lookback_hours must be positive", ErrInvalidConfig)
	case c.ScheduleIntervalMinutes < 0:
		return fmt.Errorf("%w: schedule_interval_minutes must not be negative", ErrInvalidConfig)
	case c.VelocityPlaceholder < 0 || c.VelocityPlaceholder > 1:
		return fmt.Errorf("%w: velocity_placeholder must be within [0,1]", ErrInvalidConfig)
	case strings.TrimSpace(c.RankingUserID) == "":
		return fmt.Errorf("%w: ranking_user_id must not be empty", ErrInvalidConfig)
	case len(c.Brokers()) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	}
	return nil
}

// Brokers returns the configured Kafka brokers.
func (c *Config) Brokers() []string { return splitList(c.KafkaBrokers) }

// DigestUsers returns the users the scheduler builds digests for.
func (c *Config) DigestUsers() []string { return splitList(c.DigestUserIDs) }

// Lookback returns the digest window.
func (c *Config) Lookback() time.Duration { return time.Duration(c.LookbackHours) * time.Hour }

// ScheduleInterval returns the scheduler period; zero disables scheduling.
func (c *Config) ScheduleInterval() time.Duration {
	return time.Duration(c.ScheduleIntervalMinutes) * time.Minute
}

// ArtifactTTL returns how long cached artifacts live in Redis.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.ArtifactTTLMinutes) * time.Minute
}

// DedupeTTL returns how long Redis remembers processed events.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLMinutes) * time.Minute
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
