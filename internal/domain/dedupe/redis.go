package dedupe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/curio/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Redis is a Deduper shared by every process pointed at the same Redis.
// Markers expire after the configured TTL. Backend errors fail open.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	log    logger.Logger
	size   atomic.Int64
}

var _ Deduper = (*Redis)(nil)

// NewRedis creates a Redis-backed deduper.
func NewRedis(client redis.Cmdable, opts ...Option) *Redis {
	c := newConfig(opts)
	if c.log == nil {
		c.log = logger.Get().Named("dedupe")
	}
	return &Redis{
		client: client,
		ttl:    c.ttl,
		prefix: c.prefix,
		log:    c.log,
	}
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) SeenAndRecord(ctx context.Context, id string) bool {
	created, err := r.client.SetNX(ctx, r.key(id), 1, r.ttl).Result()
	if err != nil {
		r.log.Warn(ctx, "dedupe check failed, processing event",
			logger.String("event_id", id),
			logger.Error(err))
		return false
	}
	if created {
		r.size.Add(1)
	}
	return !created
}

func (r *Redis) Unrecord(ctx context.Context, id string) {
	removed, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		r.log.Warn(ctx, "dedupe unrecord failed",
			logger.String("event_id", id),
			logger.Error(err))
		return
	}
	if removed > 0 {
		r.size.Add(-1)
	}
}

// Size counts markers created by this instance that were not unrecorded.
func (r *Redis) Size() int64 {
	return r.size.Load()
}
