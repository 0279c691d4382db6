package cache_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/okian/curio/internal/adapters/cache"
	"github.com/okian/curio/internal/domain/artifact"
	"github.com/okian/curio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// Requires a Redis instance at REDIS_ADDR; skipped otherwise.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.Connect(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	prefix := "curio-test-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":"

	Convey("Given a Redis artifact cache", t, func() {
		c := cache.NewRedisCache(client, cache.WithPrefix(prefix), cache.WithTTL(time.Minute))
		key := artifact.Key(artifact.KindSummary, []byte("abstract"))

		Convey("When reading a key that was never written", func() {
			_, err := c.Get(ctx, "missing")

			Convey("Then ErrCacheMiss is returned", func() {
				So(errors.Is(err, artifact.ErrCacheMiss), ShouldBeTrue)
			})
		})

		Convey("When writing and reading back", func() {
			So(c.Set(ctx, key, []byte("summary text")), ShouldBeNil)
			got, err := c.Get(ctx, key)

			Convey("Then the value round-trips with a TTL", func() {
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "summary text")
				ttl, err := client.TTL(ctx, prefix+key).Result()
				So(err, ShouldBeNil)
				So(ttl, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When used behind the artifact service", func() {
			svc := artifact.NewService(artifact.ExcerptGenerator{Sentences: 1}, c)
			first, err := svc.Get(ctx, artifact.KindSummary, []byte("One. Two."))
			So(err, ShouldBeNil)
			cached, err := c.Get(ctx, artifact.Key(artifact.KindSummary, []byte("One. Two.")))

			Convey("Then the generated artifact is cached", func() {
				So(err, ShouldBeNil)
				So(cached, ShouldResemble, first)
				So(c.Ping(ctx), ShouldBeNil)
			})
		})
	})
}
