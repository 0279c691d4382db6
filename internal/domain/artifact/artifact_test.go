package artifact_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/curio/internal/domain/artifact"
	"github.com/okian/curio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type countingGenerator struct {
	calls int
	err   error
}

func (g *countingGenerator) Generate(_ context.Context, kind artifact.Kind, input []byte) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return append([]byte(string(kind)+"/"), input...), nil
}

// gatedGenerator blocks every call until release is closed.
type gatedGenerator struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(_ context.Context, kind artifact.Kind, input []byte) ([]byte, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return append([]byte(string(kind)+"/"), input...), nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte) error   { return errors.New("down") }

func TestKey(t *testing.T) {
	Convey("Given artifact inputs", t, func() {
		Convey("Then equal inputs share a key and different ones do not", func() {
			a := artifact.Key(artifact.KindSummary, []byte("abstract"))
			So(a, ShouldEqual, artifact.Key(artifact.KindSummary, []byte("abstract")))
			So(a, ShouldNotEqual, artifact.Key(artifact.KindSummary, []byte("abstract v2")))
			So(a, ShouldNotEqual, artifact.Key(artifact.KindCritique, []byte("abstract")))
			So(a, ShouldStartWith, "summary:")
			So(len(a), ShouldEqual, len("summary:")+64)
		})
	})
}

func TestService(t *testing.T) {
	Convey("Given a service with a memory cache", t, func() {
		ctx := context.Background()
		gen := &countingGenerator{}
		cache := artifact.NewMemoryCache()
		svc := artifact.NewService(gen, cache, artifact.WithLogger(logger.Nop()))

		Convey("When the same input is requested twice", func() {
			first, err1 := svc.Get(ctx, artifact.KindSummary, []byte("x"))
			second, err2 := svc.Get(ctx, artifact.KindSummary, []byte("x"))

			Convey("Then it is generated once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(string(first), ShouldEqual, "summary/x")
				So(second, ShouldResemble, first)
				So(gen.calls, ShouldEqual, 1)
				So(cache.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the input changes", func() {
			_, _ = svc.Get(ctx, artifact.KindSummary, []byte("x"))
			_, _ = svc.Get(ctx, artifact.KindSummary, []byte("y"))

			Convey("Then it is regenerated", func() {
				So(gen.calls, ShouldEqual, 2)
			})
		})

		Convey("When the generator fails", func() {
			gen.err = errors.New("quota")
			_, err := svc.Get(ctx, artifact.KindCritique, []byte("x"))

			Convey("Then the error surfaces and nothing is cached", func() {
				So(err, ShouldNotBeNil)
				So(cache.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the kind is empty", func() {
			_, err := svc.Get(ctx, "", []byte("x"))

			Convey("Then ErrEmptyKind is returned", func() {
				So(errors.Is(err, artifact.ErrEmptyKind), ShouldBeTrue)
			})
		})
	})

	Convey("Given a slow generator and many concurrent requests for one input", t, func() {
		gen := &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
		svc := artifact.NewService(gen, artifact.NewMemoryCache(), artifact.WithLogger(logger.Nop()))

		const callers = 16
		outs := make([]string, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out, err := svc.Get(context.Background(), artifact.KindSummary, []byte("same"))
				outs[i], errs[i] = string(out), err
			}(i)
		}
		<-gen.entered
		time.Sleep(20 * time.Millisecond)
		close(gen.release)
		wg.Wait()

		Convey("Then the generator runs once and every caller gets the artifact", func() {
			So(gen.calls.Load(), ShouldEqual, int32(1))
			for i := 0; i < callers; i++ {
				So(errs[i], ShouldBeNil)
				So(outs[i], ShouldEqual, "summary/same")
			}
		})
	})

	Convey("Given a service whose cache is down", t, func() {
		gen := &countingGenerator{}
		svc := artifact.NewService(gen, brokenCache{}, artifact.WithLogger(logger.Nop()))

		Convey("When requesting an artifact", func() {
			out, err := svc.Get(context.Background(), artifact.KindSummary, []byte("x"))

			Convey("Then it is still generated", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "summary/x")
			})
		})
	})
}

func TestExcerptGenerator(t *testing.T) {
	Convey("Given an abstract with several sentences", t, func() {
		input := []byte("We propose X.  It beats Y by 3.5 points! Code is released. More text")
		gen := artifact.ExcerptGenerator{}

		Convey("When summarizing with defaults", func() {
			out, err := gen.Generate(context.Background(), artifact.KindSummary, input)

			Convey("Then the first two sentences are kept", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "We propose X. It beats Y by 3.5 points!")
			})
		})

		Convey("When the input has fewer sentences than requested", func() {
			out, err := artifact.ExcerptGenerator{Sentences: 10}.Generate(context.Background(), artifact.KindSummary, input)

			Convey("Then the whole normalized text is returned", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "We propose X. It beats Y by 3.5 points! Code is released. More text")
			})
		})

		Convey("When asked for another kind", func() {
			_, err := gen.Generate(context.Background(), artifact.KindCritique, input)

			Convey("Then it refuses", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
