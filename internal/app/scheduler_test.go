package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/curio/internal/app"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/ranking"
	"github.com/okian/curio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeJobs struct {
	mu        sync.Mutex
	cycles    int
	rankErr   error
	failUsers map[string]bool
	warmed    [][]string
}

func (f *fakeJobs) RunRanking(context.Context) ([]ranking.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles++
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	return []ranking.Result{
		{PaperID: "p1", Score: &model.Score{PaperID: "p1"}},
		{PaperID: "p2", Err: model.ErrNotEnriched},
	}, nil
}

func (f *fakeJobs) GenerateDigest(_ context.Context, userID string) (model.Briefing, error) {
	if f.failUsers[userID] {
		return model.Briefing{}, model.ErrProfileNotFound
	}
	return model.Briefing{UserID: userID, PaperIDs: []string{"p1", "p3"}}, nil
}

func (f *fakeJobs) WarmSummaries(_ context.Context, ids []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, ids)
	return len(ids)
}

func (f *fakeJobs) cycleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

func TestSchedulerRunNow(t *testing.T) {
	Convey("Given a scheduler for two users", t, func() {
		jobs := &fakeJobs{failUsers: map[string]bool{"ghost": true}}
		s := app.NewScheduler(jobs, []string{"u1", "u2", "ghost"}, app.WithSchedulerLogger(logger.Nop()))

		Convey("A cycle ranks, composes and warms each selected paper once", func() {
			report, err := s.RunNow(context.Background())
			So(err, ShouldBeNil)
			So(report, ShouldResemble, app.Report{
				Ranked:       1,
				RankFailed:   1,
				Digests:      2,
				DigestFailed: 1,
				Warmed:       2,
			})
			So(report.Status(), ShouldEqual, "partial")
			So(jobs.warmed, ShouldResemble, [][]string{{"p1", "p3"}})
		})

		Convey("A ranking failure aborts the cycle", func() {
			jobs.rankErr = errors.New("store down")
			_, err := s.RunNow(context.Background())
			So(err, ShouldEqual, jobs.rankErr)
			So(jobs.warmed, ShouldBeEmpty)
		})
	})

	Convey("A clean report is ok", t, func() {
		So(app.Report{Ranked: 3, Digests: 1}.Status(), ShouldEqual, "ok")
	})
}

func TestSchedulerLifecycle(t *testing.T) {
	Convey("Given a fast scheduler", t, func() {
		jobs := &fakeJobs{}
		s := app.NewScheduler(jobs, []string{"u1"},
			app.WithInterval(10*time.Millisecond),
			app.WithSchedulerLogger(logger.Nop()))

		So(s.IsRunning(), ShouldBeFalse)
		So(s.Start(context.Background()), ShouldBeNil)
		So(s.Start(context.Background()), ShouldBeNil)
		So(s.IsRunning(), ShouldBeTrue)

		Convey("It runs immediately and then on every tick until stopped", func() {
			So(waitFor(func() bool { return jobs.cycleCount() >= 3 }), ShouldBeTrue)
			s.Stop()
			So(s.IsRunning(), ShouldBeFalse)

			after := jobs.cycleCount()
			time.Sleep(30 * time.Millisecond)
			So(jobs.cycleCount(), ShouldEqual, after)

			s.Stop()
		})
	})

	Convey("Given a scheduler whose context is cancelled", t, func() {
		jobs := &fakeJobs{}
		s := app.NewScheduler(jobs, nil,
			app.WithInterval(10*time.Millisecond),
			app.WithSchedulerLogger(logger.Nop()))

		ctx, cancel := context.WithCancel(context.Background())
		So(s.Start(ctx), ShouldBeNil)
		So(waitFor(func() bool { return jobs.cycleCount() >= 1 }), ShouldBeTrue)
		cancel()

		Convey("It reports stopped and can be started again", func() {
			So(waitFor(func() bool { return !s.IsRunning() }), ShouldBeTrue)

			before := jobs.cycleCount()
			So(s.Start(context.Background()), ShouldBeNil)
			So(s.IsRunning(), ShouldBeTrue)
			So(waitFor(func() bool { return jobs.cycleCount() > before }), ShouldBeTrue)

			s.Stop()
			So(s.IsRunning(), ShouldBeFalse)
		})
	})
}
