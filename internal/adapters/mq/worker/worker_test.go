package worker_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/internal/adapters/mq/queue"
	"github.com/nayef/paceline/internal/adapters/mq/worker"
	"github.com/nayef/paceline/internal/adapters/repository"
	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/internal/domain/progression"
	"github.com/nayef/paceline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// waitStore wraps a MemStore and signals every Put and PutFailure so tests
// can wait for async processing without polling.
type waitStore struct {
	*repository.MemStore
	wg *sync.WaitGroup
}

func (s *waitStore) Put(ctx context.Context, result model.CategoryResult) error {
	defer s.wg.Done()
	return s.MemStore.Put(ctx, result)
}

func (s *waitStore) PutFailure(ctx context.Context, failure model.CategoryFailure) error {
	defer s.wg.Done()
	return s.MemStore.PutFailure(ctx, failure)
}

func decayRuns(game, category string, n int) []model.Run {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := make([]model.Run, n)
	for i := range runs {
		runs[i] = model.Run{
			Game:     game,
			Category: category,
			Seconds:  1000 - float64(i*i), // strictly decreasing, curved
			Date:     start.AddDate(0, 0, i*10),
		}
	}
	return runs
}

func TestWorkerPool(t *testing.T) {
	Convey("Given a pool wired to a queue, extractor, engine, and store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		extractor := progression.NewExtractor()
		engine := fitting.NewEngine()

		var wg sync.WaitGroup
		sink := &waitStore{MemStore: repository.NewMemStore(), wg: &wg}

		pool := worker.NewPool(2, q, extractor, engine, sink)
		pool.Start(ctx)

		Convey("When a healthy category is enqueued", func() {
			wg.Add(1)
			ok := q.Enqueue(ctx, worker.Job{
				JobID: "j1", Game: "g", Category: "c",
				Runs: decayRuns("g", "c", 10),
			})
			So(ok, ShouldBeTrue)
			wg.Wait()

			Convey("Then the result lands in the store", func() {
				result, err := sink.Get(ctx, "g", "c")
				So(err, ShouldBeNil)
				So(result.NRecords, ShouldEqual, 10)
				So(result.BestModel, ShouldNotBeEmpty)
			})
		})

		Convey("When one category is malformed and its siblings are healthy", func() {
			wg.Add(3)
			q.Enqueue(ctx, worker.Job{JobID: "j1", Game: "g", Category: "good-1", Runs: decayRuns("g", "good-1", 10)})
			q.Enqueue(ctx, worker.Job{JobID: "j2", Game: "g", Category: "short", Runs: decayRuns("g", "short", 2)})
			q.Enqueue(ctx, worker.Job{JobID: "j3", Game: "g", Category: "good-2", Runs: decayRuns("g", "good-2", 12)})
			wg.Wait()

			Convey("Then the failure is isolated", func() {
				_, err := sink.Get(ctx, "g", "good-1")
				So(err, ShouldBeNil)
				_, err = sink.Get(ctx, "g", "good-2")
				So(err, ShouldBeNil)

				failures, err := sink.Failures(ctx)
				So(err, ShouldBeNil)
				So(len(failures), ShouldEqual, 1)
				So(failures[0].Category, ShouldEqual, "short")
				So(failures[0].Reason, ShouldNotBeEmpty)
			})
		})

		Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			Convey("Then the queue is closed and workers drain", func() {
				So(err, ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}

func TestFailureReason(t *testing.T) {
	Convey("Given pipeline errors from either the queue or batch path", t, func() {
		Convey("Then each maps to its stable metric label", func() {
			So(worker.FailureReason(progression.ErrInsufficientData), ShouldEqual, "insufficient_data")
			So(worker.FailureReason(fitting.ErrTooFewObservations), ShouldEqual, "insufficient_data")
			So(worker.FailureReason(fitting.ErrAllModelsFailed), ShouldEqual, "all_models_failed")
			So(worker.FailureReason(ingest.ErrMalformedRun), ShouldEqual, "malformed_input")
			So(worker.FailureReason(context.Canceled), ShouldEqual, "internal")
		})

		Convey("Then wrapped errors map the same as their sentinels", func() {
			wrapped := fmt.Errorf("analysis failed: %w", fitting.ErrTooFewObservations)
			So(worker.FailureReason(wrapped), ShouldEqual, "insufficient_data")
		})
	})
}
