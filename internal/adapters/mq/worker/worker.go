// Package worker runs the per-category analysis pipeline off the job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/internal/adapters/mq/queue"
	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/internal/domain/progression"
	"github.com/nayef/paceline/pkg/logger"
	"github.com/nayef/paceline/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.Job

// Extractor derives the world-record progression from a category's runs.
type Extractor interface {
	Extract(ctx context.Context, game, category string, runs []model.Run) (model.Progression, error)
}

// Analyzer fits candidate models to a progression and selects a winner.
type Analyzer interface {
	Analyze(ctx context.Context, prog model.Progression) (model.CategoryResult, error)
}

// Sink receives category results and explicit failure markers.
type Sink interface {
	Put(ctx context.Context, result model.CategoryResult) error
	PutFailure(ctx context.Context, failure model.CategoryFailure) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes analysis jobs until stopped. Each job is one category;
// a failing category is recorded as a failure marker and never aborts
// siblings.
type Worker struct {
	queue     Queue
	extractor Extractor
	analyzer  Analyzer
	sink      Sink
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, extractor Extractor, analyzer Analyzer, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		extractor: extractor,
		analyzer:  analyzer,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one category through validation, extraction, and fitting,
// and stores either the result or an explicit failure marker.
func (w *Worker) process(ctx context.Context, job Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	prog, err := w.extractor.Extract(ctx, job.Game, job.Category, job.Runs)
	if err != nil {
		w.fail(ctx, job, FailureReason(err), err)
		return
	}

	result, err := w.analyzer.Analyze(ctx, prog)
	if err != nil {
		w.fail(ctx, job, FailureReason(err), err)
		return
	}

	if err := w.sink.Put(ctx, result); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "failed to store result",
			logger.String("game", job.Game),
			logger.String("category", job.Category),
			logger.Error(err),
		)
		return
	}

	metrics.RecordCategoryAnalyzed()
	w.logger.Info(ctx, "category analyzed",
		logger.String("game", job.Game),
		logger.String("category", job.Category),
		logger.String("bestModel", result.BestModel),
		logger.Float64("r2", result.BestRSquared),
		logger.Int("records", result.NRecords),
	)
}

// fail records a per-category failure without touching siblings.
func (w *Worker) fail(ctx context.Context, job Job, reason string, cause error) {
	metrics.RecordCategoryFailed(reason)
	metrics.RecordWorkerError()
	w.logger.Warn(ctx, "category not analyzed",
		logger.String("game", job.Game),
		logger.String("category", job.Category),
		logger.String("reason", reason),
		logger.Error(cause),
	)

	failure := model.CategoryFailure{Game: job.Game, Category: job.Category, Reason: cause.Error()}
	if err := w.sink.PutFailure(ctx, failure); err != nil {
		w.logger.Error(ctx, "failed to store failure marker", logger.Error(err))
	}
}

// FailureReason maps pipeline errors to stable metric labels. Both the
// queue-driven and batch pipelines label failures through it so the
// categories_failed series stays consistent.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, progression.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, fitting.ErrAllModelsFailed):
		return "all_models_failed"
	case errors.Is(err, fitting.ErrTooFewObservations):
		return "insufficient_data"
	case errors.Is(err, ingest.ErrMalformedRun):
		return "malformed_input"
	default:
		return "internal"
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*Worker

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of count workers; a non-positive count defaults to
// the number of CPUs.
func NewPool(count int, q Queue, extractor Extractor, analyzer Analyzer, sink Sink) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}

	p := &Pool{
		workers:  make([]*Worker, count),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < count; i++ {
		p.workers[i] = NewWorker(q, extractor, analyzer, sink, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerActive(count)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, waiting briefly for each.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerActive(0)
}

// Shutdown closes the queue and drains the workers within a timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActive(0)
	return nil
}

// Ensure the concrete queue satisfies the worker-side contract.
var _ Queue = (*queue.InMemoryQueue)(nil)
