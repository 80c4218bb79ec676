// Package app provides the core service that wires the analysis pipeline
// together and implements the dependencies required by the HTTP API.
package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nayef/paceline/internal/adapters/ingest"
	jobqueue "github.com/nayef/paceline/internal/adapters/mq/queue"
	workerpool "github.com/nayef/paceline/internal/adapters/mq/worker"
	"github.com/nayef/paceline/internal/adapters/repository"
	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/internal/domain/progression"
	"github.com/nayef/paceline/pkg/logger"
	"github.com/nayef/paceline/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 4
	defaultQueueSize   = 1024
)

// Service orchestrates ingestion, extraction, fitting, and storage. Batch
// analysis over a dataset and asynchronous per-category submissions share
// the same store, so the API serves both.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	queue     jobqueue.Queue
	extractor *progression.Extractor
	engine    *fitting.Engine
	pool      *workerpool.Pool

	workerCount      int
	queueSize        int
	minRecords       int
	maxFitIterations int
	criterion        fitting.Criterion
	tieEpsilon       float64
	goodFitThreshold float64

	started bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		criterion:   fitting.CriterionRSquared,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	var storeOpts []repository.StoreOption
	if s.goodFitThreshold > 0 {
		storeOpts = append(storeOpts, repository.WithGoodFitThreshold(s.goodFitThreshold))
	}
	s.store = repository.NewMemStore(storeOpts...)

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))

	var extractorOpts []progression.Option
	if s.minRecords > 0 {
		extractorOpts = append(extractorOpts, progression.WithMinRecords(s.minRecords))
	}
	s.extractor = progression.NewExtractor(extractorOpts...)

	engineOpts := []fitting.Option{fitting.WithCriterion(s.criterion)}
	if s.maxFitIterations > 0 {
		engineOpts = append(engineOpts, fitting.WithMaxIterations(s.maxFitIterations))
	}
	if s.tieEpsilon > 0 {
		engineOpts = append(engineOpts, fitting.WithTieEpsilon(s.tieEpsilon))
	}
	s.engine = fitting.NewEngine(engineOpts...)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.extractor, s.engine, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("criterion", string(s.engine.Criterion())),
		logger.Int("minRecords", s.extractor.MinRecords()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.pool != nil {
		_ = s.pool.Shutdown(context.Background())
	}

	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// Submit validates a category's raw runs and enqueues an analysis job.
// Malformed runs are rejected individually; an empty remainder still flows
// through the pipeline so the category gets an explicit failure marker.
// Returns false when the queue applies backpressure.
func (s *Service) Submit(ctx context.Context, game, category string, raws []ingest.RawRun) (jobID string, rejected int, ok bool) {
	runs, rejects := ingest.ValidateRuns(game, category, raws)
	for _, rej := range rejects {
		s.logger.Warn(ctx, "rejected malformed run", logger.Error(rej))
	}

	job := model.Job{
		JobID:    uuid.NewString(),
		Game:     game,
		Category: category,
		Runs:     runs,
	}
	if !s.queue.Enqueue(ctx, job) {
		return "", len(rejects), false
	}
	return job.JobID, len(rejects), true
}

// AnalyzeDataset runs the batch pipeline over a collected dataset file.
// Categories are mutually independent and are processed with a bounded
// parallel map; a category's failure is stored as a marker and never
// aborts its siblings.
func (s *Service) AnalyzeDataset(ctx context.Context, path string) error {
	ds, err := ingest.LoadDataset(path)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	total := 0
	for _, game := range ds.Games {
		for _, cat := range game.Categories {
			game, cat := game, cat
			total++
			g.Go(func() error {
				s.analyzeCategory(gctx, game.Name, cat.Name, cat.RawRuns())
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary, err := s.store.Summary(ctx)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "batch analysis complete",
		logger.Int("categories", total),
		logger.Int("analyzed", summary.Analyzed),
		logger.Int("failed", summary.Failed),
		logger.Int("goodFits", summary.GoodFits),
	)
	return nil
}

// analyzeCategory runs one category through validation, extraction, and
// fitting, storing either the result or a failure marker.
func (s *Service) analyzeCategory(ctx context.Context, game, category string, raws []ingest.RawRun) {
	runs, rejects := ingest.ValidateRuns(game, category, raws)
	for _, rej := range rejects {
		s.logger.Warn(ctx, "rejected malformed run", logger.Error(rej))
	}

	prog, err := s.extractor.Extract(ctx, game, category, runs)
	if err != nil {
		s.recordFailure(ctx, game, category, workerpool.FailureReason(err), err)
		return
	}

	result, err := s.engine.Analyze(ctx, prog)
	if err != nil {
		s.recordFailure(ctx, game, category, workerpool.FailureReason(err), err)
		return
	}

	if err := s.store.Put(ctx, result); err != nil {
		s.logger.Error(ctx, "failed to store result", logger.Error(err))
		return
	}
	metrics.RecordCategoryAnalyzed()
	s.logger.Info(ctx, "category analyzed",
		logger.String("game", game),
		logger.String("category", category),
		logger.String("bestModel", result.BestModel),
		logger.Float64("r2", result.BestRSquared),
	)
}

func (s *Service) recordFailure(ctx context.Context, game, category, reason string, cause error) {
	metrics.RecordCategoryFailed(reason)
	s.logger.Warn(ctx, "category not analyzed",
		logger.String("game", game),
		logger.String("category", category),
		logger.Error(cause),
	)
	failure := model.CategoryFailure{Game: game, Category: category, Reason: cause.Error()}
	if err := s.store.PutFailure(ctx, failure); err != nil {
		s.logger.Error(ctx, "failed to store failure marker", logger.Error(err))
	}
}

// Result returns the stored outcome for one category.
func (s *Service) Result(ctx context.Context, game, category string) (model.CategoryResult, error) {
	return s.store.Get(ctx, game, category)
}

// Results returns all stored category results.
func (s *Service) Results(ctx context.Context) ([]model.CategoryResult, error) {
	return s.store.List(ctx)
}

// Summary aggregates outcomes over everything analyzed so far.
func (s *Service) Summary(ctx context.Context) (repository.Summary, error) {
	return s.store.Summary(ctx)
}

// QueueLen returns the number of jobs waiting for a worker.
func (s *Service) QueueLen(ctx context.Context) int {
	return s.queue.Len(ctx)
}
