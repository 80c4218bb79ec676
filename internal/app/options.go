package app

import (
	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMinRecords sets the minimum progression length for analysis.
func WithMinRecords(n int) Option {
	return func(s *Service) {
		s.minRecords = n
	}
}

// WithMaxFitIterations bounds the optimizer's iteration budget per model.
func WithMaxFitIterations(n int) Option {
	return func(s *Service) {
		s.maxFitIterations = n
	}
}

// WithCriterion selects the model-comparison criterion.
func WithCriterion(c fitting.Criterion) Option {
	return func(s *Service) {
		if c != "" {
			s.criterion = c
		}
	}
}

// WithTieEpsilon sets the score band within which simpler models win.
func WithTieEpsilon(eps float64) Option {
	return func(s *Service) {
		s.tieEpsilon = eps
	}
}

// WithGoodFitThreshold sets the R-squared floor for counting a fit as good.
func WithGoodFitThreshold(t float64) Option {
	return func(s *Service) {
		s.goodFitThreshold = t
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
