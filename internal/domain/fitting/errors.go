package fitting

import "errors"

// Sentinel kinds for fitting errors.
var (
	// ErrAllModelsFailed reports that every candidate family failed to
	// converge for one category. The category is unscored, not dropped.
	ErrAllModelsFailed = errors.New("all model fits failed")

	// ErrFitDiverged marks a single family's fit that did not converge.
	ErrFitDiverged = errors.New("fit did not converge")

	// ErrIllConditioned marks data the optimizer cannot meaningfully score,
	// e.g. observed times with zero variance.
	ErrIllConditioned = errors.New("ill-conditioned data")

	// ErrTooFewObservations guards direct engine calls below the minimum
	// progression length.
	ErrTooFewObservations = errors.New("too few observations to fit")
)
