package progression

import "errors"

// Sentinel kinds for extraction errors.
var (
	ErrInsufficientData = errors.New("progression too short to analyze")
)
