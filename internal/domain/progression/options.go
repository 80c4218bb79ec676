// Package progression derives world-record progressions from raw run sets.
package progression

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithMinRecords sets the minimum progression length required for analysis.
// Values below the hard floor are clamped to it; the curve families need
// enough degrees of freedom to be meaningful.
func WithMinRecords(n int) Option {
	return func(e *Extractor) {
		if n < minRecordsFloor {
			n = minRecordsFloor
		}
		e.minRecords = n
	}
}
