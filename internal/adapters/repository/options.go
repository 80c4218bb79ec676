// Package repository defines the category result store interface and errors.
package repository

// StoreOption applies a configuration option to the MemStore.
type StoreOption func(*MemStore)

// WithGoodFitThreshold sets the R-squared floor above which a category
// counts toward summary averages.
func WithGoodFitThreshold(threshold float64) StoreOption {
	return func(s *MemStore) {
		if threshold > 0 && threshold < 1 {
			s.goodFitThreshold = threshold
		}
	}
}
