package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSnapshotInterval sets how often the all-time totals snapshot is
// republished.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithTopCacheSize bounds the number of entries kept in the snapshot's
// top cache.
func WithTopCacheSize(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.topCacheSize = n
		}
	}
}
