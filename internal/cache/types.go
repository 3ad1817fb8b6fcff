// Package cache provides the two audio cache tiers: a durable, content-
// addressed disk store and a small in-memory buffer of decoded audio.
package cache

import (
	"errors"
	"time"
)

var (
	// ErrStoreClosed is returned for operations on a closed store.
	ErrStoreClosed = errors.New("cache store is closed")

	// ErrItemTooLarge is returned when a single entry exceeds the
	// store's whole size budget.
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Stats holds cache performance counters.
type Stats struct {
	Size      int64 // current size in bytes (durable) or entry count (buffer)
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// Options configures the durable store.
type Options struct {
	// MaxBytes is the size budget. Entries are evicted oldest-accessed
	// first once the total exceeds it.
	MaxBytes int64

	// MaxAge evicts entries older than this regardless of size.
	MaxAge time.Duration

	// CompressionLevel is the zstd level for entries over the
	// compression threshold, 0 to disable.
	CompressionLevel int
}

// DefaultOptions matches the application defaults: 200MB budget, 7 day
// retention, balanced compression.
func DefaultOptions() Options {
	return Options{
		MaxBytes:         200 * 1024 * 1024,
		MaxAge:           7 * 24 * time.Hour,
		CompressionLevel: 3,
	}
}
