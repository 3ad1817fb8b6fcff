package cache

import (
	"sync"

	"github.com/localreader/speech/internal/audio"
)

// DefaultBufferBound is the stock buffer cache capacity.
const DefaultBufferBound = 10

// Buffer is the in-memory cache of decoded, ready-to-play audio. It is
// bounded by entry count with strict insertion-order eviction: the oldest
// inserted entry goes first, regardless of how recently it was read. The
// playback session owns it; the prefetch scheduler only ever inserts.
type Buffer struct {
	mu    sync.Mutex
	bound int
	order []string // insertion order, oldest first
	items map[string]*audio.Audio
	stats Stats
}

// NewBuffer returns a buffer cache holding at most bound entries.
func NewBuffer(bound int) *Buffer {
	if bound < 1 {
		bound = DefaultBufferBound
	}
	return &Buffer{
		bound: bound,
		items: make(map[string]*audio.Audio, bound),
	}
}

// Get returns the decoded audio for a fingerprint. Reads do not affect
// eviction order.
func (b *Buffer) Get(key string) (*audio.Audio, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.items[key]
	if ok {
		b.stats.Hits++
	} else {
		b.stats.Misses++
	}
	return a, ok
}

// Contains reports presence without touching the hit counters.
func (b *Buffer) Contains(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[key]
	return ok
}

// Put inserts decoded audio, evicting the oldest inserted entry when the
// bound is exceeded. Re-inserting an existing key refreshes its value but
// keeps its original position in the eviction order.
func (b *Buffer) Put(key string, a *audio.Audio) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.items[key]; ok {
		b.items[key] = a
		return
	}

	b.items[key] = a
	b.order = append(b.order, key)
	for len(b.order) > b.bound {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.items, oldest)
		b.stats.Evictions++
	}
}

// Clear drops every entry. Called on voice or speed change: decoded audio
// under the old parameters is never valid under the new ones.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = nil
	b.items = make(map[string]*audio.Audio, b.bound)
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Stats returns a snapshot of the counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stats
	st.ItemCount = int64(len(b.items))
	st.Size = st.ItemCount
	return st
}
