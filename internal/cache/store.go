package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "cache.index"
	// Entries below this size are stored uncompressed; zstd overhead
	// isn't worth it for tiny clips.
	compressThreshold = 1024
)

// Store is the durable audio cache: content-addressed files under a
// directory plus a gob index. Writes are atomic (temp file + rename), so
// concurrent callers never observe partial entries. Eviction runs
// opportunistically around every Put and once at Open.
type Store struct {
	dir      string
	opts     Options
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	logger   *log.Logger
	now      func() time.Time

	mu     sync.Mutex
	index  map[string]*storeEntry
	size   int64
	closed bool
	stats  Stats
}

type storeEntry struct {
	Key        string
	File       string
	Size       int64 // size on disk, compressed
	CreatedAt  time.Time
	AccessedAt time.Time
	Compressed bool
}

// Open opens (or creates) a store at dir. A corrupt or unreadable index
// reinitializes the store to an empty valid state instead of failing:
// losing cached audio is always recoverable, failing startup is not.
func Open(dir string, opts Options, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Store{
		dir:    dir,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		index:  make(map[string]*storeEntry),
	}

	if opts.CompressionLevel > 0 {
		var err error
		s.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.CompressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	// The decoder exists regardless of the write level: entries written
	// compressed under an earlier configuration must still be readable.
	var err error
	s.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if err := s.loadIndex(); err != nil {
		logger.Warn("cache index unreadable, reinitializing", "dir", dir, "error", err)
		s.reset()
	}
	s.recalculateSize()
	s.evictLocked()

	return s, nil
}

// Get returns the raw audio for a fingerprint and refreshes its
// last-accessed time. A missing or corrupt entry is a miss, never an
// error.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}

	entry, ok := s.index[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.File)
	if err != nil {
		s.dropLocked(entry)
		s.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		decompressed, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			s.logger.Debug("corrupt cache entry dropped", "key", key, "error", err)
			s.dropLocked(entry)
			s.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.AccessedAt = s.now()
	s.stats.Hits++
	return data, true
}

// Put stores audio under a fingerprint. Inserting an existing fingerprint
// overwrites it and refreshes its timestamps; the store never holds
// duplicates. Eviction runs after the write.
func (s *Store) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	toWrite := data
	compressed := false
	if s.encoder != nil && len(data) > compressThreshold {
		if c := s.encoder.EncodeAll(data, nil); len(c) < len(data) {
			toWrite = c
			compressed = true
		}
	}

	// MaxBytes of zero means no size limit, matching eviction.
	if s.opts.MaxBytes > 0 && int64(len(toWrite)) > s.opts.MaxBytes {
		return ErrItemTooLarge
	}

	if existing, ok := s.index[key]; ok {
		s.dropLocked(existing)
	}

	file := filepath.Join(s.dir, fileNameFor(key))
	if err := writeAtomic(file, toWrite); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	now := s.now()
	entry := &storeEntry{
		Key:        key,
		File:       file,
		Size:       int64(len(toWrite)),
		CreatedAt:  now,
		AccessedAt: now,
		Compressed: compressed,
	}
	s.index[key] = entry
	s.size += entry.Size

	s.evictLocked()
	if err := s.saveIndexLocked(); err != nil {
		s.logger.Warn("cache index save failed", "error", err)
	}
	return nil
}

// PurgeRecent drops the n most recently written entries. Used when the
// active voice changes: freshly cached audio for the old voice must not be
// served for the same text under the new one.
func (s *Store) PurgeRecent(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || n <= 0 {
		return 0
	}

	entries := s.entriesLocked()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		s.dropLocked(e)
	}
	if err := s.saveIndexLocked(); err != nil {
		s.logger.Warn("cache index save failed", "error", err)
	}
	return n
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// SizeBytes returns the on-disk size of all entries.
func (s *Store) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Size = s.size
	st.ItemCount = int64(len(s.index))
	return st
}

// Close persists the index and releases the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.saveIndexLocked()
}

// evictLocked applies the two eviction passes: age first, independent of
// size, then oldest-accessed entries until the size budget holds.
func (s *Store) evictLocked() {
	if s.opts.MaxAge > 0 {
		cutoff := s.now().Add(-s.opts.MaxAge)
		for _, e := range s.entriesLocked() {
			if e.CreatedAt.Before(cutoff) {
				s.dropLocked(e)
				s.stats.Evictions++
			}
		}
	}

	if s.opts.MaxBytes <= 0 || s.size <= s.opts.MaxBytes {
		return
	}

	entries := s.entriesLocked()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessedAt.Before(entries[j].AccessedAt)
	})

	before := s.size
	evicted := 0
	for _, e := range entries {
		if s.size <= s.opts.MaxBytes {
			break
		}
		s.dropLocked(e)
		s.stats.Evictions++
		evicted++
	}
	s.logger.Debug("cache size eviction",
		"evicted", evicted,
		"freed", humanize.Bytes(uint64(before-s.size)),
		"size", humanize.Bytes(uint64(s.size)))
}

func (s *Store) dropLocked(e *storeEntry) {
	os.Remove(e.File)
	delete(s.index, e.Key)
	s.size -= e.Size
	if s.size < 0 {
		s.size = 0
	}
}

func (s *Store) entriesLocked() []*storeEntry {
	entries := make([]*storeEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	return entries
}

// reset wipes the store back to an empty valid state, removing any data
// files the lost index referred to.
func (s *Store) reset() {
	s.index = make(map[string]*storeEntry)
	s.size = 0
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.audio"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
	os.Remove(filepath.Join(s.dir, indexFile))
}

func (s *Store) loadIndex() error {
	f, err := os.Open(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	index := make(map[string]*storeEntry)
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return err
	}
	s.index = index
	return nil
}

func (s *Store) saveIndexLocked() error {
	path := filepath.Join(s.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(s.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) recalculateSize() {
	s.size = 0
	for key, e := range s.index {
		info, err := os.Stat(e.File)
		if err != nil {
			delete(s.index, key)
			continue
		}
		e.Size = info.Size()
		s.size += e.Size
	}
}

func fileNameFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".audio"
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
