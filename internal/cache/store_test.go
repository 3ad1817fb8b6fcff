package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), opts, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t, DefaultOptions())

	data := []byte("raw audio bytes")
	if err := s.Put("fp-1", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("fp-1")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestStoreMiss(t *testing.T) {
	s := openTestStore(t, DefaultOptions())

	if _, ok := s.Get("never-stored"); ok {
		t.Error("Get hit for a key never stored")
	}
	if st := s.Stats(); st.Misses != 1 {
		t.Errorf("misses = %d, want 1", st.Misses)
	}
}

func TestStorePutIsIdempotentOverwrite(t *testing.T) {
	s := openTestStore(t, DefaultOptions())

	if err := s.Put("fp-1", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("fp-1", []byte("second")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	if got, _ := s.Get("fp-1"); !bytes.Equal(got, []byte("second")) {
		t.Errorf("Get = %q, want %q", got, "second")
	}
	if n := s.Len(); n != 1 {
		t.Errorf("Len = %d, want 1 (overwrite must not duplicate)", n)
	}
}

func TestStoreCompressionRoundTrip(t *testing.T) {
	s := openTestStore(t, DefaultOptions())

	// Highly compressible and over the threshold.
	data := bytes.Repeat([]byte("silence "), 4096)
	if err := s.Put("fp-big", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if s.SizeBytes() >= int64(len(data)) {
		t.Errorf("on-disk size %d not smaller than input %d", s.SizeBytes(), len(data))
	}
	got, ok := s.Get("fp-big")
	if !ok || !bytes.Equal(got, data) {
		t.Error("compressed entry did not round-trip")
	}
}

func TestStoreSizeBudgetHeld(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBytes = 4096
	opts.CompressionLevel = 0
	s := openTestStore(t, opts)

	// Incompressible-ish distinct payloads, interleaved with eviction
	// (eviction runs inside every Put).
	for i := 0; i < 40; i++ {
		data := make([]byte, 512)
		for j := range data {
			data[j] = byte(i*31 + j)
		}
		if err := s.Put(fmt.Sprintf("fp-%d", i), data); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		if s.SizeBytes() > opts.MaxBytes {
			t.Fatalf("size %d exceeds budget %d after put %d", s.SizeBytes(), opts.MaxBytes, i)
		}
	}
}

func TestStoreEvictsLeastRecentlyAccessed(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBytes = 1600
	opts.CompressionLevel = 0
	s := openTestStore(t, opts)
	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	payload := func(i int) []byte {
		data := make([]byte, 512)
		for j := range data {
			data[j] = byte(i ^ j)
		}
		return data
	}

	s.Put("fp-0", payload(0))
	s.Put("fp-1", payload(1))
	s.Put("fp-2", payload(2))

	// Touch fp-0 so fp-1 becomes the eviction candidate.
	s.Get("fp-0")

	s.Put("fp-3", payload(3))

	if _, ok := s.Get("fp-1"); ok {
		t.Error("least recently accessed entry survived eviction")
	}
	if _, ok := s.Get("fp-0"); !ok {
		t.Error("recently accessed entry was evicted")
	}
}

func TestStoreAgeEviction(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAge = time.Hour
	s := openTestStore(t, opts)

	old := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return old }
	s.Put("fp-old", []byte("stale"))

	s.now = time.Now
	s.Put("fp-new", []byte("fresh"))

	if _, ok := s.Get("fp-old"); ok {
		t.Error("entry older than max age survived")
	}
	if _, ok := s.Get("fp-new"); !ok {
		t.Error("fresh entry evicted")
	}
}

func TestStorePurgeRecent(t *testing.T) {
	s := openTestStore(t, DefaultOptions())
	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 5; i++ {
		s.Put(fmt.Sprintf("fp-%d", i), []byte{byte(i)})
	}

	if n := s.PurgeRecent(2); n != 2 {
		t.Fatalf("PurgeRecent = %d, want 2", n)
	}

	// The two most recently written are gone, the earlier three survive.
	for _, key := range []string{"fp-3", "fp-4"} {
		if _, ok := s.Get(key); ok {
			t.Errorf("%s survived PurgeRecent", key)
		}
	}
	for _, key := range []string{"fp-0", "fp-1", "fp-2"} {
		if _, ok := s.Get(key); !ok {
			t.Errorf("%s purged but was not recent", key)
		}
	}
}

func TestStorePurgeRecentMoreThanCount(t *testing.T) {
	s := openTestStore(t, DefaultOptions())
	s.Put("fp-0", []byte("a"))
	s.Put("fp-1", []byte("b"))

	if n := s.PurgeRecent(10); n != 2 {
		t.Errorf("PurgeRecent = %d, want 2", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, DefaultOptions(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Put("fp-1", []byte("persisted"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(dir, DefaultOptions(), testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, ok := s2.Get("fp-1")
	if !ok || !bytes.Equal(got, []byte("persisted")) {
		t.Error("entry did not survive reopen")
	}
}

func TestStoreCompressedEntriesSurviveLevelChange(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, DefaultOptions(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := bytes.Repeat([]byte("a"), 32*1024)
	if err := s.Put("fp-1", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Compression disabled for new writes; entries written compressed
	// must still come back decompressed, not as raw zstd frames.
	opts := DefaultOptions()
	opts.CompressionLevel = 0
	s2, err := Open(dir, opts, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, ok := s2.Get("fp-1")
	if !ok {
		t.Fatal("Get missed after reopen")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get after reopen returned %d bytes, want the original %d", len(got), len(data))
	}
}

func TestStoreUnlimitedSizeAcceptsPuts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBytes = 0
	s := openTestStore(t, opts)

	data := bytes.Repeat([]byte("pcm "), 2048)
	if err := s.Put("fp-1", data); err != nil {
		t.Fatalf("Put with no size limit: %v", err)
	}
	got, ok := s.Get("fp-1")
	if !ok || !bytes.Equal(got, data) {
		t.Error("entry did not round-trip with no size limit")
	}
}

func TestStoreSelfHealsCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte("not gob at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir, DefaultOptions(), testLogger())
	if err != nil {
		t.Fatalf("Open with corrupt index: %v", err)
	}
	defer s.Close()

	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 after reinitialization", s.Len())
	}
	// The store is fully usable after healing.
	if err := s.Put("fp-1", []byte("works")); err != nil {
		t.Errorf("Put after heal: %v", err)
	}
}

func TestStoreCorruptEntryIsAMiss(t *testing.T) {
	s := openTestStore(t, DefaultOptions())

	data := bytes.Repeat([]byte("speech "), 1024)
	s.Put("fp-1", data)

	// Truncate the entry file behind the store's back.
	entry := s.index["fp-1"]
	if err := os.WriteFile(entry.File, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get("fp-1"); ok {
		t.Error("corrupt entry served as a hit")
	}
	if s.Len() != 0 {
		t.Error("corrupt entry not dropped from index")
	}
}

func TestStoreClosed(t *testing.T) {
	s := openTestStore(t, DefaultOptions())
	s.Close()

	if err := s.Put("fp", []byte("x")); err != ErrStoreClosed {
		t.Errorf("Put after close = %v, want ErrStoreClosed", err)
	}
	if _, ok := s.Get("fp"); ok {
		t.Error("Get hit after close")
	}
}
