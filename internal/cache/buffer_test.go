package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/localreader/speech/internal/audio"
)

func testAudio(seed byte) *audio.Audio {
	return &audio.Audio{
		PCM:        []byte{seed, seed, seed, seed},
		SampleRate: 22050,
		Duration:   time.Millisecond,
	}
}

func TestBufferRoundTrip(t *testing.T) {
	b := NewBuffer(10)
	a := testAudio(1)

	b.Put("fp-1", a)

	got, ok := b.Get("fp-1")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if got != a {
		t.Error("Get returned a different value")
	}
}

func TestBufferEvictsOldestInsertion(t *testing.T) {
	b := NewBuffer(10)

	for i := 0; i < 11; i++ {
		b.Put(fmt.Sprintf("fp-%d", i), testAudio(byte(i)))
	}

	if b.Len() != 10 {
		t.Fatalf("Len = %d, want 10", b.Len())
	}
	if _, ok := b.Get("fp-0"); ok {
		t.Error("oldest entry survived overflow")
	}
	for i := 1; i <= 10; i++ {
		if _, ok := b.Get(fmt.Sprintf("fp-%d", i)); !ok {
			t.Errorf("fp-%d missing, want all 10 newest retained", i)
		}
	}
}

func TestBufferEvictionIgnoresAccess(t *testing.T) {
	b := NewBuffer(3)

	b.Put("fp-0", testAudio(0))
	b.Put("fp-1", testAudio(1))
	b.Put("fp-2", testAudio(2))

	// A read must not protect fp-0: eviction is by insertion order.
	b.Get("fp-0")
	b.Put("fp-3", testAudio(3))

	if _, ok := b.Get("fp-0"); ok {
		t.Error("fp-0 survived, eviction order was changed by a read")
	}
	if _, ok := b.Get("fp-1"); !ok {
		t.Error("fp-1 evicted out of order")
	}
}

func TestBufferReinsertKeepsPosition(t *testing.T) {
	b := NewBuffer(3)

	b.Put("fp-0", testAudio(0))
	b.Put("fp-1", testAudio(1))
	b.Put("fp-0", testAudio(9)) // same key, updated value
	b.Put("fp-2", testAudio(2))
	b.Put("fp-3", testAudio(3))

	// fp-0 is still the oldest insertion, so it goes first.
	if _, ok := b.Get("fp-0"); ok {
		t.Error("re-inserted key jumped the eviction queue")
	}
	if got, ok := b.Get("fp-1"); !ok || got.PCM[0] != 1 {
		t.Error("fp-1 lost")
	}
}

func TestBufferClear(t *testing.T) {
	b := NewBuffer(10)
	b.Put("fp-0", testAudio(0))
	b.Put("fp-1", testAudio(1))

	b.Clear()

	if b.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", b.Len())
	}
	if _, ok := b.Get("fp-0"); ok {
		t.Error("entry survived Clear")
	}

	// Clearing must not break subsequent use.
	b.Put("fp-2", testAudio(2))
	if _, ok := b.Get("fp-2"); !ok {
		t.Error("Put after Clear missed")
	}
}

func TestBufferContains(t *testing.T) {
	b := NewBuffer(10)
	b.Put("fp-0", testAudio(0))

	if !b.Contains("fp-0") {
		t.Error("Contains = false for stored key")
	}
	if b.Contains("fp-1") {
		t.Error("Contains = true for missing key")
	}
}
