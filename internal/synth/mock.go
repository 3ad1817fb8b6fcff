package synth

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"time"
	"unicode"
)

// MockEngine is a deterministic in-process engine used in tests and as the
// default when no real engine is configured. Output bytes are a pure
// function of the request, so fingerprint identity holds: identical
// requests produce identical audio.
type MockEngine struct {
	mu     sync.Mutex
	closed bool

	// Delay simulates synthesis latency. Zero for tests that don't care.
	Delay time.Duration

	// FailWith, when set, makes every call fail. Lets tests exercise the
	// error paths.
	FailWith error

	sampleRate int
	calls      int
}

// NewMockEngine returns a mock engine at 22.05kHz with no latency.
func NewMockEngine() *MockEngine {
	return &MockEngine{sampleRate: 22050}
}

// Synthesize produces deterministic pseudo-audio sized to a 150wpm read of
// the text. Text with nothing speakable yields 100ms of silence, matching
// how the real engine degrades instead of erroring.
func (e *MockEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.calls++
	delay := e.Delay
	failWith := e.FailWith
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failWith != nil {
		return nil, &SynthesisError{Voice: req.Voice, Text: req.Text, Err: failWith}
	}

	if !speakable(req.Text) {
		return e.silence(100 * time.Millisecond), nil
	}

	words := len(strings.Fields(req.Text))
	if words == 0 {
		words = 1
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	seconds := float64(words) * 60.0 / (150.0 * speed)
	samples := int(seconds * float64(e.sampleRate))
	if samples < 1 {
		samples = 1
	}

	// Fill with a repeating digest of the request so distinct requests
	// yield distinct, reproducible bytes.
	seed := sha256.Sum256([]byte(req.Text + "\x00" + req.Voice))
	data := make([]byte, samples*2)
	for i := range data {
		data[i] = seed[i%len(seed)]
	}
	return data, nil
}

// SampleRate implements Engine.
func (e *MockEngine) SampleRate() int { return e.sampleRate }

// Voices implements Engine.
func (e *MockEngine) Voices() []Voice {
	return []Voice{
		{ID: "af_bella", Name: "Bella", Language: "en-US"},
		{ID: "af_sky", Name: "Sky", Language: "en-US"},
		{ID: "bm_george", Name: "George", Language: "en-GB"},
	}
}

// Close implements Engine.
func (e *MockEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Calls reports how many synthesis calls were made. Tests use this to
// assert the at-most-one-synthesis invariant.
func (e *MockEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *MockEngine) silence(d time.Duration) []byte {
	samples := int(d.Seconds() * float64(e.sampleRate))
	return make([]byte, samples*2)
}

func speakable(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
