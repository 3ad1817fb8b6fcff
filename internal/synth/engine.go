// Package synth defines the boundary to the acoustic engine and the
// fingerprinting that makes synthesized audio content-addressable.
package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/localreader/speech/internal/segment"
)

// ErrEngineClosed is returned after an engine has been shut down.
var ErrEngineClosed = errors.New("synthesis engine is closed")

// Request describes one synthesis call. Text is final: all pronunciation
// and ignore-list transforms have already been applied by the document
// layer.
type Request struct {
	Text   string
	Voice  string
	Speed  float64
	Pauses segment.PauseConfig
}

// Engine is the opaque acoustic boundary. Implementations return 16-bit
// little-endian mono PCM at SampleRate(); the pipeline treats synthesis as
// a black box with a latency cost.
type Engine interface {
	// Synthesize converts text to raw audio. It must honor ctx
	// cancellation so an abandoned request never blocks a jump or stop.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// SampleRate reports the engine's output sample rate in Hz.
	SampleRate() int

	// Voices lists the voices the engine can speak with.
	Voices() []Voice

	// Close releases engine resources.
	Close() error
}

// SynthesisError is a failed synthesis call with enough context to report
// to the user. It stops foreground playback when surfaced.
type SynthesisError struct {
	Voice string
	Text  string
	Err   error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	text := e.Text
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return fmt.Sprintf("synthesis failed (voice %s, text %q): %v", e.Voice, text, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}
