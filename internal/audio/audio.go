// Package audio holds the decoded audio model and playback backends.
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// BitDepth is the sample depth the pipeline works in.
	BitDepth = 16
	// Channels is mono; speech synthesis output is single-channel.
	Channels = 1
)

var (
	// ErrEmptyAudio is returned when there are no samples to play.
	ErrEmptyAudio = errors.New("empty audio data")
	// ErrPlayerClosed is returned after the player has been closed.
	ErrPlayerClosed = errors.New("audio player is closed")
)

// Audio is decoded, ready-to-play PCM. This is what the buffer cache
// stores: replaying a cached *Audio costs nothing.
type Audio struct {
	PCM        []byte // 16-bit little-endian mono samples
	SampleRate int
	Duration   time.Duration
}

// Decode validates raw engine output and wraps it as playable audio.
// "Decoding" here is alignment validation plus duration computation; the
// engine boundary already speaks PCM.
func Decode(raw []byte, sampleRate int) (*Audio, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}
	bytesPerSample := BitDepth / 8 * Channels
	if len(raw)%bytesPerSample != 0 {
		return nil, fmt.Errorf("PCM length %d not aligned to %d-byte samples", len(raw), bytesPerSample)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	samples := len(raw) / bytesPerSample
	return &Audio{
		PCM:        raw,
		SampleRate: sampleRate,
		Duration:   time.Duration(samples) * time.Second / time.Duration(sampleRate),
	}, nil
}

// Silence returns playable silence of the given duration.
func Silence(d time.Duration, sampleRate int) *Audio {
	samples := int(d.Seconds() * float64(sampleRate))
	if samples < 1 {
		samples = 1
	}
	return &Audio{
		PCM:        make([]byte, samples*2),
		SampleRate: sampleRate,
		Duration:   d,
	}
}

// Player starts playback of decoded audio. Exactly one Playback should be
// live at a time; the caller owns that invariant.
type Player interface {
	// Start begins playing and returns a handle for the stream.
	Start(a *Audio) (Playback, error)

	// Close releases the output device.
	Close() error
}

// Playback is one in-flight audio stream. Done is closed when the stream
// ends, whether it ran to completion or was stopped; callers that need to
// tell the difference track it themselves (the playback controller uses a
// generation token for exactly that).
type Playback interface {
	// Done is closed when the stream is finished or stopped.
	Done() <-chan struct{}

	// Stop halts the stream immediately. Safe to call more than once,
	// and safe to call after natural completion.
	Stop()
}
