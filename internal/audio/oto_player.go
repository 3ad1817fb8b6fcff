package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays PCM through the system audio device using oto. The oto
// context is created once and shared by every stream; creating more than
// one context per process is not supported by the backend.
type OtoPlayer struct {
	ctx        *oto.Context
	sampleRate int

	mu     sync.Mutex
	closed bool
}

// NewOtoPlayer opens the audio device at the given sample rate.
func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	return &OtoPlayer{ctx: ctx, sampleRate: sampleRate}, nil
}

// Start implements Player.
func (p *OtoPlayer) Start(a *Audio) (Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPlayerClosed
	}
	if a == nil || len(a.PCM) == 0 {
		return nil, ErrEmptyAudio
	}

	// The reader must stay alive for the whole stream or the device
	// plays static from freed memory.
	stream := &otoPlayback{
		data: a.PCM,
		done: make(chan struct{}),
	}
	stream.player = p.ctx.NewPlayer(bytes.NewReader(stream.data))
	stream.player.Play()

	go stream.watch(a.Duration)
	return stream, nil
}

// Close implements Player. The oto context itself has no Close; marking
// the player closed just refuses new streams.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type otoPlayback struct {
	player *oto.Player
	data   []byte

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	once    sync.Once
}

func (s *otoPlayback) Done() <-chan struct{} { return s.done }

func (s *otoPlayback) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.player.Close()
	s.finish()
}

// watch polls the device until the stream drains. Polling is how the
// backend exposes completion; the expected duration bounds the wait so a
// wedged device cannot leak the goroutine forever.
func (s *otoPlayback) watch(expected time.Duration) {
	deadline := time.Now().Add(expected + 2*time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		if !s.player.IsPlaying() || time.Now().After(deadline) {
			s.player.Close()
			s.finish()
			return
		}
	}
}

func (s *otoPlayback) finish() {
	s.once.Do(func() { close(s.done) })
}
