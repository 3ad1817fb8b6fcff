package audio

import (
	"sync"
	"time"
)

// MockPlayer simulates playback on a timer. TimeScale shrinks playback
// duration so tests stay fast: a scale of 100 plays one second of audio in
// ten milliseconds.
type MockPlayer struct {
	mu     sync.Mutex
	closed bool

	// TimeScale divides playback duration. Zero means real time.
	TimeScale int

	started []time.Duration
}

// NewMockPlayer returns a mock player running at 100x speed.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{TimeScale: 100}
}

// Start implements Player.
func (p *MockPlayer) Start(a *Audio) (Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPlayerClosed
	}
	if a == nil || len(a.PCM) == 0 {
		return nil, ErrEmptyAudio
	}
	p.started = append(p.started, a.Duration)

	d := a.Duration
	if p.TimeScale > 0 {
		d /= time.Duration(p.TimeScale)
	}

	mp := &mockPlayback{done: make(chan struct{})}
	mp.timer = time.AfterFunc(d, func() { mp.finish() })
	return mp, nil
}

// Close implements Player.
func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// StartedCount reports how many streams were started.
func (p *MockPlayer) StartedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started)
}

type mockPlayback struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

func (m *mockPlayback) Done() <-chan struct{} { return m.done }

func (m *mockPlayback) Stop() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.finish()
}

func (m *mockPlayback) finish() {
	m.once.Do(func() { close(m.done) })
}
