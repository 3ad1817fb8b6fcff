// Package player contains the playback controller and the prefetch
// scheduler: the state machine that turns segmented, pause-classified
// units into continuous audio.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/localreader/speech/internal/audio"
	"github.com/localreader/speech/internal/cache"
	"github.com/localreader/speech/internal/document"
	"github.com/localreader/speech/internal/segment"
	"github.com/localreader/speech/internal/synth"
)

// State is the controller's playback state.
type State int

const (
	// StateIdle means no playback session is active.
	StateIdle State = iota
	// StatePlaying means a unit is being fetched or played.
	StatePlaying
	// StatePaused means playback is suspended at the current unit.
	StatePaused
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Config holds the controller's tunables.
type Config struct {
	Voice string
	Speed float64

	// Pauses is the pause table units are classified against. It is
	// part of every fingerprint, so changing it mid-session would
	// silently invalidate the caches; the controller treats it as
	// fixed for its lifetime.
	Pauses segment.PauseConfig

	// PrefetchAhead is how many upcoming units the scheduler keeps
	// warm in the buffer cache.
	PrefetchAhead int

	// PurgeOnVoiceChange is how many recent durable entries to drop
	// when the voice changes.
	PurgeOnVoiceChange int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Voice:              "af_bella",
		Speed:              1.0,
		Pauses:             segment.DefaultPauseConfig(),
		PrefetchAhead:      2,
		PurgeOnVoiceChange: 20,
	}
}

// Controller drives playback: it owns the session position, the single
// active audio handle, and the pause-then-advance timing. All mutation
// happens under one mutex; asynchronous completions carry a generation
// token and become no-ops when the session has moved on.
type Controller struct {
	provider  document.Provider
	engine    synth.Engine
	store     *cache.Store
	buffer    *cache.Buffer
	player    audio.Player
	segmenter *segment.Segmenter
	pauses    *segment.PauseClassifier
	logger    *log.Logger

	mu        sync.Mutex
	cfg       Config
	state     State
	docID     string
	pageIndex int
	units     []segment.Unit
	unitIndex int

	// generation invalidates in-flight work: every fetch, handle
	// watcher, and pause timer carries the generation it was created
	// under, and anything observing a mismatch discards itself.
	// Jump, pause, stop, and parameter changes bump it under mu
	// before the old handle is released.
	generation  uint64
	handle      audio.Playback
	pauseTimer  *time.Timer
	cancelFetch context.CancelFunc
	// inflight tracks fingerprints a prefetch is currently fetching.
	// Each maps to a channel closed when the fetch settles, so the
	// foreground path can join the work instead of repeating it.
	inflight map[synth.Fingerprint]chan struct{}
	closed   bool

	// Callbacks are invoked with the controller lock held and must
	// not call back into the controller.
	onStateChange func(State)
	onUnitChange  func(pageIndex, unitIndex int)
	onError       func(error)
}

// NewController wires the pipeline together. The store, buffer, engine,
// and player are owned by the caller; Close only tears down the session.
func NewController(provider document.Provider, engine synth.Engine, store *cache.Store, buffer *cache.Buffer, player audio.Player, cfg Config, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		provider:  provider,
		engine:    engine,
		store:     store,
		buffer:    buffer,
		player:    player,
		segmenter: segment.NewSegmenter(),
		pauses:    segment.NewPauseClassifier(cfg.Pauses, segment.NewPatternClassifier()),
		logger:    logger,
		cfg:       cfg,
		inflight:  make(map[synth.Fingerprint]chan struct{}),
	}
}

// Load points the session at a document position without starting
// playback. Any active playback stops.
func (c *Controller) Load(docID string, pageIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if docID == "" {
		return ErrNoDocument
	}

	c.invalidateLocked()
	c.docID = docID
	c.pageIndex = pageIndex
	c.unitIndex = 0
	c.units = nil
	c.setStateLocked(StateIdle)
	return nil
}

// Play starts playback at the current position, or resumes after Pause.
// Playing while already playing is a no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if c.docID == "" {
		return ErrNoDocument
	}
	if c.state == StatePlaying {
		return nil
	}

	c.invalidateLocked()
	c.setStateLocked(StatePlaying)
	return c.beginUnitLocked()
}

// Pause suspends playback, keeping the current unit so Play resumes it.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if c.state != StatePlaying {
		return fmt.Errorf("cannot pause in state %s", c.state)
	}

	c.invalidateLocked()
	c.setStateLocked(StatePaused)
	return nil
}

// Stop ends the session: audio halts, the position rewinds to the start
// of the current page, state becomes Idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}

	c.invalidateLocked()
	c.unitIndex = 0
	c.setStateLocked(StateIdle)
	return nil
}

// Jump moves playback to an arbitrary unit and starts playing it. The
// previous handle is invalidated before the position changes, so a late
// completion from the abandoned unit can never advance past the target.
func (c *Controller) Jump(pageIndex, unitIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if c.docID == "" {
		return ErrNoDocument
	}

	c.invalidateLocked()

	units := c.units
	if pageIndex != c.pageIndex || units == nil {
		loaded, ok := c.loadPageLocked(pageIndex)
		if !ok {
			return ErrNoSuchUnit
		}
		units = loaded
	}
	if unitIndex < 0 || unitIndex >= len(units) {
		return ErrNoSuchUnit
	}

	c.pageIndex = pageIndex
	c.units = units
	c.unitIndex = unitIndex
	c.setStateLocked(StatePlaying)
	return c.beginUnitLocked()
}

// NextUnit jumps to the unit after the current one, crossing into the
// next page when the current page is exhausted.
func (c *Controller) NextUnit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if c.docID == "" {
		return ErrNoDocument
	}

	c.invalidateLocked()
	c.unitIndex++
	c.setStateLocked(StatePlaying)
	return c.beginUnitLocked()
}

// PreviousUnit jumps to the unit before the current one, stopping at the
// start of the page.
func (c *Controller) PreviousUnit() error {
	c.mu.Lock()
	pageIndex, unitIndex := c.pageIndex, c.unitIndex
	c.mu.Unlock()
	if unitIndex <= 0 {
		return c.Jump(pageIndex, 0)
	}
	return c.Jump(pageIndex, unitIndex-1)
}

// SetVoice switches the active voice. Playback stops, the buffer cache
// is cleared, and recent durable entries are purged so audio for the old
// voice is never served for the same text under the new one.
func (c *Controller) SetVoice(voice string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	if voices := c.engine.Voices(); len(voices) > 0 {
		known := false
		for _, v := range voices {
			if v.ID == voice {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown voice %q", voice)
		}
	}
	if voice == c.cfg.Voice {
		return nil
	}

	c.invalidateLocked()
	c.buffer.Clear()
	if n := c.store.PurgeRecent(c.cfg.PurgeOnVoiceChange); n > 0 {
		c.logger.Debug("purged recent cache entries for voice change", "count", n)
	}
	c.cfg.Voice = voice
	c.setStateLocked(StateIdle)
	return nil
}

// SetSpeed changes the playback speed. Playback stops and the buffer
// cache is cleared; durable entries for other speeds stay, they simply
// stop matching any fingerprint.
func (c *Controller) SetSpeed(speed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if speed < 0.5 || speed > 3.0 {
		return fmt.Errorf("speed must be between 0.5 and 3.0, got %g", speed)
	}
	if speed == c.cfg.Speed {
		return nil
	}

	c.invalidateLocked()
	c.buffer.Clear()
	c.cfg.Speed = speed
	c.setStateLocked(StateIdle)
	return nil
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the current page and unit index.
func (c *Controller) Position() (pageIndex, unitIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageIndex, c.unitIndex
}

// Voice returns the active voice.
func (c *Controller) Voice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Voice
}

// Speed returns the active speed.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Speed
}

// CacheStats returns snapshots of both cache tiers.
func (c *Controller) CacheStats() (buffer, store cache.Stats) {
	return c.buffer.Stats(), c.store.Stats()
}

// OnStateChange registers a callback for state transitions.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// OnUnitChange registers a callback fired when a unit starts playing.
func (c *Controller) OnUnitChange(fn func(pageIndex, unitIndex int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnitChange = fn
}

// OnError registers a callback for surfaced playback errors.
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Close tears down the session. The engine, caches, and player belong to
// the caller and stay open.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.invalidateLocked()
	c.setStateLocked(StateIdle)
	c.closed = true
	return nil
}

// invalidateLocked bumps the generation and releases the active handle,
// pause timer, and in-flight foreground fetch. After it returns, every
// callback created before the call is provably inert.
func (c *Controller) invalidateLocked() {
	c.generation++
	if c.pauseTimer != nil {
		c.pauseTimer.Stop()
		c.pauseTimer = nil
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.onStateChange != nil {
		c.onStateChange(s)
	}
}

// loadPageLocked segments a page and classifies its pauses. ok is false
// when the page does not exist.
func (c *Controller) loadPageLocked(pageIndex int) ([]segment.Unit, bool) {
	text, ok := c.provider.PageText(c.docID, pageIndex)
	if !ok {
		return nil, false
	}
	units := c.segmenter.Segment(pageIndex, text)
	c.pauses.Apply(units)
	return units, true
}

// beginUnitLocked starts fetching audio for the current position,
// advancing over empty pages first. A page with no speakable units is
// "nothing to read here", not an error.
func (c *Controller) beginUnitLocked() error {
	for {
		if c.units == nil {
			units, ok := c.loadPageLocked(c.pageIndex)
			if !ok {
				c.logger.Debug("document finished", "doc", c.docID, "page", c.pageIndex)
				c.setStateLocked(StateIdle)
				return ErrNothingToRead
			}
			c.units = units
		}
		if c.unitIndex < len(c.units) {
			break
		}
		c.pageIndex++
		c.unitIndex = 0
		c.units = nil
	}

	unit := c.units[c.unitIndex]
	req, fp := c.requestLocked(unit)
	gen := c.generation

	// Release the previous unit's fetch context; on the natural-advance
	// path nothing has cancelled it yet.
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFetch = cancel

	if c.onUnitChange != nil {
		c.onUnitChange(unit.PageIndex, unit.Index)
	}

	go c.fetchAndStart(ctx, gen, req, fp, unit.Pause)
	return nil
}

// requestLocked builds the synthesis request and fingerprint for a unit
// under the session's current voice, speed, and pause table.
func (c *Controller) requestLocked(u segment.Unit) (synth.Request, synth.Fingerprint) {
	req := synth.Request{
		Text:   segment.SpeakableText(u),
		Voice:  c.cfg.Voice,
		Speed:  c.cfg.Speed,
		Pauses: c.cfg.Pauses,
	}
	return req, synth.FingerprintFor(req)
}

// fetchAndStart acquires audio for a unit and starts the handle. It runs
// off the lock for the whole acquisition; by the time it re-acquires, the
// session may have moved on, in which case the result is discarded.
func (c *Controller) fetchAndStart(ctx context.Context, gen uint64, req synth.Request, fp synth.Fingerprint, pause time.Duration) {
	a, err := c.acquire(ctx, req, fp)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state != StatePlaying {
		return
	}

	if err != nil {
		c.surfaceErrorLocked(fmt.Errorf("fetch unit audio: %w", err))
		return
	}

	handle, err := c.player.Start(a)
	if err != nil {
		c.surfaceErrorLocked(fmt.Errorf("start playback: %w", err))
		return
	}
	c.handle = handle
	go c.watch(gen, handle, pause)
}

// acquire walks the tiers: buffer cache, durable cache, engine. Results
// flow back into both caches so the next request is a buffer hit. A
// fingerprint already being prefetched is joined, never fetched twice.
func (c *Controller) acquire(ctx context.Context, req synth.Request, fp synth.Fingerprint) (*audio.Audio, error) {
	key := string(fp)

	for {
		if a, ok := c.buffer.Get(key); ok {
			return a, nil
		}
		c.mu.Lock()
		done, busy := c.inflight[fp]
		c.mu.Unlock()
		if !busy {
			break
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if a, ok := c.buffer.Get(key); ok {
		return a, nil
	}

	if raw, ok := c.store.Get(key); ok {
		a, err := audio.Decode(raw, c.engine.SampleRate())
		if err == nil {
			c.buffer.Put(key, a)
			return a, nil
		}
		c.logger.Warn("cached audio undecodable, resynthesizing", "key", key, "error", err)
	}

	raw, err := c.engine.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(key, raw); err != nil {
		c.logger.Warn("durable cache write failed", "key", key, "error", err)
	}

	a, err := audio.Decode(raw, c.engine.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	c.buffer.Put(key, a)
	return a, nil
}

// watch waits for one handle to finish. A generation mismatch means the
// handle was stopped by a jump, pause, or stop, and the completion is
// stale; only a natural completion schedules prefetch and advances.
func (c *Controller) watch(gen uint64, handle audio.Playback, pause time.Duration) {
	<-handle.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state != StatePlaying {
		return
	}
	c.handle = nil

	c.schedulePrefetchLocked()

	if pause <= 0 {
		c.advanceLocked()
		return
	}
	c.pauseTimer = time.AfterFunc(pause, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation || c.state != StatePlaying {
			return
		}
		c.advanceLocked()
	})
}

// advanceLocked moves to the next unit after a natural completion.
func (c *Controller) advanceLocked() {
	c.unitIndex++
	if err := c.beginUnitLocked(); err != nil {
		c.logger.Debug("playback ended", "error", err)
	}
}

// surfaceErrorLocked reports a foreground failure and stops the session.
// Background failures never come through here.
func (c *Controller) surfaceErrorLocked(err error) {
	c.logger.Error("playback failed", "doc", c.docID, "page", c.pageIndex, "unit", c.unitIndex, "error", err)
	c.invalidateLocked()
	if c.onError != nil {
		c.onError(err)
	}
	c.setStateLocked(StateIdle)
}
