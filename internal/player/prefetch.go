package player

import (
	"context"

	"github.com/localreader/speech/internal/audio"
	"github.com/localreader/speech/internal/segment"
	"github.com/localreader/speech/internal/synth"
)

// schedulePrefetchLocked warms the buffer cache for the units after the
// current one. It is called only from the natural-completion path: a
// jump or stop must never trigger prefetch, or the caches fill up with
// audio for positions the user abandoned.
func (c *Controller) schedulePrefetchLocked() {
	k := c.cfg.PrefetchAhead
	if k <= 0 {
		return
	}

	for _, u := range c.upcomingUnitsLocked(k) {
		req, fp := c.requestLocked(u)
		if c.buffer.Contains(string(fp)) {
			continue
		}
		if _, busy := c.inflight[fp]; busy {
			continue
		}
		done := make(chan struct{})
		c.inflight[fp] = done
		go c.prefetchUnit(req, fp, done)
	}
}

// upcomingUnitsLocked walks forward from the current position, crossing
// into following pages when the current page runs out. Pages it loads
// are not cached on the session; the walk is read-only.
func (c *Controller) upcomingUnitsLocked(k int) []segment.Unit {
	out := make([]segment.Unit, 0, k)
	units := c.units
	pageIndex := c.pageIndex
	idx := c.unitIndex + 1

	for len(out) < k {
		if idx < len(units) {
			out = append(out, units[idx])
			idx++
			continue
		}
		pageIndex++
		text, ok := c.provider.PageText(c.docID, pageIndex)
		if !ok {
			break
		}
		units = c.segmenter.Segment(pageIndex, text)
		idx = 0
	}
	return out
}

// prefetchUnit fetches one unit's audio in the background. Failures are
// logged and swallowed: prefetch is best effort and must never disturb
// foreground playback. Closing done releases any foreground acquire
// waiting on this fingerprint.
func (c *Controller) prefetchUnit(req synth.Request, fp synth.Fingerprint, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, fp)
		c.mu.Unlock()
		close(done)
	}()

	key := string(fp)

	if raw, ok := c.store.Get(key); ok {
		a, err := audio.Decode(raw, c.engine.SampleRate())
		if err == nil {
			c.buffer.Put(key, a)
			return
		}
		c.logger.Debug("prefetched cache entry undecodable", "key", key, "error", err)
	}

	raw, err := c.engine.Synthesize(context.Background(), req)
	if err != nil {
		c.logger.Debug("prefetch synthesis failed", "key", key, "error", err)
		return
	}
	if err := c.store.Put(key, raw); err != nil {
		c.logger.Debug("prefetch cache write failed", "key", key, "error", err)
	}

	a, err := audio.Decode(raw, c.engine.SampleRate())
	if err != nil {
		c.logger.Debug("prefetched audio undecodable", "key", key, "error", err)
		return
	}
	c.buffer.Put(key, a)
}
