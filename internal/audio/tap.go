package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
)

// tapStaleAfter is how long the tap stays Ready without the speaker pulling
// audio through it. The speaker buffer is 100 ms, so a live chain pulls well
// within this window.
const tapStaleAfter = 300 * time.Millisecond

// Tap sits between a playback streamer and the speaker, passing audio through
// unchanged while copying a mono mix into a ring buffer for analysis. It
// satisfies analyzer.Signal.
type Tap struct {
	src  beep.Streamer
	rate beep.SampleRate

	now func() time.Time

	mu         sync.RWMutex
	ring       sampleRing
	streaming  bool
	lastStream time.Time
}

// NewTap wraps src with a ring buffer holding size mono samples.
func NewTap(src beep.Streamer, rate beep.SampleRate, size int) *Tap {
	return &Tap{
		src:  src,
		rate: rate,
		ring: newSampleRing(size),
		now:  time.Now,
	}
}

// Stream implements beep.Streamer.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.src.Stream(samples)
	if n > 0 {
		t.mu.Lock()
		for i := 0; i < n; i++ {
			t.ring.push(float32((samples[i][0] + samples[i][1]) / 2))
		}
		t.streaming = true
		t.lastStream = t.now()
		t.mu.Unlock()
	}
	if !ok {
		t.mu.Lock()
		t.streaming = false
		t.mu.Unlock()
	}
	return n, ok
}

// Err implements beep.Streamer.
func (t *Tap) Err() error {
	return t.src.Err()
}

// Ready reports whether the speaker is pulling audio through the tap. A paused
// or stalled chain stops being Ready once no audio has passed for
// tapStaleAfter, or at once after suspend.
func (t *Tap) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.streaming && t.now().Sub(t.lastStream) < tapStaleAfter
}

// suspend marks the tap idle until the speaker pulls audio again.
func (t *Tap) suspend() {
	t.mu.Lock()
	t.streaming = false
	t.mu.Unlock()
}

// SampleRate returns the rate of the tapped stream.
func (t *Tap) SampleRate() float64 {
	return float64(t.rate)
}

// Samples returns the ring buffer contents in chronological order.
func (t *Tap) Samples() []float32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ring.snapshot(nil)
}
