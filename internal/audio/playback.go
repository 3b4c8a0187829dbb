package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const defaultPlaybackRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// Playback plays a streamer through the speaker with a Tap in the chain. It
// starts paused: Resume must be called before the tap reports Ready, which
// mirrors audio pipelines that wait for a user gesture.
type Playback struct {
	mu   sync.Mutex
	rate beep.SampleRate
	ctrl *beep.Ctrl
	tap  *Tap
}

// NewPlayback creates a Playback at the given sample rate (44.1 kHz if zero).
func NewPlayback(rate int) *Playback {
	sr := beep.SampleRate(rate)
	if sr <= 0 {
		sr = defaultPlaybackRate
	}
	return &Playback{rate: sr}
}

// SampleRate returns the playback sample rate.
func (p *Playback) SampleRate() beep.SampleRate { return p.rate }

// Start routes src through a new Tap into the speaker and returns the tap.
// Starting again replaces the previous source.
func (p *Playback) Start(src beep.Streamer, tapSize int) (*Tap, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("init speaker: %w", speakerErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Streamer = nil
		speaker.Unlock()
	}

	p.tap = NewTap(src, p.rate, tapSize)
	p.ctrl = &beep.Ctrl{Streamer: p.tap, Paused: true}
	speaker.Play(p.ctrl)
	return p.tap, nil
}

// Resume un-pauses playback.
func (p *Playback) Resume() {
	p.setPaused(false)
}

// Pause halts playback without dropping the source.
func (p *Playback) Pause() {
	p.setPaused(true)
}

func (p *Playback) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
	if paused {
		p.tap.suspend()
	}
}

// Close stops playback. Safe to call repeatedly.
func (p *Playback) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Streamer = nil
	speaker.Unlock()
	speaker.Clear()
	p.ctrl = nil
	p.tap = nil
}

// ToneSource mixes sine tones at the given frequencies into one streamer, each
// attenuated so the mix does not clip.
func ToneSource(rate beep.SampleRate, freqs ...float64) (beep.Streamer, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("tone source needs at least one frequency")
	}
	streams := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		sine, err := generators.SineTone(rate, f)
		if err != nil {
			return nil, fmt.Errorf("sine %.1f Hz: %w", f, err)
		}
		streams = append(streams, &effects.Volume{
			Streamer: sine,
			Base:     2,
			Volume:   -float64(len(freqs)),
		})
	}
	return beep.Mix(streams...), nil
}
