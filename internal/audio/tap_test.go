package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
)

type rampStreamer struct {
	next float64
}

func (r *rampStreamer) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{r.next, r.next}
		r.next += 0.001
	}
	return len(samples), true
}

func (r *rampStreamer) Err() error { return nil }

func TestTapNotReadyUntilStreamed(t *testing.T) {
	tap := NewTap(&rampStreamer{}, beep.SampleRate(44100), 16)
	if tap.Ready() {
		t.Fatalf("tap should not be ready before the speaker pulls audio")
	}
	buf := make([][2]float64, 8)
	if n, ok := tap.Stream(buf); n != 8 || !ok {
		t.Fatalf("stream n=%d ok=%v", n, ok)
	}
	if !tap.Ready() {
		t.Fatalf("tap should be ready after streaming")
	}
	if tap.SampleRate() != 44100 {
		t.Fatalf("sample rate=%f", tap.SampleRate())
	}
}

func TestTapNotReadyWhilePaused(t *testing.T) {
	now := time.Unix(100, 0)
	tap := NewTap(&rampStreamer{}, beep.SampleRate(44100), 16)
	tap.now = func() time.Time { return now }
	ctrl := &beep.Ctrl{Streamer: tap}

	buf := make([][2]float64, 8)
	ctrl.Stream(buf)
	if !tap.Ready() {
		t.Fatalf("tap should be ready while the chain plays")
	}
	before := tap.Samples()

	ctrl.Paused = true
	for i := 0; i < 10; i++ {
		now = now.Add(50 * time.Millisecond)
		ctrl.Stream(buf)
	}
	if tap.Ready() {
		t.Fatalf("paused chain still reports ready")
	}
	after := tap.Samples()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("paused chain wrote samples")
		}
	}

	ctrl.Paused = false
	ctrl.Stream(buf)
	if !tap.Ready() {
		t.Fatalf("tap should be ready again after resuming")
	}

	tap.suspend()
	if tap.Ready() {
		t.Fatalf("suspended tap still ready")
	}
}

func TestTapSamplesChronological(t *testing.T) {
	tap := NewTap(&rampStreamer{}, beep.SampleRate(44100), 4)
	buf := make([][2]float64, 6)
	tap.Stream(buf)
	got := tap.Samples()
	if len(got) != 4 {
		t.Fatalf("len=%d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("samples not chronological: %v", got)
		}
	}
	// The newest sample written was the sixth ramp value.
	if diff := got[3] - 0.005; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("newest sample=%f want 0.005", got[3])
	}
}

func TestTapPassesAudioThrough(t *testing.T) {
	tap := NewTap(&rampStreamer{next: 0.5}, beep.SampleRate(44100), 4)
	buf := make([][2]float64, 1)
	tap.Stream(buf)
	if buf[0][0] != 0.5 || buf[0][1] != 0.5 {
		t.Fatalf("tap altered audio: %v", buf[0])
	}
}

func TestToneSourceRequiresFrequency(t *testing.T) {
	if _, err := ToneSource(beep.SampleRate(44100)); err == nil {
		t.Fatalf("expected error without frequencies")
	}
	s, err := ToneSource(beep.SampleRate(44100), 220, 440)
	if err != nil {
		t.Fatalf("tone source: %v", err)
	}
	buf := make([][2]float64, 64)
	if n, ok := s.Stream(buf); n != 64 || !ok {
		t.Fatalf("tone stream n=%d ok=%v", n, ok)
	}
}
