package app

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// fakeSignal synthesizes PCM for -no-audio runs: three tones whose loudness
// drifts at different rates plus a kick every half second. It satisfies
// analyzer.Signal.
type fakeSignal struct {
	mu    sync.Mutex
	rate  float64
	buf   []float32
	start time.Time
	now   func() time.Time
	rng   *rand.Rand
}

func newFakeSignal(rate float64, size int, seed uint64) *fakeSignal {
	if rate <= 0 {
		rate = 44_100
	}
	if size <= 0 {
		size = 2048
	}
	return &fakeSignal{
		rate:  rate,
		buf:   make([]float32, size),
		start: time.Now(),
		now:   time.Now,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (f *fakeSignal) Ready() bool         { return true }
func (f *fakeSignal) SampleRate() float64 { return f.rate }

// Samples renders the window that ends at the current wall-clock time.
func (f *fakeSignal) Samples() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	end := f.now().Sub(f.start).Seconds()
	t0 := end - float64(len(f.buf))/f.rate
	for i := range f.buf {
		f.buf[i] = float32(f.sample(t0 + float64(i)/f.rate))
	}
	return f.buf
}

func (f *fakeSignal) sample(t float64) float64 {
	bass := 0.5 + 0.5*math.Sin(t*0.7)
	mid := 0.4 + 0.4*math.Sin(t*1.2+0.5)
	treble := 0.3 + 0.3*math.Sin(t*2.1+1.0)

	beat := t - math.Floor(t*2)/2
	kick := math.Exp(-beat*18) * math.Sin(2*math.Pi*48*t)

	v := 0.35*bass*math.Sin(2*math.Pi*55*t) +
		0.25*mid*math.Sin(2*math.Pi*440*t) +
		0.12*treble*math.Sin(2*math.Pi*3520*t) +
		0.3*kick +
		0.02*(f.rng.Float64()*2-1)
	return clamp(v, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
