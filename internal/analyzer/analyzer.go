package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	defaultFFTSize     = 2048
	defaultSmoothing   = 0.8
	defaultMinDecibels = -100.0
	defaultMaxDecibels = -30.0
)

// Analyzer turns PCM windows into byte frequency and time-domain frames the way
// a browser analyser node does: Hann window, FFT, temporal smoothing and a
// decibel range mapped onto 0..255.
type Analyzer struct {
	fftSize     int
	smoothing   float64
	minDecibels float64
	maxDecibels float64
	sampleRate  float64

	window   []float64
	input    []float64
	smoothed []float64
	frame    Frame
}

// Config controls Analyzer behavior.
type Config struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
	SampleRate  float64
}

// New creates an Analyzer, filling zero fields with browser-like defaults.
func New(cfg Config) *Analyzer {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = defaultFFTSize
	}
	cfg.FFTSize = nextPow2(cfg.FFTSize)
	if cfg.FFTSize < 32 {
		cfg.FFTSize = 32
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = defaultSmoothing
	}
	if cfg.MinDecibels == 0 && cfg.MaxDecibels == 0 {
		cfg.MinDecibels = defaultMinDecibels
		cfg.MaxDecibels = defaultMaxDecibels
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		cfg.MaxDecibels = cfg.MinDecibels + 70
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}

	bins := cfg.FFTSize / 2
	return &Analyzer{
		fftSize:     cfg.FFTSize,
		smoothing:   cfg.Smoothing,
		minDecibels: cfg.MinDecibels,
		maxDecibels: cfg.MaxDecibels,
		sampleRate:  cfg.SampleRate,
		window:      window.Hann(cfg.FFTSize),
		input:       make([]float64, cfg.FFTSize),
		smoothed:    make([]float64, bins),
		frame: Frame{
			Frequency:  make(FrequencyFrame, bins),
			TimeDomain: make(TimeDomainFrame, bins),
		},
	}
}

// Bins returns the number of frequency bins per frame.
func (a *Analyzer) Bins() int { return a.fftSize / 2 }

// SampleRate returns the sample rate the bins are expressed in.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// SetSampleRate updates the rate used for band lookups.
func (a *Analyzer) SetSampleRate(rate float64) {
	if rate > 0 {
		a.sampleRate = rate
	}
}

// Analyze consumes the most recent samples (oldest first) and returns the
// updated frame. Shorter inputs are zero-padded at the front.
func (a *Analyzer) Analyze(samples []float32) Frame {
	size := a.fftSize
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	pad := size - len(samples)
	for i := 0; i < pad; i++ {
		a.input[i] = 0
	}
	for i, s := range samples {
		a.input[pad+i] = float64(s) * a.window[pad+i]
	}

	spectrum := fft.FFTReal(a.input)

	bins := a.Bins()
	scale := 1.0 / float64(size)
	dbRange := a.maxDecibels - a.minDecibels
	for k := 0; k < bins; k++ {
		mag := cmag(spectrum[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		db := a.minDecibels
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		a.frame.Frequency[k] = toByte(255 * (db - a.minDecibels) / dbRange)
	}

	// Time domain reports the newest bins samples, unwindowed.
	td := a.frame.TimeDomain
	offset := len(samples) - len(td)
	for i := range td {
		idx := offset + i
		if idx < 0 {
			td[i] = 128
			continue
		}
		td[i] = toByte(128 + float64(samples[idx])*128)
	}

	return a.frame
}

// Reset clears the smoothing history.
func (a *Analyzer) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
