package analyzer

import (
	"errors"
	"io"
	"log"
	"sync"
)

// ErrNilSignal is returned when Attach is given no signal.
var ErrNilSignal = errors.New("analyzer: nil signal")

// Signal is a live audio signal the analyser can tap.
type Signal interface {
	// Samples returns the most recent mono samples, oldest first. It must not
	// block on audio I/O.
	Samples() []float32
	// Ready reports whether the underlying pipeline is running. A playback
	// pipeline that still waits for a user gesture reports false.
	Ready() bool
}

// SampleRater is implemented by signals that know their sample rate.
type SampleRater interface {
	SampleRate() float64
}

// AttachState records whether a signal is wired into the analyser.
type AttachState int

const (
	Unattached AttachState = iota
	Attached
)

func (s AttachState) String() string {
	if s == Attached {
		return "attached"
	}
	return "unattached"
}

// Source polls an attached signal once per render tick and hands out the
// latest analysis window. Externally supplied frequency data takes precedence
// over the internal analyser.
type Source struct {
	mu       sync.Mutex
	analyzer *Analyzer
	signal   Signal
	state    AttachState
	log      *log.Logger

	external    []uint8
	hasExternal bool
	frame       Frame

	unavailableLogged bool
}

// SourceConfig configures a Source.
type SourceConfig struct {
	Analyzer Config
	Log      *log.Logger
}

// NewSource creates an unattached Source.
func NewSource(cfg SourceConfig) *Source {
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	a := New(cfg.Analyzer)
	return &Source{
		analyzer: a,
		log:      cfg.Log,
		frame: Frame{
			Frequency:  make(FrequencyFrame, a.Bins()),
			TimeDomain: make(TimeDomainFrame, a.Bins()),
		},
	}
}

// Bins returns the fixed frame size of this session.
func (s *Source) Bins() int { return s.analyzer.Bins() }

// SampleRate returns the sample rate of the analysed signal.
func (s *Source) SampleRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.SampleRate()
}

// State returns the current attach state.
func (s *Source) State() AttachState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attach wires sig into the analyser. Attaching the signal that is already
// connected is a no-op.
func (s *Source) Attach(sig Signal) error {
	if sig == nil {
		return ErrNilSignal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Attached && s.signal == sig {
		return nil
	}
	s.signal = sig
	s.state = Attached
	s.analyzer.Reset()
	if sr, ok := sig.(SampleRater); ok {
		s.analyzer.SetSampleRate(sr.SampleRate())
	}
	s.unavailableLogged = false
	return nil
}

// Detach disconnects the current signal. Safe to call repeatedly.
func (s *Source) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = nil
	s.state = Unattached
}

// SetExternal installs an externally produced frequency frame.
func (s *Source) SetExternal(freq []uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.external = Resample(s.external, freq, s.analyzer.Bins())
	s.hasExternal = true
}

// ClearExternal drops the external frame so the analyser is used again.
func (s *Source) ClearExternal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasExternal = false
}

// HasExternal reports whether external data is currently overriding analysis.
func (s *Source) HasExternal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasExternal
}

// Frame returns the latest frame without blocking. ok is false when neither an
// external frame nor a ready signal is available; callers should then fall
// back to IdleFrame.
func (s *Source) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.state == Attached && s.signal != nil && s.signal.Ready()

	if s.hasExternal {
		copy(s.frame.Frequency, s.external)
		if live {
			copy(s.frame.TimeDomain, s.analyzer.Analyze(s.signal.Samples()).TimeDomain)
		} else {
			fill(s.frame.TimeDomain, 128)
		}
		s.unavailableLogged = false
		return s.frame, true
	}

	if !live {
		if !s.unavailableLogged {
			reason := "no signal attached"
			if s.state == Attached {
				reason = "audio pipeline not started"
			}
			s.log.Printf("audio unavailable (%s), using idle animation", reason)
			s.unavailableLogged = true
		}
		return Frame{}, false
	}

	s.unavailableLogged = false
	return s.analyzer.Analyze(s.signal.Samples()), true
}

func fill(dst []uint8, v uint8) {
	for i := range dst {
		dst[i] = v
	}
}
