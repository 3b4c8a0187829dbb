// Package engine runs the per-frame update of the orb scene. A host calls Tick
// once per displayed frame; everything else may be called from any goroutine
// and takes effect at the next tick boundary.
package engine

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/guidoenr/orbizer/internal/analyzer"
	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/particles"
	"github.com/guidoenr/orbizer/internal/rings"
	"github.com/guidoenr/orbizer/internal/rotation"
	"github.com/guidoenr/orbizer/internal/vmath"
)

// ErrStopped is returned by Tick after Stop.
var ErrStopped = errors.New("engine: stopped")

// Viewport is the host surface size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Aspect returns width/height, 1 for an empty viewport.
func (v Viewport) Aspect() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float64(v.Width) / float64(v.Height)
}

// Config configures an Engine.
type Config struct {
	Settings  params.Settings
	Source    *analyzer.Source
	Analyzer  analyzer.Config
	Backend   orb.Backend
	Policy    rotation.Policy
	ColorMode ColorMode
	Viewport  Viewport

	// RingSize is the side of the square ring surface.
	RingSize int
	// DrawRings rasterizes the ring surface every tick. Renderers that only
	// need ring vertices leave it off.
	DrawRings bool

	FieldParticles   int
	AmbientParticles int
	Seed             uint64

	Log *log.Logger
}

// Scene is everything a backend needs to draw one frame. It is reused by the
// next Tick.
type Scene struct {
	Time       float64
	Viewport   Viewport
	Camera     vmath.Camera
	Rotation   vmath.Rotation
	Offset     vmath.Vec3
	State      rotation.State
	Phase      rotation.Phase
	Policy     rotation.Policy
	Settings   params.Settings
	ColorMode  ColorMode
	BaseColor  orb.Color
	AudioLevel float64
	Idle       bool
	External   bool
	Features   analyzer.Features
	Frame      analyzer.Frame

	Orb       *orb.Orb
	Particles []particles.Point
	Ambient   []particles.Point

	RingSize  int
	Rings     [][]rings.Point
	RingImage *image.RGBA
}

// Status is a snapshot safe to read from other goroutines.
type Status struct {
	Settings   params.Settings   `json:"settings"`
	Features   analyzer.Features `json:"features"`
	AudioLevel float64           `json:"audioLevel"`
	Idle       bool              `json:"idle"`
	External   bool              `json:"external"`
	Attach     string            `json:"attach"`
	Phase      string            `json:"phase"`
	Policy     string            `json:"policy"`
	ColorMode  string            `json:"colorMode"`
	Viewport   Viewport          `json:"viewport"`
	Vertices   int               `json:"vertices"`
	Frames     uint64            `json:"frames"`
}

// Engine owns every scene component. Only Tick touches them.
type Engine struct {
	log     *log.Logger
	source  *analyzer.Source
	orb     *orb.Orb
	ctrl    *rotation.Controller
	field   *particles.Field
	ambient *particles.Ambient
	rings   *rings.Visualizer

	drawRings bool
	settings  params.Settings
	viewport  Viewport
	colorMode ColorMode
	elapsed   float64
	frames    uint64
	idle      analyzer.Frame
	scene     Scene

	inbox inbox

	statusMu sync.RWMutex
	status   Status

	stopOnce sync.Once
	stopped  bool
}

// New builds an engine and its components.
func New(cfg Config) (*Engine, error) {
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	settings := cfg.Settings
	if settings == (params.Settings{}) {
		settings = params.Defaults()
	}
	settings = settings.Sanitize()

	source := cfg.Source
	if source == nil {
		source = analyzer.NewSource(analyzer.SourceConfig{Analyzer: cfg.Analyzer, Log: cfg.Log})
	}
	o, err := orb.New(orb.Config{Backend: cfg.Backend, Log: cfg.Log}, settings)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		log:       cfg.Log,
		source:    source,
		orb:       o,
		ctrl:      rotation.NewController(rotation.Config{Policy: cfg.Policy}),
		field:     particles.NewField(particles.FieldConfig{Count: cfg.FieldParticles, Seed: cfg.Seed}),
		ambient:   particles.NewAmbient(particles.AmbientConfig{Count: cfg.AmbientParticles, Seed: cfg.Seed}),
		drawRings: cfg.DrawRings,
		settings:  settings,
		viewport:  cfg.Viewport,
		colorMode: cfg.ColorMode,
	}
	e.rings = rings.New(rings.Config{Size: cfg.RingSize, Hues: cfg.ColorMode.RingHues(), Log: cfg.Log})
	e.publish()
	return e, nil
}

// Source returns the audio analysis source.
func (e *Engine) Source() *analyzer.Source { return e.source }

// Attach wires a live signal into the analyser. Re-attaching the same signal
// is a no-op.
func (e *Engine) Attach(sig analyzer.Signal) error { return e.source.Attach(sig) }

// Detach unwires the live signal. Safe to call repeatedly.
func (e *Engine) Detach() { e.source.Detach() }

// SetExternalFrame overrides analysis with caller supplied frequency data.
func (e *Engine) SetExternalFrame(freq []uint8) { e.source.SetExternal(freq) }

// ClearExternalFrame returns to the internal analyser.
func (e *Engine) ClearExternalFrame() { e.source.ClearExternal() }

// Resize records a new host viewport. The projection follows at the next
// tick; orientation and particles are untouched.
func (e *Engine) Resize(width, height int) {
	e.inbox.post(func(e *Engine) {
		if width > 0 && height > 0 {
			e.viewport = Viewport{Width: width, Height: height}
		}
	})
}

// SetSettings replaces the tuning parameters. Out-of-range fields fall back
// to their defaults.
func (e *Engine) SetSettings(s params.Settings) {
	s = s.Sanitize()
	e.inbox.post(func(e *Engine) { e.applySettings(s) })
}

// UpdateSettings edits the settings in place at the next tick.
func (e *Engine) UpdateSettings(fn func(*params.Settings)) {
	e.inbox.post(func(e *Engine) {
		next := e.settings
		fn(&next)
		e.applySettings(next.Sanitize())
	})
}

// ResetSettings restores the defaults.
func (e *Engine) ResetSettings() {
	e.inbox.post(func(e *Engine) { e.applySettings(params.Defaults()) })
}

// SetPolicy switches the drag response policy.
func (e *Engine) SetPolicy(p rotation.Policy) {
	e.inbox.post(func(e *Engine) { e.ctrl.SetPolicy(p) })
}

// TogglePolicy flips between the inertia and spring policies.
func (e *Engine) TogglePolicy() {
	e.inbox.post(func(e *Engine) {
		if e.ctrl.Policy() == rotation.SpringBounce {
			e.ctrl.SetPolicy(rotation.RotationInertia)
		} else {
			e.ctrl.SetPolicy(rotation.SpringBounce)
		}
		e.log.Printf("drag policy: %s", e.ctrl.Policy())
	})
}

// SetColorMode changes the orb and ring colors.
func (e *Engine) SetColorMode(m ColorMode) {
	e.inbox.post(func(e *Engine) { e.setColorMode(m) })
}

// CycleColorMode advances to the next color mode.
func (e *Engine) CycleColorMode() {
	e.inbox.post(func(e *Engine) { e.setColorMode(e.colorMode.Next()) })
}

func (e *Engine) setColorMode(m ColorMode) {
	e.colorMode = m
	e.rings.SetHues(m.RingHues())
}

// PointerDown starts a drag; t is the event time in milliseconds.
func (e *Engine) PointerDown(x, y, t float64) {
	e.inbox.post(func(e *Engine) { e.ctrl.PointerDown(x, y, t) })
}

// PointerMove continues a drag.
func (e *Engine) PointerMove(x, y, t float64) {
	e.inbox.post(func(e *Engine) { e.ctrl.PointerMove(x, y, t) })
}

// PointerUp releases a drag.
func (e *Engine) PointerUp() {
	e.inbox.post(func(e *Engine) { e.ctrl.PointerUp() })
}

func (e *Engine) applySettings(s params.Settings) {
	if _, err := e.orb.Configure(s); err != nil {
		// Keep the previous mesh; the other settings still apply.
		e.log.Printf("settings: %v", err)
		s.Resolution = e.settings.Resolution
		s.Distortion = e.settings.Distortion
	}
	e.settings = s
}

// Tick advances the scene by dt and returns it for drawing.
func (e *Engine) Tick(dt time.Duration) (*Scene, error) {
	if e.stopped {
		return nil, ErrStopped
	}
	e.inbox.drain(func(ev event) { ev(e) })

	if dt > 0 {
		e.elapsed += dt.Seconds()
	}
	t := e.elapsed
	s := e.settings

	frame, ok := e.source.Frame()
	if !ok {
		e.idle = analyzer.IdleFrame(e.idle, t, e.source.Bins())
		frame = e.idle
	}
	level := analyzer.AudioLevel(frame.Frequency, s.Sensitivity)

	e.ctrl.Tick(s.RotationSpeed, level, s.Reactivity)
	st := e.ctrl.State()
	rot := vmath.RotationFromEuler(st.Orientation)
	offset := vmath.Vec3{X: st.Offset.X, Y: st.Offset.Y}
	cam := vmath.DefaultCamera(e.viewport.Aspect())
	base := e.colorMode.BaseColor(t, level)

	e.orb.Update(t, level*s.Reactivity, base, rot, offset, cam)

	sc := &e.scene
	sc.Particles = e.field.Evaluate(sc.Particles, t)
	sc.Ambient = e.ambient.Evaluate(sc.Ambient, t)
	if e.drawRings {
		sc.RingImage = e.rings.Draw(frame.Frequency, s.Sensitivity, s.Reactivity)
	} else {
		e.rings.Update(frame.Frequency, s.Sensitivity, s.Reactivity)
	}
	sc.Rings = e.rings.Rings()
	sc.RingSize, _ = e.rings.Size()

	sc.Time = t
	sc.Viewport = e.viewport
	sc.Camera = cam
	sc.Rotation = rot
	sc.Offset = offset
	sc.State = st
	sc.Phase = e.ctrl.Phase()
	sc.Policy = e.ctrl.Policy()
	sc.Settings = s
	sc.ColorMode = e.colorMode
	sc.BaseColor = base
	sc.AudioLevel = level
	sc.Idle = !ok
	sc.External = e.source.HasExternal()
	sc.Features = analyzer.Summarize(frame.Frequency, e.source.SampleRate(), s.Sensitivity)
	sc.Frame = frame
	sc.Orb = e.orb

	e.frames++
	e.publish()
	return sc, nil
}

func (e *Engine) publish() {
	st := Status{
		Settings:   e.settings,
		Features:   e.scene.Features,
		AudioLevel: e.scene.AudioLevel,
		Idle:       e.scene.Idle,
		External:   e.scene.External,
		Attach:     e.source.State().String(),
		Phase:      e.ctrl.Phase().String(),
		Policy:     e.ctrl.Policy().String(),
		ColorMode:  e.colorMode.String(),
		Viewport:   e.viewport,
		Frames:     e.frames,
	}
	if g := e.orb.Geometry(); g != nil {
		st.Vertices = len(g.Positions)
	}
	e.statusMu.Lock()
	e.status = st
	e.statusMu.Unlock()
}

// Status returns the snapshot taken at the end of the last tick.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// Settings returns the settings in effect after the last tick.
func (e *Engine) Settings() params.Settings {
	return e.Status().Settings
}

// Stop detaches audio and releases the orb resources. It must be called from
// the goroutine that calls Tick; further calls are no-ops.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.source.Detach()
		e.orb.Release()
		e.stopped = true
		e.log.Printf("engine stopped after %d frames", e.frames)
	})
}
