package engine

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/guidoenr/orbizer/internal/analyzer"
	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/rotation"
)

const frame = 16 * time.Millisecond

func newTestEngine(t *testing.T, backend orb.Backend) *Engine {
	t.Helper()
	e, err := New(Config{
		Backend:          backend,
		Viewport:         Viewport{Width: 800, Height: 600},
		FieldParticles:   64,
		AmbientParticles: 16,
		Seed:             11,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func mustTick(t *testing.T, e *Engine) *Scene {
	t.Helper()
	sc, err := e.Tick(frame)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	return sc
}

func TestResizeKeepsMotionState(t *testing.T) {
	a := newTestEngine(t, nil)
	b := newTestEngine(t, nil)
	for _, e := range []*Engine{a, b} {
		e.PointerDown(100, 100, 0)
		e.PointerMove(110, 106, 16)
		e.PointerUp()
		for i := 0; i < 5; i++ {
			mustTick(t, e)
		}
	}

	b.Resize(1600, 600)
	sa := *mustTick(t, a)
	sb := *mustTick(t, b)

	if sa.State != sb.State || sa.Phase != sb.Phase {
		t.Fatalf("resize changed rotation: %+v vs %+v", sa.State, sb.State)
	}
	for i := range a.field.Particles {
		if a.field.Particles[i] != b.field.Particles[i] {
			t.Fatalf("resize changed particle %d", i)
		}
	}
	if math.Abs(sa.Camera.Aspect-4.0/3.0) > 1e-9 || math.Abs(sb.Camera.Aspect-8.0/3.0) > 1e-9 {
		t.Fatalf("aspects %f %f", sa.Camera.Aspect, sb.Camera.Aspect)
	}
	if sa.RingSize != 450 || sb.RingSize != 450 {
		t.Fatalf("ring surface followed viewport: %d %d", sa.RingSize, sb.RingSize)
	}
}

func TestIdleFallback(t *testing.T) {
	e := newTestEngine(t, nil)
	sc := mustTick(t, e)
	if !sc.Idle {
		t.Fatalf("expected idle frame without a signal")
	}
	want := analyzer.IdleFrame(analyzer.Frame{}, sc.Time, e.Source().Bins())
	for i := range want.Frequency {
		if sc.Frame.Frequency[i] != want.Frequency[i] {
			t.Fatalf("bin %d = %d, want %d", i, sc.Frame.Frequency[i], want.Frequency[i])
		}
	}
	if sc.AudioLevel <= 0 {
		t.Fatalf("idle frame should animate the level")
	}
}

func TestExternalFrameDrivesLevel(t *testing.T) {
	e := newTestEngine(t, nil)
	full := make([]uint8, 1024)
	for i := range full {
		full[i] = 255
	}
	e.SetExternalFrame(full)
	sc := mustTick(t, e)
	if sc.Idle || !sc.External {
		t.Fatalf("external frame not used: idle=%v external=%v", sc.Idle, sc.External)
	}
	if math.Abs(sc.AudioLevel-1) > 1e-12 {
		t.Fatalf("level = %f, want 1", sc.AudioLevel)
	}

	e.ClearExternalFrame()
	if sc := mustTick(t, e); !sc.Idle {
		t.Fatalf("expected idle after clearing external frame")
	}
}

func TestSettingsRebuildAtTick(t *testing.T) {
	backend := orb.NewMemoryBackend()
	e := newTestEngine(t, backend)
	s := params.Defaults()
	s.Resolution = 69
	e.SetSettings(s)
	if e.orb.Geometry().Level != 4 {
		t.Fatalf("settings applied before tick")
	}
	sc := mustTick(t, e)
	if sc.Orb.Geometry().Level != 8 || sc.Settings.Resolution != 69 {
		t.Fatalf("level = %d", sc.Orb.Geometry().Level)
	}
	if backend.Live() != 3 {
		t.Fatalf("live resources = %d", backend.Live())
	}

	e.UpdateSettings(func(s *params.Settings) { s.Distortion = -1 })
	if sc := mustTick(t, e); sc.Settings.Distortion != params.Defaults().Distortion {
		t.Fatalf("invalid distortion kept: %f", sc.Settings.Distortion)
	}

	e.ResetSettings()
	if sc := mustTick(t, e); sc.Settings != params.Defaults() {
		t.Fatalf("reset gave %+v", sc.Settings)
	}
	if e.Settings() != params.Defaults() {
		t.Fatalf("status settings stale")
	}
}

func TestHugeResolutionIsClamped(t *testing.T) {
	backend := orb.NewMemoryBackend()
	e := newTestEngine(t, backend)
	s := params.Defaults()
	s.Resolution = 1 << 40
	e.SetSettings(s)
	sc := mustTick(t, e)
	if sc.Settings.Resolution != params.MaxResolution {
		t.Fatalf("resolution = %d, want %d", sc.Settings.Resolution, params.MaxResolution)
	}
	if got, want := sc.Orb.Geometry().Level, orb.SubdivisionLevel(params.MaxResolution); got != want {
		t.Fatalf("level = %d, want %d", got, want)
	}

	e.UpdateSettings(func(s *params.Settings) { s.Resolution = 1 << 50 })
	if sc := mustTick(t, e); sc.Settings.Resolution != params.MaxResolution {
		t.Fatalf("update kept resolution %d", sc.Settings.Resolution)
	}
}

func TestStopIdempotent(t *testing.T) {
	backend := orb.NewMemoryBackend()
	e := newTestEngine(t, backend)
	mustTick(t, e)
	e.Stop()
	e.Stop()
	if backend.Live() != 0 {
		t.Fatalf("resources leaked after stop: %d", backend.Live())
	}
	if _, err := e.Tick(frame); !errors.Is(err, ErrStopped) {
		t.Fatalf("tick after stop err = %v", err)
	}
}

func TestConcurrentInput(t *testing.T) {
	e := newTestEngine(t, nil)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.PointerDown(0, 0, float64(i))
				e.PointerMove(float64(i+g), float64(i), float64(i)+1)
				e.PointerUp()
				e.Resize(640+i, 480)
				_ = e.Status()
			}
		}(g)
	}
	for i := 0; i < 50; i++ {
		mustTick(t, e)
	}
	wg.Wait()
	sc := mustTick(t, e)
	if math.IsNaN(sc.State.Orientation.Yaw) || sc.Viewport.Height != 480 {
		t.Fatalf("bad state after concurrent input: %+v", sc.State)
	}
}

func TestPolicyAndColorMode(t *testing.T) {
	e := newTestEngine(t, nil)
	e.TogglePolicy()
	e.CycleColorMode()
	sc := mustTick(t, e)
	if sc.Policy != rotation.SpringBounce || sc.ColorMode != Fire {
		t.Fatalf("policy=%v color=%v", sc.Policy, sc.ColorMode)
	}
	st := e.Status()
	if st.Policy != "spring" || st.ColorMode != "fire" || st.Frames != 1 {
		t.Fatalf("status %+v", st)
	}
}

func TestColorModes(t *testing.T) {
	for _, name := range ColorModeNames() {
		m := ParseColorMode(name)
		if m.String() != name {
			t.Fatalf("round trip %s -> %s", name, m)
		}
		c := m.BaseColor(3, 0.5)
		for _, v := range []float64{c.R, c.G, c.B} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("%s base color out of range: %+v", name, c)
			}
		}
		if len(m.RingHues()) == 0 {
			t.Fatalf("%s has no ring hues", name)
		}
	}
	if Mono.Next() != Chromatic {
		t.Fatalf("cycle does not wrap")
	}
}
