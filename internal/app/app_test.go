package app

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/render"
	"github.com/guidoenr/orbizer/internal/rotation"
)

func TestStatusBarPadsAndTruncates(t *testing.T) {
	if got := statusBar("abc", 6); got != "abc   " {
		t.Fatalf("padded = %q", got)
	}
	if got := statusBar("abcdef", 3); got != "abc" {
		t.Fatalf("truncated = %q", got)
	}
	if got := statusBar("abc", 0); got != "abc" {
		t.Fatalf("zero width = %q", got)
	}
}

func TestKeyEvents(t *testing.T) {
	cases := []struct {
		char rune
		key  keyboard.Key
		want inputEvent
	}{
		{0, keyboard.KeyEsc, inputEventQuit},
		{'q', 0, inputEventQuit},
		{'r', 0, inputEventReset},
		{'+', 0, inputEventResolutionUp},
		{'-', 0, inputEventResolutionDown},
		{']', 0, inputEventDistortionUp},
		{'[', 0, inputEventDistortionDown},
		{'p', 0, inputEventTogglePolicy},
		{'c', 0, inputEventCycleColor},
		{0, keyboard.KeyArrowLeft, inputEventDragLeft},
	}
	for _, tc := range cases {
		got, ok := keyEvent(tc.char, tc.key)
		if !ok || got != tc.want {
			t.Fatalf("keyEvent(%q, %v) = %v, %v; want %v", tc.char, tc.key, got, ok, tc.want)
		}
	}
	if _, ok := keyEvent('z', 0); ok {
		t.Fatalf("unbound key produced an event")
	}
}

func TestStepResolutionBounds(t *testing.T) {
	if got := stepResolution(8, -resolutionStep); got != resolutionStep {
		t.Fatalf("lower bound = %d", got)
	}
	if got := stepResolution(params.MaxResolution, resolutionStep); got != params.MaxResolution {
		t.Fatalf("upper bound = %d", got)
	}
	if got := stepResolution(32, resolutionStep); got != 40 {
		t.Fatalf("step = %d", got)
	}
}

func TestNextOptionWraps(t *testing.T) {
	opts := []string{"a", "b", "c"}
	if got := nextOption(opts, "c"); got != "a" {
		t.Fatalf("wrap = %q", got)
	}
	if got := nextOption(opts, "missing"); got != "a" {
		t.Fatalf("unknown = %q", got)
	}
}

func TestFakeSignal(t *testing.T) {
	f := newFakeSignal(48_000, 1024, 7)
	base := time.Unix(100, 0)
	f.start = base
	f.now = func() time.Time { return base.Add(3 * time.Second) }

	if !f.Ready() || f.SampleRate() != 48_000 {
		t.Fatalf("ready=%v rate=%f", f.Ready(), f.SampleRate())
	}
	samples := f.Samples()
	if len(samples) != 1024 {
		t.Fatalf("len = %d", len(samples))
	}
	var energy float64
	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
		energy += float64(s * s)
	}
	if energy == 0 {
		t.Fatalf("silent signal")
	}
}

func TestProfilerWritesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.csv")
	p := newProfiler(path, log.New(io.Discard, "", 0))
	if p == nil {
		t.Fatalf("profiler not created")
	}
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	p.beginFrame()
	clock = clock.Add(2 * time.Millisecond)
	p.markSection("tick")
	clock = clock.Add(3 * time.Millisecond)
	p.markSection("draw")
	p.endFrame()

	if got := p.summary(); got != "draw=3.00ms frame=5.00ms tick=2.00ms" {
		t.Fatalf("summary = %q", got)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 || lines[0] != "frame,section,ms" || lines[1] != "1,tick,2.000" {
		t.Fatalf("csv = %q", lines)
	}
}

func TestNilProfilerIsInert(t *testing.T) {
	var p *profiler
	p.beginFrame()
	p.markSection("x")
	p.endFrame()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKeyDragSpinsOrb(t *testing.T) {
	e, err := engine.New(engine.Config{FieldParticles: 10, AmbientParticles: 5})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	a := &App{engine: e, epoch: time.Unix(0, 0), log: log.New(io.Discard, "", 0)}

	t0 := time.Unix(1, 0)
	a.keyDrag(inputEventDragRight, t0)
	a.keyDrag(inputEventDragRight, t0.Add(50*time.Millisecond))
	sc, err := e.Tick(16 * time.Millisecond)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sc.Phase != rotation.Dragging {
		t.Fatalf("phase = %v", sc.Phase)
	}

	a.releaseKeyDrag(t0.Add(60 * time.Millisecond))
	if !a.dragging {
		t.Fatalf("released before timeout")
	}
	a.releaseKeyDrag(t0.Add(50*time.Millisecond + keyDragRelease + time.Millisecond))
	sc, err = e.Tick(16 * time.Millisecond)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sc.Phase != rotation.Inertial || sc.State.Velocity.Y <= 0 {
		t.Fatalf("phase=%v velocity=%+v", sc.Phase, sc.State.Velocity)
	}
}

func TestHandleInputAdjustsSettings(t *testing.T) {
	e, err := engine.New(engine.Config{FieldParticles: 10, AmbientParticles: 5})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	path := filepath.Join(t.TempDir(), "settings.json")
	a := &App{engine: e, cfg: Config{ConfigPath: path}, log: log.New(io.Discard, "", 0)}

	a.handleInput(inputEventResolutionUp)
	a.handleInput(inputEventDistortionDown)
	if _, err := e.Tick(time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}
	def := params.Defaults()
	got := e.Settings()
	if got.Resolution != def.Resolution+resolutionStep {
		t.Fatalf("resolution = %d", got.Resolution)
	}
	if d := got.Distortion - (def.Distortion - distortionStep); d > 1e-9 || d < -1e-9 {
		t.Fatalf("distortion = %f", got.Distortion)
	}

	a.handleInput(inputEventSave)
	saved, err := params.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved != got {
		t.Fatalf("saved %+v, want %+v", saved, got)
	}
}

func TestDrawErrorsKeepLoopRunning(t *testing.T) {
	e, err := engine.New(engine.Config{FieldParticles: 10, AmbientParticles: 5})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	var logs bytes.Buffer
	a := &App{
		engine: e,
		cfg:    Config{Backend: "sdl", TargetFPS: 60},
		log:    log.New(&logs, "", 0),
		last:   time.Now().Add(-16 * time.Millisecond),
	}

	var (
		calls   int
		times   []float64
		drawErr = errors.New("texture update failed")
	)
	a.draw = func(sc *engine.Scene) error {
		calls++
		times = append(times, sc.Time)
		if calls <= 2 {
			return drawErr
		}
		return nil
	}

	for i := 0; i < 4; i++ {
		time.Sleep(time.Millisecond)
		if done, err := a.frame(); done || err != nil {
			t.Fatalf("frame %d ended the loop: done=%v err=%v", i, done, err)
		}
	}
	if calls != 4 {
		t.Fatalf("draw calls = %d", calls)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("engine stopped advancing: %v", times)
		}
	}
	if n := strings.Count(logs.String(), "texture update failed"); n != 1 {
		t.Fatalf("logged %d times: %q", n, logs.String())
	}

	a.draw = func(*engine.Scene) error { return render.ErrRendererQuit }
	if done, err := a.frame(); !done || err != nil {
		t.Fatalf("quit: done=%v err=%v", done, err)
	}

	e.Stop()
	if done, err := a.frame(); !done || !errors.Is(err, engine.ErrStopped) {
		t.Fatalf("stopped engine: done=%v err=%v", done, err)
	}
}
