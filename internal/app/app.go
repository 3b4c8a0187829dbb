package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/orbizer/internal/analyzer"
	"github.com/guidoenr/orbizer/internal/audio"
	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/glview"
	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/render"
	"github.com/guidoenr/orbizer/internal/rotation"
	"golang.org/x/term"
)

// Config configures the application runtime.
type Config struct {
	DeviceName    string
	Width         int
	Height        int
	TargetFPS     float64
	BufferSize    int
	DisableAudio  bool
	Tone          []float64
	ShowStatusBar bool
	Palette       string
	ColorMode     string
	Quality       string
	Policy        string
	// Backend is "ascii", "sdl" or "gl".
	Backend    string
	UseANSI    bool
	Settings   params.Settings
	ConfigPath string
	Profile    string
	Seed       uint64
	Log        *log.Logger
}

type inputEvent int

const (
	inputEventQuit inputEvent = iota
	inputEventReset
	inputEventSave
	inputEventResolutionUp
	inputEventResolutionDown
	inputEventDistortionUp
	inputEventDistortionDown
	inputEventTogglePolicy
	inputEventCycleColor
	inputEventCyclePalette
	inputEventTogglePlayback
	inputEventDragUp
	inputEventDragDown
	inputEventDragLeft
	inputEventDragRight
)

const (
	resolutionStep = 8
	distortionStep = 0.1
	maxDistortion  = 4.0
	// Arrow keys drag a virtual pointer by this many pixels per press and
	// release it after keyDragRelease without another press.
	keyDragStep    = 24.0
	keyDragRelease = 150 * time.Millisecond
)

// App ties together audio, the engine and one drawing backend.
type App struct {
	cfg      Config
	log      *log.Logger
	engine   *engine.Engine
	renderer *render.Renderer
	view     *glview.View
	capture  *audio.Capture
	playback *audio.Playback
	playing  bool
	prof     *profiler
	draw     func(*engine.Scene) error
	drawErr  string

	deviceLabel  string
	width        int
	height       int
	renderHeight int
	inputEvents  chan inputEvent
	epoch        time.Time
	last         time.Time
	fps          float64

	dragging  bool
	dragX     float64
	dragY     float64
	lastDrag  time.Time
	closeOnce sync.Once
	closeErr  error
}

// New constructs the application using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stdout, "", log.LstdFlags)
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = params.ConfigPath()
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	if cfg.Backend == "" {
		cfg.Backend = "ascii"
	}

	policy, err := rotation.ParsePolicy(strings.ToLower(cfg.Policy))
	if err != nil {
		return nil, err
	}

	renderHeight := cfg.Height
	if cfg.Backend == "ascii" && cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	a := &App{
		cfg:          cfg,
		log:          cfg.Log,
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
		epoch:        time.Now(),
	}
	a.draw = a.drawScene

	ecfg := engine.Config{
		Settings:  cfg.Settings,
		Analyzer:  analyzer.Config{FFTSize: cfg.BufferSize},
		Policy:    policy,
		ColorMode: engine.ParseColorMode(cfg.ColorMode),
		Seed:      cfg.Seed,
		Log:       cfg.Log,
	}

	switch cfg.Backend {
	case "ascii":
		// Terminal cells are about twice as tall as wide.
		ecfg.Viewport = engine.Viewport{Width: cfg.Width, Height: renderHeight * 2}
		ecfg.Backend = orb.NewMemoryBackend()
	case "sdl":
		ecfg.Viewport = engine.Viewport{Width: cfg.Width, Height: cfg.Height}
		ecfg.Backend = orb.NewMemoryBackend()
		ecfg.DrawRings = true
	case "gl":
		view, err := glview.Open(glview.Config{Width: cfg.Width, Height: cfg.Height, Log: cfg.Log})
		if err != nil {
			return nil, fmt.Errorf("open gl view: %w", err)
		}
		a.view = view
		w, h := view.FramebufferSize()
		ecfg.Viewport = engine.Viewport{Width: w, Height: h}
		ecfg.Backend = view
		ecfg.DrawRings = true
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	eng, err := engine.New(ecfg)
	if err != nil {
		a.closeBackends()
		return nil, err
	}
	a.engine = eng

	switch cfg.Backend {
	case "gl":
		a.view.SetInput(eng)
	default:
		renderer, err := render.New(render.Config{
			Width:   cfg.Width,
			Height:  renderHeight,
			Palette: cfg.Palette,
			Quality: cfg.Quality,
			UseANSI: cfg.UseANSI,
			Backend: cfg.Backend,
			Input:   eng,
			Log:     cfg.Log,
		})
		if err != nil {
			eng.Stop()
			return nil, err
		}
		a.renderer = renderer
	}

	if err := a.attachAudio(); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.prof = newProfiler(cfg.Profile, cfg.Log)
	return a, nil
}

func (a *App) attachAudio() error {
	switch {
	case a.cfg.DisableAudio:
		a.log.Println("audio disabled, using synthetic signal")
		return a.engine.Attach(newFakeSignal(44_100, a.cfg.BufferSize, a.cfg.Seed))
	case len(a.cfg.Tone) > 0:
		pb := audio.NewPlayback(0)
		src, err := audio.ToneSource(pb.SampleRate(), a.cfg.Tone...)
		if err != nil {
			return fmt.Errorf("tone: %w", err)
		}
		tap, err := pb.Start(src, a.cfg.BufferSize)
		if err != nil {
			return fmt.Errorf("tone playback: %w", err)
		}
		a.playback = pb
		a.deviceLabel = fmt.Sprintf("tone %v Hz", a.cfg.Tone)
		a.log.Printf("playing test tone %v Hz", a.cfg.Tone)
		return a.engine.Attach(tap)
	}

	capture, err := audio.NewCapture(audio.Config{
		DeviceName: a.cfg.DeviceName,
		BufferSize: a.cfg.BufferSize,
		Channels:   2,
	})
	if err != nil {
		return fmt.Errorf("audio capture: %w", err)
	}
	a.capture = capture
	if info := capture.Device(); info != nil {
		a.deviceLabel = info.Name
		a.log.Printf("audio capture started on \"%s\" @ %.0f Hz", info.Name, capture.SampleRate())
	} else {
		a.log.Printf("audio capture started @ %.0f Hz", capture.SampleRate())
	}
	return a.engine.Attach(capture)
}

// Engine exposes the engine for control surfaces such as the web server.
func (a *App) Engine() *engine.Engine { return a.engine }

// Run starts the render loop until context cancellation, a quit key or a
// closed window.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	terminal := a.cfg.Backend == "ascii"
	if terminal {
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)
	if terminal {
		a.ensureDimensions()
	}

	if a.playback != nil {
		a.playback.Resume()
		a.playing = true
	}
	a.last = time.Now()

	for {
		select {
		case <-ctx.Done():
			if terminal {
				moveCursorHome()
			}
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			if evt == inputEventQuit {
				if terminal {
					moveCursorHome()
				}
				return nil
			}
			a.handleInput(evt)
		case <-ticker.C:
			if done, err := a.frame(); done {
				if terminal {
					moveCursorHome()
				}
				return err
			}
		}
	}
}

// Close stops the engine and releases audio and window resources. Safe to
// call repeatedly.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.engine != nil {
			a.engine.Stop()
		}
		if a.playback != nil {
			a.playback.Close()
		}
		if a.capture != nil {
			a.closeErr = a.capture.Close()
		}
		if err := a.prof.Close(); err != nil && a.closeErr == nil {
			a.closeErr = err
		}
		a.closeBackends()
	})
	return a.closeErr
}

func (a *App) closeBackends() {
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.log.Printf("close renderer: %v", err)
		}
	}
	if a.view != nil {
		a.view.Close()
	}
}

func (a *App) step() error {
	if a.cfg.Backend == "ascii" {
		a.ensureDimensions()
	}
	now := time.Now()
	delta := now.Sub(a.last)
	if delta <= 0 {
		delta = time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	}
	a.last = now
	a.fps = smoothFPS(a.fps, delta)
	a.releaseKeyDrag(now)

	a.prof.beginFrame()
	sc, err := a.engine.Tick(delta)
	if err != nil {
		return err
	}
	a.prof.markSection("tick")

	err = a.draw(sc)
	a.prof.endFrame()
	return err
}

// frame runs one step and reports whether the loop must end. Draw failures
// are logged, once per distinct message, and the loop keeps going.
func (a *App) frame() (bool, error) {
	err := a.step()
	switch {
	case err == nil:
		a.drawErr = ""
		return false, nil
	case errors.Is(err, render.ErrRendererQuit), errors.Is(err, glview.ErrClosed):
		return true, nil
	case errors.Is(err, engine.ErrStopped):
		return true, err
	}
	if msg := err.Error(); msg != a.drawErr {
		a.drawErr = msg
		a.log.Printf("draw: %v", err)
	}
	return false, nil
}

// drawScene hands the scene to the active backend.
func (a *App) drawScene(sc *engine.Scene) error {
	if a.view != nil {
		err := a.view.Draw(sc, a.windowTitle(sc))
		a.prof.markSection("draw")
		return err
	}

	frame := a.renderer.Render(sc, a.fps)
	a.prof.markSection("draw")
	statusText := frame.Status
	if a.deviceLabel != "" {
		statusText = fmt.Sprintf("%s | src=%s", statusText, a.deviceLabel)
	}

	var err error
	if frame.Present != nil {
		err = frame.Present(statusText)
	} else {
		a.writeFrame(frame.Lines, statusText)
	}
	a.prof.markSection("present")
	return err
}

func (a *App) writeFrame(lines []string, status string) {
	var b strings.Builder
	b.WriteString("\x1b[H")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if a.cfg.ShowStatusBar {
		b.WriteString(statusBar(status, a.width))
	}
	fmt.Print(b.String())
}

func (a *App) windowTitle(sc *engine.Scene) string {
	src := "IDLE"
	switch {
	case sc.External:
		src = "EXT"
	case !sc.Idle:
		src = "LIVE"
	}
	return fmt.Sprintf("orbizer | %s | %s | %s | level %.2f | %.0f fps",
		strings.ToUpper(sc.ColorMode.String()), sc.Policy, src, sc.AudioLevel, a.fps)
}

func smoothFPS(prev float64, delta time.Duration) float64 {
	inst := 1 / delta.Seconds()
	if prev <= 0 {
		return inst
	}
	return prev*0.9 + inst*0.1
}

func (a *App) ensureDimensions() {
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}
	if renderHeight <= 0 {
		renderHeight = 1
	}

	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
	a.engine.Resize(w, renderHeight*2)
}

func (a *App) handleInput(evt inputEvent) {
	switch evt {
	case inputEventReset:
		a.engine.ResetSettings()
		a.log.Println("settings reset to defaults")
	case inputEventSave:
		s := a.engine.Settings()
		if err := params.Save(a.cfg.ConfigPath, s); err != nil {
			a.log.Printf("save settings: %v", err)
			return
		}
		a.log.Printf("settings saved to %s", a.cfg.ConfigPath)
	case inputEventResolutionUp, inputEventResolutionDown:
		step := resolutionStep
		if evt == inputEventResolutionDown {
			step = -step
		}
		a.engine.UpdateSettings(func(s *params.Settings) {
			s.Resolution = stepResolution(s.Resolution, step)
		})
	case inputEventDistortionUp, inputEventDistortionDown:
		step := distortionStep
		if evt == inputEventDistortionDown {
			step = -step
		}
		a.engine.UpdateSettings(func(s *params.Settings) {
			s.Distortion = clamp(s.Distortion+step, 0, maxDistortion)
		})
	case inputEventTogglePolicy:
		a.engine.TogglePolicy()
	case inputEventCycleColor:
		a.engine.CycleColorMode()
	case inputEventCyclePalette:
		if a.renderer != nil {
			next := nextOption(render.PaletteNames(), a.renderer.PaletteName())
			a.renderer.SetPalette(next)
			a.log.Printf("palette: %s", next)
		}
	case inputEventTogglePlayback:
		if a.playback == nil {
			return
		}
		if a.playing {
			a.playback.Pause()
		} else {
			a.playback.Resume()
		}
		a.playing = !a.playing
	case inputEventDragUp, inputEventDragDown, inputEventDragLeft, inputEventDragRight:
		a.keyDrag(evt, time.Now())
	}
}

// keyDrag moves a virtual pointer so terminals without mouse support can spin
// the orb.
func (a *App) keyDrag(evt inputEvent, now time.Time) {
	ms := float64(now.Sub(a.epoch)) / float64(time.Millisecond)
	if !a.dragging {
		a.dragging = true
		a.dragX, a.dragY = 0, 0
		a.engine.PointerDown(a.dragX, a.dragY, ms)
	}
	switch evt {
	case inputEventDragUp:
		a.dragY -= keyDragStep
	case inputEventDragDown:
		a.dragY += keyDragStep
	case inputEventDragLeft:
		a.dragX -= keyDragStep
	case inputEventDragRight:
		a.dragX += keyDragStep
	}
	a.engine.PointerMove(a.dragX, a.dragY, ms)
	a.lastDrag = now
}

func (a *App) releaseKeyDrag(now time.Time) {
	if a.dragging && now.Sub(a.lastDrag) > keyDragRelease {
		a.dragging = false
		a.engine.PointerUp()
	}
}

func stepResolution(current, step int) int {
	next := current + step
	if next < resolutionStep {
		next = resolutionStep
	}
	if next > params.MaxResolution {
		next = params.MaxResolution
	}
	return next
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyEvent(char, key)
			if !ok {
				continue
			}
			if evt == inputEventQuit {
				events <- inputEventQuit
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	switch key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return inputEventQuit, true
	case keyboard.KeyArrowUp:
		return inputEventDragUp, true
	case keyboard.KeyArrowDown:
		return inputEventDragDown, true
	case keyboard.KeyArrowLeft:
		return inputEventDragLeft, true
	case keyboard.KeyArrowRight:
		return inputEventDragRight, true
	case keyboard.KeySpace:
		return inputEventTogglePlayback, true
	}
	switch char {
	case 'q', 'Q':
		return inputEventQuit, true
	case 'r', 'R':
		return inputEventReset, true
	case 's', 'S':
		return inputEventSave, true
	case '+', '=':
		return inputEventResolutionUp, true
	case '-', '_':
		return inputEventResolutionDown, true
	case ']':
		return inputEventDistortionUp, true
	case '[':
		return inputEventDistortionDown, true
	case 'p', 'P':
		return inputEventTogglePolicy, true
	case 'c', 'C':
		return inputEventCycleColor, true
	case 'g', 'G':
		return inputEventCyclePalette, true
	}
	return 0, false
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	padding := width - len(text)
	return text + strings.Repeat(" ", padding)
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}

func nextOption(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, opt := range options {
		if strings.EqualFold(opt, current) {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}
