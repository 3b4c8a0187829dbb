package render

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/guidoenr/orbizer/internal/engine"
)

// ErrRendererQuit is returned by Frame.Present when the user closed the window.
var ErrRendererQuit = errors.New("renderer quit")

type qualityMode string

const (
	qualityHigh     qualityMode = "high"
	qualityBalanced qualityMode = "balanced"
	qualityEco      qualityMode = "eco"
)

var qualityModeNames = []string{
	string(qualityHigh),
	string(qualityBalanced),
	string(qualityEco),
}

// QualityModeNames returns the supported quality modes.
func QualityModeNames() []string {
	out := make([]string, len(qualityModeNames))
	copy(out, qualityModeNames)
	sort.Strings(out)
	return out
}

func parseQualityMode(name string) qualityMode {
	switch strings.ToLower(name) {
	case "eco", "low", "pi":
		return qualityEco
	case "high", "full", "max":
		return qualityHigh
	default:
		return qualityBalanced
	}
}

type backendMode int

const (
	backendASCII backendMode = iota
	backendSDL
)

// InputSink receives pointer and viewport events from windowed backends.
// *engine.Engine implements it.
type InputSink interface {
	PointerDown(x, y, t float64)
	PointerMove(x, y, t float64)
	PointerUp()
	Resize(width, height int)
}

// Config configures a Renderer.
type Config struct {
	Width   int
	Height  int
	Palette string
	Quality string
	UseANSI bool
	// Backend is "ascii" or "sdl".
	Backend string
	Input   InputSink
	Log     *log.Logger
}

// Renderer turns engine scenes into terminal text or an SDL window.
type Renderer struct {
	width         int
	height        int
	palette       Ramp
	paletteName   string
	quality       qualityMode
	useANSI       bool
	mode          backendMode
	input         InputSink
	log           *log.Logger
	raster        *raster
	proj          []projected
	statusBuilder strings.Builder
	sdl           *sdlState
}

// Frame contains the rendered ASCII lines and optional status text. Windowed
// backends draw in Present instead.
type Frame struct {
	Lines   []string
	Status  string
	Present func(status string) error
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer.
func New(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", cfg.Width, cfg.Height)
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}

	r := &Renderer{
		width:   cfg.Width,
		height:  cfg.Height,
		useANSI: cfg.UseANSI,
		input:   cfg.Input,
		log:     cfg.Log,
	}
	r.SetQuality(cfg.Quality)
	r.SetPalette(cfg.Palette)

	switch strings.ToLower(cfg.Backend) {
	case "", "ascii", "term", "terminal":
		r.raster = newRaster(cfg.Width, cfg.Height, 2)
	case "sdl":
		if err := r.initSDL(cfg.Width, cfg.Height); err != nil {
			return nil, fmt.Errorf("init sdl: %w", err)
		}
		r.raster = newRaster(cfg.Width, cfg.Height, 1)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return r, nil
}

// SetPalette selects the glyph ramp used for brightness.
func (r *Renderer) SetPalette(name string) {
	if _, ok := palettes[name]; !ok {
		name = "default"
	}
	r.palette = Palette(name)
	r.paletteName = name
}

// Resize updates the framebuffer dimensions.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 || (width == r.width && height == r.height) {
		return
	}
	r.width, r.height = width, height
	r.raster.resize(width, height)
	if r.mode == backendSDL {
		r.resizeSDL()
	}
}

// Size returns the framebuffer dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Windowed reports whether frames are presented in a window.
func (r *Renderer) Windowed() bool { return r.mode == backendSDL && r.windowedSDL() }

func (r *Renderer) PaletteName() string { return r.paletteName }
func (r *Renderer) QualityName() string { return string(r.quality) }

// SetQuality updates renderer quality preset.
func (r *Renderer) SetQuality(name string) {
	r.quality = parseQualityMode(name)
}

// Close releases windowed resources.
func (r *Renderer) Close() error {
	return r.closeSDL()
}

// Render draws one scene.
func (r *Renderer) Render(sc *engine.Scene, fps float64) Frame {
	if r.width <= 0 || r.height <= 0 || sc == nil {
		return Frame{}
	}
	r.proj = r.raster.drawScene(sc, r.quality, r.proj)
	if r.mode == backendSDL {
		return r.renderSDL(sc, fps)
	}
	return Frame{
		Lines:  r.encodeLines(),
		Status: r.buildStatus(sc, fps),
	}
}

// encodeLines converts the raster into colored glyph rows, one row per job.
func (r *Renderer) encodeLines() []string {
	width, height := r.raster.w, r.raster.h
	lines := make([]string, height)
	useANSI := r.useANSI

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				var builder strings.Builder
				builder.Grow(width * 8)
				lastColor := -1
				for x := 0; x < width; x++ {
					char, fg := r.cell(x, y)
					if useANSI {
						if fg != lastColor {
							builder.WriteString(colorCode(fg))
							lastColor = fg
						}
					}
					builder.WriteRune(char)
				}
				if useANSI {
					builder.WriteString(resetANSI)
				}
				lines[y] = builder.String()
			}
		}()
	}

	for y := 0; y < height; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
	return lines
}

func (r *Renderer) cell(x, y int) (rune, int) {
	cr, cg, cb := r.raster.at(x, y)
	brightness := max(cr, cg, cb)
	glyph := r.palette.Glyph(brightness)
	if !r.useANSI || brightness == 0 {
		return glyph, 15
	}
	// Normalize so dim cells keep their hue; the glyph carries brightness.
	return glyph, rgbToANSI(cr/brightness, cg/brightness, cb/brightness)
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// Grayscale palette for low saturation/contrast
	if absf(r-g) < 0.02 && absf(g-b) < 0.02 {
		gray := int(clampFloat(r*23+0.5, 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (r *Renderer) buildStatus(sc *engine.Scene, fps float64) string {
	builder := &r.statusBuilder
	builder.Reset()
	builder.Grow(160)
	builder.WriteString(strings.ToUpper(sc.ColorMode.String()))
	builder.WriteString(" | drag=")
	builder.WriteString(sc.Policy.String())
	builder.WriteString(" res=")
	builder.WriteString(strconv.Itoa(sc.Settings.Resolution))
	builder.WriteString(" dist ")
	appendFloat(builder, sc.Settings.Distortion, 2)
	builder.WriteString(" sens ")
	appendFloat(builder, sc.Settings.Sensitivity, 1)
	switch {
	case sc.External:
		builder.WriteString(" | EXT")
	case sc.Idle:
		builder.WriteString(" | IDLE")
	}
	builder.WriteString(" | level ")
	appendFloat(builder, sc.AudioLevel, 2)
	builder.WriteString(" bass ")
	appendFloat(builder, sc.Features.Bass, 2)
	builder.WriteString(" mid ")
	appendFloat(builder, sc.Features.Mid, 2)
	builder.WriteString(" treble ")
	appendFloat(builder, sc.Features.Treble, 2)
	builder.WriteString(" fps ")
	appendFloat(builder, fps, 1)
	return builder.String()
}

func appendFloat(builder *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b := strconv.AppendFloat(buf[:0], value, 'f', precision, 64)
	builder.Write(b)
}
