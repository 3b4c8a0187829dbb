package rings

import (
	"image"
	"io"
	"log"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tfriedel6/canvas"
	"github.com/tfriedel6/canvas/backend/softwarebackend"
)

// HuePair is the inner and outer gradient stop of one ring.
type HuePair struct {
	Inner colorful.Color
	Outer colorful.Color
}

// DefaultHues returns the ring palette: ring 0 is the brightest pair and
// later rings fade towards deeper hues.
func DefaultHues() []HuePair {
	return HuesFrom(190)
}

// HuesFrom builds a palette starting at the given hue in degrees.
func HuesFrom(hue float64) []HuePair {
	pairs := make([]HuePair, 6)
	for i := range pairs {
		h := hue + float64(i)*40
		v := 1 - float64(i)*0.12
		inner := colorful.Hsv(wrapHue(h), 0.55, v)
		outer := colorful.Hsv(wrapHue(h+60), 0.85, v*0.8)
		pairs[i] = HuePair{Inner: inner, Outer: inner.BlendLab(outer, 0.7).Clamped()}
	}
	return pairs
}

func wrapHue(h float64) float64 {
	for h >= 360 {
		h -= 360
	}
	for h < 0 {
		h += 360
	}
	return h
}

// Config configures a Visualizer.
type Config struct {
	// Size is the side of the square surface in pixels.
	Size       int
	NumRings   int
	NumPoints  int
	BaseRadius float64
	Blur       float64
	Hues       []HuePair
	Log        *log.Logger
}

// Visualizer renders rings onto a fixed square surface that never follows the
// host viewport, so rings always stay circular.
type Visualizer struct {
	cfg     Config
	backend *softwarebackend.SoftwareBackend
	cv      *canvas.Canvas
	rings   [][]Point
}

// New allocates the drawing surface.
func New(cfg Config) *Visualizer {
	if cfg.Size <= 0 {
		cfg.Size = 450
	}
	if cfg.NumRings <= 0 {
		cfg.NumRings = 3
	}
	if cfg.NumPoints <= 0 {
		cfg.NumPoints = 180
	}
	if cfg.BaseRadius <= 0 {
		cfg.BaseRadius = float64(cfg.Size) * 0.25
	}
	if cfg.Blur <= 0 {
		cfg.Blur = 15
	}
	if len(cfg.Hues) == 0 {
		cfg.Hues = DefaultHues()
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	backend := softwarebackend.New(cfg.Size, cfg.Size)
	v := &Visualizer{
		cfg:     cfg,
		backend: backend,
		cv:      canvas.New(backend),
		rings:   make([][]Point, cfg.NumRings),
	}
	for i := range v.rings {
		v.rings[i] = make([]Point, 0, cfg.NumPoints)
	}
	return v
}

// Size returns the surface dimensions. Both are always equal.
func (v *Visualizer) Size() (int, int) { return v.cfg.Size, v.cfg.Size }

// Layout returns the sampling layout for the given tuning values.
func (v *Visualizer) Layout(sensitivity, reactivity float64) Layout {
	half := float64(v.cfg.Size) / 2
	return Layout{
		NumRings:    v.cfg.NumRings,
		NumPoints:   v.cfg.NumPoints,
		BaseRadius:  v.cfg.BaseRadius,
		Center:      Point{X: half, Y: half},
		Sensitivity: sensitivity,
		Reactivity:  reactivity,
	}
}

// SetHues swaps the ring palette.
func (v *Visualizer) SetHues(h []HuePair) {
	if len(h) > 0 {
		v.cfg.Hues = h
	}
}

// Update samples every ring from frame without drawing.
func (v *Visualizer) Update(frame []uint8, sensitivity, reactivity float64) [][]Point {
	l := v.Layout(sensitivity, reactivity)
	for r := range v.rings {
		v.rings[r] = RingPoints(v.rings[r], frame, r, l)
	}
	return v.rings
}

// Rings returns the vertices computed by the last Update or Draw.
func (v *Visualizer) Rings() [][]Point { return v.rings }

// LineWidth returns the stroke width of ring r; inner rings are thicker.
func LineWidth(ring, numRings int) float64 {
	return 1 + float64(numRings-ring)*0.75
}

// Draw samples and strokes every ring and returns the surface. The returned
// image is reused by the next call.
func (v *Visualizer) Draw(frame []uint8, sensitivity, reactivity float64) *image.RGBA {
	v.Update(frame, sensitivity, reactivity)
	size := float64(v.cfg.Size)
	half := size / 2
	cv := v.cv

	cv.ClearRect(0, 0, size, size)
	cv.SetShadowBlur(v.cfg.Blur)
	for r, pts := range v.rings {
		if len(pts) == 0 {
			continue
		}
		hue := v.cfg.Hues[r%len(v.cfg.Hues)]
		base := RingBaseRadius(v.cfg.BaseRadius, r)

		grad := cv.CreateRadialGradient(half, half, base*0.5, half, half, base*1.5)
		grad.AddColorStop(0, hue.Inner)
		grad.AddColorStop(1, hue.Outer)

		cv.SetStrokeStyle(grad)
		cv.SetShadowColor(hue.Inner)
		cv.SetLineWidth(LineWidth(r, v.cfg.NumRings))

		cv.BeginPath()
		cv.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			cv.LineTo(p.X, p.Y)
		}
		cv.ClosePath()
		cv.Stroke()
	}
	cv.SetShadowBlur(0)
	return v.backend.Image
}
