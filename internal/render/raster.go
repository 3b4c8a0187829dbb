package render

import (
	"image"
	"math"

	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/particles"
	"github.com/guidoenr/orbizer/internal/vmath"
)

// raster is a float RGB framebuffer with a depth buffer. Both the terminal
// and the SDL backend draw the scene into one before encoding it.
type raster struct {
	w, h  int
	rgb   []float64
	depth []float64
	// cellAspect is the height/width ratio of one raster cell. Terminal cells
	// are about twice as tall as they are wide.
	cellAspect float64
}

func newRaster(w, h int, cellAspect float64) *raster {
	r := &raster{cellAspect: cellAspect}
	r.resize(w, h)
	return r
}

func (r *raster) resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == r.w && h == r.h {
		return
	}
	r.w, r.h = w, h
	r.rgb = make([]float64, w*h*3)
	r.depth = make([]float64, w*h)
}

func (r *raster) clear() {
	for i := range r.rgb {
		r.rgb[i] = 0
	}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
}

// add blends c*a additively into a cell, ignoring depth.
func (r *raster) add(x, y int, c orb.Color, a float64) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h || !(a > 0) {
		return
	}
	i := (y*r.w + x) * 3
	r.rgb[i] += c.R * a
	r.rgb[i+1] += c.G * a
	r.rgb[i+2] += c.B * a
}

// plot writes c*a when depth is nearer than what the cell holds.
func (r *raster) plot(x, y int, depth float64, c orb.Color, a float64) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h || !(a > 0) {
		return
	}
	di := y*r.w + x
	if depth >= r.depth[di] {
		return
	}
	r.depth[di] = depth
	i := di * 3
	r.rgb[i] = math.Max(r.rgb[i], c.R*a)
	r.rgb[i+1] = math.Max(r.rgb[i+1], c.G*a)
	r.rgb[i+2] = math.Max(r.rgb[i+2], c.B*a)
}

// at returns the clamped color of a cell.
func (r *raster) at(x, y int) (float64, float64, float64) {
	i := (y*r.w + x) * 3
	return clamp01(r.rgb[i]), clamp01(r.rgb[i+1]), clamp01(r.rgb[i+2])
}

// toScreen maps normalized device coordinates onto the raster.
func (r *raster) toScreen(x, y float64) (int, int) {
	sx := (x + 1) * 0.5 * float64(r.w)
	sy := (1 - y) * 0.5 * float64(r.h)
	return int(math.Floor(sx)), int(math.Floor(sy))
}

type projected struct {
	x, y  int
	depth float64
	ok    bool
}

func (r *raster) project(cam vmath.Camera, p vmath.Vec3) projected {
	nx, ny, depth, ok := cam.Project(p)
	if !ok {
		return projected{}
	}
	x, y := r.toScreen(nx, ny)
	return projected{x: x, y: y, depth: depth, ok: true}
}

// line draws a depth-tested segment with colors interpolated between ends.
func (r *raster) line(a, b projected, ca, cb orb.Color, aa, ab float64) {
	if !a.ok || !b.ok {
		return
	}
	dx := b.x - a.x
	dy := b.y - a.y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		r.plot(a.x, a.y, a.depth, ca, aa)
		return
	}
	// Guard against degenerate projections near the camera plane.
	if steps > 4*(r.w+r.h) {
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x := a.x + int(math.Round(float64(dx)*t))
		y := a.y + int(math.Round(float64(dy)*t))
		depth := a.depth + (b.depth-a.depth)*t
		c := orb.Color{
			R: ca.R + (cb.R-ca.R)*t,
			G: ca.G + (cb.G-ca.G)*t,
			B: ca.B + (cb.B-ca.B)*t,
		}
		r.plot(x, y, depth, c, aa+(ab-aa)*t)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var (
	particleTint = orb.Color{R: 0.55, G: 0.7, B: 1}
	ambientTint  = orb.Color{R: 0.9, G: 0.85, B: 1}
)

// drawScene rasterizes particles, the glow shell, the orb wireframe and the
// frequency rings, back to front.
func (r *raster) drawScene(sc *engine.Scene, q qualityMode, proj []projected) []projected {
	r.clear()
	cam := sc.Camera

	r.drawPoints(cam, sc.Ambient, ambientTint, 0.6, q == qualityEco)
	r.drawPoints(cam, sc.Particles, particleTint, 0.8, q == qualityEco)

	o := sc.Orb
	if o == nil || o.Geometry() == nil {
		return proj
	}
	if q != qualityEco {
		glowGain := 0.35
		if q == qualityBalanced {
			glowGain = 0.25
		}
		for i, p := range o.GlowPositions {
			pp := r.project(cam, p)
			if pp.ok {
				r.add(pp.x, pp.y, o.GlowColors[i], o.GlowAlphas[i]*glowGain)
			}
		}
	}

	if cap(proj) < len(o.Displaced) {
		proj = make([]projected, len(o.Displaced))
	}
	proj = proj[:len(o.Displaced)]
	for i, p := range o.Displaced {
		proj[i] = r.project(cam, p)
	}
	// Wire intensity keeps a floor so the mesh stays visible where the
	// fresnel rim fades towards the viewer.
	floor := 0.18
	for _, e := range o.Geometry().Edges {
		a, b := e[0], e[1]
		ca := wireColor(o.Colors[a], sc.BaseColor, floor)
		cb := wireColor(o.Colors[b], sc.BaseColor, floor)
		r.line(proj[a], proj[b], ca, cb, 1, 1)
	}

	r.drawRings(sc)
	return proj
}

func wireColor(c, base orb.Color, floor float64) orb.Color {
	return orb.Color{
		R: c.R + base.R*floor,
		G: c.G + base.G*floor,
		B: c.B + base.B*floor,
	}
}

func (r *raster) drawPoints(cam vmath.Camera, pts []particles.Point, tint orb.Color, gain float64, sparse bool) {
	for i, p := range pts {
		if sparse && i%2 == 1 {
			continue
		}
		pp := r.project(cam, p.Pos)
		if pp.ok {
			r.plot(pp.x, pp.y, pp.depth, tint, p.Opacity*gain)
		}
	}
}

// ringRect returns the square region the ring surface maps onto, in raster
// cells. It stays square on screen whatever the raster shape.
func (r *raster) ringRect(ringSize int) (x0, y0, side float64) {
	side = math.Min(float64(r.w), float64(r.h)*r.cellAspect) * 0.9
	x0 = (float64(r.w) - side) / 2
	y0 = (float64(r.h) - side/r.cellAspect) / 2
	return x0, y0, side
}

// drawRings overlays the ring surface. A rasterized ring image is composited
// when present, otherwise the ring vertices are plotted directly.
func (r *raster) drawRings(sc *engine.Scene) {
	if sc.RingSize <= 0 {
		return
	}
	x0, y0, side := r.ringRect(sc.RingSize)
	scale := side / float64(sc.RingSize)

	if sc.RingImage != nil {
		r.blitRings(sc.RingImage, x0, y0, side)
		return
	}
	hues := sc.ColorMode.RingHues()
	for ring, pts := range sc.Rings {
		h := hues[ring%len(hues)].Inner
		c := orb.Color{R: h.R, G: h.G, B: h.B}
		for _, p := range pts {
			x := int(x0 + p.X*scale)
			y := int(y0 + p.Y*scale/r.cellAspect)
			r.add(x, y, c, 0.9)
		}
	}
}

func (r *raster) blitRings(img *image.RGBA, x0, y0, side float64) {
	b := img.Bounds()
	rows := side / r.cellAspect
	for y := 0; y < int(rows); y++ {
		sy := b.Min.Y + int(float64(y)/rows*float64(b.Dy()))
		for x := 0; x < int(side); x++ {
			sx := b.Min.X + int(float64(x)/side*float64(b.Dx()))
			px := img.RGBAAt(sx, sy)
			if px.A == 0 {
				continue
			}
			// Premultiplied alpha, so channels are already weighted.
			c := orb.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
			r.add(int(x0)+x, int(y0)+y, c, 1)
		}
	}
}
