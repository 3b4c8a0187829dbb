package orb

import (
	"math"

	"github.com/guidoenr/orbizer/internal/noise"
	"github.com/guidoenr/orbizer/internal/vmath"
)

// Color is a linear RGB triple, components nominally in [0, 1].
type Color struct {
	R, G, B float64
}

// Scale multiplies every component by s.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// DisplacementAmount is the signed distance a vertex moves along its normal.
func DisplacementAmount(pos vmath.Vec3, time, audioLevel, distortion float64) float64 {
	slowTime := time * 0.3
	n := noise.Noise3(pos.X*0.5, pos.Y*0.5, pos.Z*0.5+slowTime)
	return n * 0.2 * distortion * (1 + audioLevel)
}

// Displace moves pos along normal by the noise field. A zero or non-finite
// normal leaves the vertex in place.
func Displace(pos, normal vmath.Vec3, time, audioLevel, distortion float64) vmath.Vec3 {
	n := vmath.V3Normalize(normal)
	if n == (vmath.Vec3{}) {
		return pos
	}
	return vmath.V3Add(pos, vmath.V3Scale(n, DisplacementAmount(pos, time, audioLevel, distortion)))
}

// Fresnel returns (1 - max(0, dot(view, normal)))^exponent. Degenerate inputs
// (zero-length or non-finite vectors) give 0 instead of NaN.
func Fresnel(viewDir, normal vmath.Vec3, exponent float64) float64 {
	n := vmath.V3Normalize(normal)
	v := vmath.V3Normalize(viewDir)
	if n == (vmath.Vec3{}) || v == (vmath.Vec3{}) {
		return 0
	}
	d := vmath.Clamp(vmath.V3Dot(v, n), -1, 1)
	f := math.Pow(1-math.Max(0, d), exponent)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Pulse is the slow brightness oscillation applied to the surface.
func Pulse(time float64) float64 {
	return 0.8 + 0.2*math.Sin(time*2)
}

// SurfaceColor evaluates the emissive surface law for one fragment.
func SurfaceColor(base Color, viewDir, normal vmath.Vec3, time, audioLevel float64) (Color, float64) {
	fresnel := Fresnel(viewDir, normal, 2+audioLevel*2)
	color := base.Scale(fresnel * Pulse(time) * (1 + audioLevel*0.8))
	alpha := fresnel * (0.7 - audioLevel*0.3)
	return color, alpha
}

// GlowScale is the uniform outward scale of the glow shell.
func GlowScale(audioLevel float64) float64 {
	return 1 + audioLevel*0.2
}

// GlowColor evaluates the additive glow shell. Back faces (normal pointing
// away from the viewer) are culled and contribute nothing.
func GlowColor(base Color, viewDir, normal vmath.Vec3, audioLevel float64) (Color, float64) {
	if vmath.V3Dot(viewDir, normal) < 0 {
		return Color{}, 0
	}
	fresnel := Fresnel(viewDir, normal, 3+audioLevel*3)
	audioFactor := 1 + audioLevel
	intensity := fresnel * audioFactor
	return base.Scale(intensity), vmath.Clamp01(intensity)
}
