package particles

import (
	"math"
	"math/rand/v2"

	"github.com/guidoenr/orbizer/internal/vmath"
)

// AmbientConfig configures an Ambient layer.
type AmbientConfig struct {
	Count      int
	Radius     float64
	Height     float64
	MaxOpacity float64
	Seed       uint64
}

// Ambient is a sparse ring of motes orbiting the Y axis. It ignores audio and
// keeps moving when no signal is attached.
type Ambient struct {
	cfg       AmbientConfig
	Particles []Particle
}

// NewAmbient places the motes on a flattened band around the orb.
func NewAmbient(cfg AmbientConfig) *Ambient {
	if cfg.Count <= 0 {
		cfg.Count = 120
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 3.5
	}
	if cfg.Height <= 0 {
		cfg.Height = 1.2
	}
	if cfg.MaxOpacity <= 0 || cfg.MaxOpacity > 1 {
		cfg.MaxOpacity = 0.5
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0xa3b1))

	a := &Ambient{cfg: cfg, Particles: make([]Particle, cfg.Count)}
	for i := range a.Particles {
		angle := rng.Float64() * 2 * math.Pi
		r := cfg.Radius * (0.8 + 0.4*rng.Float64())
		a.Particles[i] = Particle{
			Base: vmath.Vec3{
				X: r * math.Cos(angle),
				Y: (rng.Float64()*2 - 1) * cfg.Height,
				Z: r * math.Sin(angle),
			},
			Phase: rng.Float64() * 2 * math.Pi,
			Speed: 0.3 + 0.7*rng.Float64(),
			Size:  0.03 + rng.Float64()*0.03,
		}
	}
	return a
}

// Len returns the population size.
func (a *Ambient) Len() int { return len(a.Particles) }

// Position returns mote i at time t: its base point carried around the Y axis
// with a gentle vertical bob.
func (a *Ambient) Position(i int, t float64) vmath.Vec3 {
	p := a.Particles[i]
	r := math.Hypot(p.Base.X, p.Base.Z)
	angle := math.Atan2(p.Base.Z, p.Base.X) + t*p.Speed*0.05
	return vmath.Vec3{
		X: r * math.Cos(angle),
		Y: p.Base.Y + 0.15*math.Sin(t*p.Speed*0.5+p.Phase),
		Z: r * math.Sin(angle),
	}
}

// Opacity returns the twinkle of mote i, never above MaxOpacity.
func (a *Ambient) Opacity(i int, t float64) float64 {
	p := a.Particles[i]
	o := 0.3 + 0.2*math.Sin(t*p.Speed+p.Phase)
	return math.Min(o, a.cfg.MaxOpacity)
}

// Evaluate writes every mote at time t into dst, reusing its storage.
func (a *Ambient) Evaluate(dst []Point, t float64) []Point {
	dst = dst[:0]
	for i, p := range a.Particles {
		dst = append(dst, Point{Pos: a.Position(i, t), Size: p.Size, Opacity: a.Opacity(i, t)})
	}
	return dst
}
