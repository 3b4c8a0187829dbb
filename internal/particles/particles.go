// Package particles holds the two decorative point layers drawn around the orb.
// Positions are closed-form functions of time so frame-rate jitter cannot make
// them drift.
package particles

import (
	"math"
	"math/rand/v2"

	"github.com/guidoenr/orbizer/internal/vmath"
)

// Particle is one point's fixed record. Nothing is created or destroyed after
// construction.
type Particle struct {
	Base  vmath.Vec3
	Phase float64
	Speed float64
	Size  float64
}

// Point is a particle evaluated at a time.
type Point struct {
	Pos     vmath.Vec3
	Size    float64
	Opacity float64
}

// FieldConfig configures a Field.
type FieldConfig struct {
	Count      int
	MinRadius  float64
	MaxRadius  float64
	MaxOpacity float64
	Jitter     float64
	Seed       uint64
}

// Field is the shell of particles surrounding the scene.
type Field struct {
	cfg       FieldConfig
	Particles []Particle
}

// NewField places cfg.Count particles between MinRadius and MaxRadius. The
// radius uses a square-root transform so points do not cluster at the inner
// edge.
func NewField(cfg FieldConfig) *Field {
	if cfg.Count <= 0 {
		cfg.Count = 1500
	}
	if cfg.MinRadius <= 0 {
		cfg.MinRadius = 3
	}
	if cfg.MaxRadius <= cfg.MinRadius {
		cfg.MaxRadius = cfg.MinRadius + 5
	}
	if cfg.MaxOpacity <= 0 || cfg.MaxOpacity > 1 {
		cfg.MaxOpacity = 0.8
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = 0.05
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x5eed))

	f := &Field{cfg: cfg, Particles: make([]Particle, cfg.Count)}
	lo2, hi2 := cfg.MinRadius*cfg.MinRadius, cfg.MaxRadius*cfg.MaxRadius
	for i := range f.Particles {
		r := math.Sqrt(rng.Float64()*(hi2-lo2) + lo2)
		f.Particles[i] = Particle{
			Base:  vmath.V3Scale(randomDirection(rng), r),
			Phase: rng.Float64() * 2 * math.Pi,
			Speed: 0.5 + rng.Float64(),
			Size:  0.02 + rng.Float64()*0.04,
		}
	}
	return f
}

// randomDirection returns a unit vector uniform on the sphere.
func randomDirection(rng *rand.Rand) vmath.Vec3 {
	z := rng.Float64()*2 - 1
	theta := rng.Float64() * 2 * math.Pi
	s := math.Sqrt(1 - z*z)
	return vmath.Vec3{X: s * math.Cos(theta), Y: s * math.Sin(theta), Z: z}
}

// Len returns the population size.
func (f *Field) Len() int { return len(f.Particles) }

// Position returns particle i at time t.
func (f *Field) Position(i int, t float64) vmath.Vec3 {
	p := f.Particles[i]
	a := t*p.Speed + p.Phase
	j := f.cfg.Jitter
	return vmath.V3Add(p.Base, vmath.Vec3{
		X: j * math.Sin(a),
		Y: j * math.Cos(t*p.Speed*0.8+p.Phase),
		Z: j * math.Sin(t*p.Speed*0.6+p.Phase*1.3),
	})
}

// Size returns the pulsing point size of particle i.
func (f *Field) Size(i int, t float64) float64 {
	p := f.Particles[i]
	return p.Size * (1 + 0.3*math.Sin(t*p.Speed*2+p.Phase))
}

// Opacity returns the pulsing opacity of particle i, never above MaxOpacity.
func (f *Field) Opacity(i int, t float64) float64 {
	p := f.Particles[i]
	o := 0.5 + 0.5*math.Sin(t*p.Speed*1.5+p.Phase)
	return math.Min(o, f.cfg.MaxOpacity)
}

// Evaluate writes every particle at time t into dst, reusing its storage.
func (f *Field) Evaluate(dst []Point, t float64) []Point {
	dst = dst[:0]
	for i := range f.Particles {
		dst = append(dst, Point{Pos: f.Position(i, t), Size: f.Size(i, t), Opacity: f.Opacity(i, t)})
	}
	return dst
}
