package orb

import (
	"fmt"
	"io"
	"log"

	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/vmath"
)

// Config configures an Orb.
type Config struct {
	Backend Backend
	Radius  float64
	Log     *log.Logger
}

// Uniforms are the per-frame values a GPU backend binds before drawing.
type Uniforms struct {
	Model      [16]float32
	Projection [16]float32
	CameraPos  [3]float32
	BaseColor  [3]float32
	Time       float32
	AudioLevel float32
	GlowScale  float32
}

// Orb owns the sphere geometry and both surface programs, plus the per-vertex
// results of the last Update for renderers that shade on the CPU.
type Orb struct {
	cfg Config

	geom        *Geometry
	geomHandle  Handle
	surfaceProg Handle
	glowProg    Handle
	distortion  float64
	resolution  int

	// Model-space displaced positions, uploaded by GPU backends.
	Local []vmath.Vec3

	// Surface pass, world space.
	Displaced []vmath.Vec3
	Normals   []vmath.Vec3
	Colors    []Color
	Alphas    []float64

	// Glow pass, world space.
	GlowPositions []vmath.Vec3
	GlowColors    []Color
	GlowAlphas    []float64

	uniforms Uniforms
}

// New builds an orb for the given settings.
func New(cfg Config, s params.Settings) (*Orb, error) {
	if cfg.Backend == nil {
		cfg.Backend = NewMemoryBackend()
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 1.5
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	o := &Orb{cfg: cfg}
	if _, err := o.Configure(s); err != nil {
		return nil, err
	}
	return o, nil
}

// Geometry returns the current mesh.
func (o *Orb) Geometry() *Geometry { return o.geom }

// Handles returns the backend handles of the mesh and the two programs.
func (o *Orb) Handles() (geometry, surface, glow Handle) {
	return o.geomHandle, o.surfaceProg, o.glowProg
}

// Configure applies settings. When resolution or distortion changed the mesh
// and programs are rebuilt and the previous resources released. On failure
// the previous resources stay in use.
func (o *Orb) Configure(s params.Settings) (bool, error) {
	if o.geom != nil && s.Resolution == o.resolution && s.Distortion == o.distortion {
		return false, nil
	}
	level := SubdivisionLevel(s.Resolution)
	geom := NewGeometry(level, o.cfg.Radius)

	b := o.cfg.Backend
	gh, err := b.UploadGeometry(geom)
	if err != nil {
		return false, fmt.Errorf("orb rebuild: %w", err)
	}
	sp, err := b.CompileProgram(SurfaceProgram())
	if err != nil {
		b.Release(gh)
		return false, fmt.Errorf("orb rebuild: %w", err)
	}
	gp, err := b.CompileProgram(GlowProgram())
	if err != nil {
		b.Release(gh)
		b.Release(sp)
		return false, fmt.Errorf("orb rebuild: %w", err)
	}

	if o.geom != nil {
		b.Release(o.geomHandle)
		b.Release(o.surfaceProg)
		b.Release(o.glowProg)
	}
	o.geom, o.geomHandle, o.surfaceProg, o.glowProg = geom, gh, sp, gp
	o.resolution, o.distortion = s.Resolution, s.Distortion

	n := len(geom.Positions)
	o.Local = make([]vmath.Vec3, n)
	o.Displaced = make([]vmath.Vec3, n)
	o.Normals = make([]vmath.Vec3, n)
	o.Colors = make([]Color, n)
	o.Alphas = make([]float64, n)
	o.GlowPositions = make([]vmath.Vec3, n)
	o.GlowColors = make([]Color, n)
	o.GlowAlphas = make([]float64, n)
	o.cfg.Log.Printf("orb: level %d, %d vertices, %d triangles", level, n, geom.TriangleCount())
	return true, nil
}

// Update displaces and shades every vertex for one frame. rot orients the orb,
// offset moves it off the scene center and cam supplies view directions and
// the projection.
func (o *Orb) Update(time, audioLevel float64, base Color, rot vmath.Rotation, offset vmath.Vec3, cam vmath.Camera) {
	g := o.geom
	glowScale := GlowScale(audioLevel)
	for i, p := range g.Positions {
		n := g.Normals[i]
		local := Displace(p, n, time, audioLevel, o.distortion)
		world := vmath.V3Add(rot.Apply(local), offset)
		o.Local[i] = local
		wn := rot.Apply(n)
		o.Displaced[i] = world
		o.Normals[i] = wn
		o.Colors[i], o.Alphas[i] = SurfaceColor(base, cam.ViewDir(world), wn, time, audioLevel)

		shell := vmath.V3Add(rot.Apply(vmath.V3Scale(p, glowScale)), offset)
		o.GlowPositions[i] = shell
		o.GlowColors[i], o.GlowAlphas[i] = GlowColor(base, cam.ViewDir(shell), wn, audioLevel)
	}

	model := rot.Matrix4()
	model[12], model[13], model[14] = float32(offset.X), float32(offset.Y), float32(offset.Z)
	o.uniforms = Uniforms{
		Model:      model,
		Projection: cam.Perspective(100),
		CameraPos:  [3]float32{float32(cam.Position.X), float32(cam.Position.Y), float32(cam.Position.Z)},
		BaseColor:  [3]float32{float32(base.R), float32(base.G), float32(base.B)},
		Time:       float32(time),
		AudioLevel: float32(audioLevel),
		GlowScale:  float32(glowScale),
	}
}

// Uniforms returns the values computed by the last Update.
func (o *Orb) Uniforms() Uniforms { return o.uniforms }

// Release frees all backend resources. Calling it twice is harmless.
func (o *Orb) Release() {
	if o.geom == nil {
		return
	}
	b := o.cfg.Backend
	b.Release(o.geomHandle)
	b.Release(o.surfaceProg)
	b.Release(o.glowProg)
	o.geom = nil
}
