package orb

import (
	"math"
	"testing"

	"github.com/guidoenr/orbizer/internal/noise"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/vmath"
)

func TestSubdivisionLevel(t *testing.T) {
	cases := map[int]int{69: 8, 4: 1, 8: 1, 16: 2, 32: 4, 0: 1}
	for res, want := range cases {
		if got := SubdivisionLevel(res); got != want {
			t.Fatalf("SubdivisionLevel(%d) = %d, want %d", res, got, want)
		}
	}
}

func TestGeometryCounts(t *testing.T) {
	for level := 1; level <= 4; level++ {
		g := NewGeometry(level, 1)
		n := level + 1
		if len(g.Positions) != 10*n*n+2 {
			t.Fatalf("level %d: %d vertices, want %d", level, len(g.Positions), 10*n*n+2)
		}
		if g.TriangleCount() != 20*n*n {
			t.Fatalf("level %d: %d triangles, want %d", level, g.TriangleCount(), 20*n*n)
		}
		if len(g.Edges) != 30*n*n {
			t.Fatalf("level %d: %d edges, want %d", level, len(g.Edges), 30*n*n)
		}
	}
}

func TestGeometryOnSphereAndOutward(t *testing.T) {
	g := NewGeometry(3, 2)
	for i, p := range g.Positions {
		if math.Abs(vmath.V3Mag(p)-2) > 1e-9 {
			t.Fatalf("vertex %d off sphere: %f", i, vmath.V3Mag(p))
		}
	}
	for i := 0; i < len(g.Indices); i += 3 {
		a, b, c := g.Positions[g.Indices[i]], g.Positions[g.Indices[i+1]], g.Positions[g.Indices[i+2]]
		n := vmath.V3Cross(vmath.V3Sub(b, a), vmath.V3Sub(c, a))
		if vmath.V3Dot(n, a) <= 0 {
			t.Fatalf("triangle %d winds inward", i/3)
		}
	}
}

func TestZeroAudioDisplacement(t *testing.T) {
	pos := vmath.Vec3{X: 0.3, Y: -1.1, Z: 0.7}
	for _, tm := range []float64{0, 0.5, 3.25, 100} {
		want := noise.Noise3(pos.X*0.5, pos.Y*0.5, pos.Z*0.5+tm*0.3) * 0.2 * 1.7
		if got := DisplacementAmount(pos, tm, 0, 1.7); got != want {
			t.Fatalf("t=%f displacement %f, want %f", tm, got, want)
		}
	}
	if got := DisplacementAmount(pos, 1, 0.5, 0); got != 0 {
		t.Fatalf("zero distortion displaced by %f", got)
	}
}

func TestZeroAudioGlow(t *testing.T) {
	base := Color{R: 1, G: 0.5, B: 0.25}
	view := vmath.Vec3{Z: 1}
	normal := vmath.V3Normalize(vmath.Vec3{X: 1, Z: 1})
	c, alpha := GlowColor(base, view, normal, 0)
	f := Fresnel(view, normal, 3)
	if math.Abs(alpha-f) > 1e-12 || math.Abs(c.R-f) > 1e-12 {
		t.Fatalf("glow at zero audio alpha=%f color=%+v, want fresnel %f", alpha, c, f)
	}
	if GlowScale(0) != 1 {
		t.Fatalf("glow shell scaled without audio")
	}
	if _, a := GlowColor(base, view, vmath.Vec3{Z: -1}, 0.4); a != 0 {
		t.Fatalf("back face contributed alpha %f", a)
	}
}

func TestDegenerateNormal(t *testing.T) {
	view := vmath.Vec3{Z: 1}
	for _, n := range []vmath.Vec3{{}, {X: math.NaN()}, {Y: math.Inf(1)}} {
		if f := Fresnel(view, n, 2); f != 0 {
			t.Fatalf("fresnel(%+v) = %f", n, f)
		}
		c, a := SurfaceColor(Color{R: 1, G: 1, B: 1}, view, n, 1, 0.5)
		if math.IsNaN(c.R) || math.IsNaN(c.G) || math.IsNaN(c.B) || math.IsNaN(a) {
			t.Fatalf("NaN leaked for normal %+v: %+v %f", n, c, a)
		}
		pos := vmath.Vec3{X: 0.3, Y: -0.4, Z: 0.8}
		if got := Displace(pos, n, 1, 0.5, 2); got != pos {
			t.Fatalf("displace with normal %+v moved vertex to %+v", n, got)
		}
	}
}

func TestFresnelRim(t *testing.T) {
	view := vmath.Vec3{Z: 1}
	if f := Fresnel(view, vmath.Vec3{Z: 1}, 2); f != 0 {
		t.Fatalf("facing fresnel = %f", f)
	}
	if f := Fresnel(view, vmath.Vec3{X: 1}, 2); math.Abs(f-1) > 1e-12 {
		t.Fatalf("grazing fresnel = %f", f)
	}
}

func TestOrbRebuildReleases(t *testing.T) {
	backend := NewMemoryBackend()
	s := params.Defaults()
	o, err := New(Config{Backend: backend}, s)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if backend.Live() != 3 {
		t.Fatalf("live = %d, want 3", backend.Live())
	}
	g0, s0, _ := o.Handles()

	if rebuilt, err := o.Configure(s); err != nil || rebuilt {
		t.Fatalf("unchanged settings rebuilt=%v err=%v", rebuilt, err)
	}

	s.Resolution = 69
	if rebuilt, err := o.Configure(s); err != nil || !rebuilt {
		t.Fatalf("resolution change rebuilt=%v err=%v", rebuilt, err)
	}
	g1, s1, _ := o.Handles()
	if g1 == g0 || s1 == s0 {
		t.Fatalf("handles not replaced")
	}
	if o.Geometry().Level != 8 {
		t.Fatalf("level = %d, want 8", o.Geometry().Level)
	}
	if backend.Live() != 3 {
		t.Fatalf("old resources leaked: live = %d", backend.Live())
	}

	s.Distortion = 0.5
	if rebuilt, _ := o.Configure(s); !rebuilt {
		t.Fatalf("distortion change did not rebuild")
	}

	backend.Close()
	s.Resolution = 16
	if _, err := o.Configure(s); err == nil {
		t.Fatalf("expected rebuild error")
	}
	if o.Geometry().Level != 8 || backend.Live() != 3 {
		t.Fatalf("failed rebuild disturbed current mesh")
	}

	o.Release()
	o.Release()
	if backend.Live() != 0 {
		t.Fatalf("live after release = %d", backend.Live())
	}
}

func TestOrbUpdateZeroAudio(t *testing.T) {
	o, err := New(Config{Radius: 1}, params.Defaults())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cam := vmath.DefaultCamera(1)
	o.Update(2, 0, Color{R: 1, G: 1, B: 1}, vmath.RotationFromEuler(vmath.Euler{}), vmath.Vec3{}, cam)
	g := o.Geometry()
	for i, p := range g.Positions {
		want := 1 + DisplacementAmount(p, 2, 0, 1)
		if math.Abs(vmath.V3Mag(o.Displaced[i])-want) > 1e-9 {
			t.Fatalf("vertex %d radius %f, want %f", i, vmath.V3Mag(o.Displaced[i]), want)
		}
		if math.Abs(vmath.V3Mag(o.GlowPositions[i])-1) > 1e-9 {
			t.Fatalf("glow vertex %d scaled without audio", i)
		}
		if math.IsNaN(o.Alphas[i]) || o.Alphas[i] < 0 {
			t.Fatalf("alpha %d = %f", i, o.Alphas[i])
		}
	}
	if o.Uniforms().GlowScale != 1 {
		t.Fatalf("glow scale uniform = %f", o.Uniforms().GlowScale)
	}
}

func TestProgramsComplete(t *testing.T) {
	for _, p := range []ProgramSource{SurfaceProgram(), GlowProgram()} {
		if p.Vertex == "" || p.Fragment == "" || p.Fragment[len(p.Fragment)-1] != 0 {
			t.Fatalf("program %s incomplete", p.Name)
		}
	}
}
