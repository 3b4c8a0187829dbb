package particles

import (
	"math"
	"testing"

	"github.com/guidoenr/orbizer/internal/vmath"
)

func TestFieldShellBounds(t *testing.T) {
	f := NewField(FieldConfig{Count: 500, MinRadius: 2, MaxRadius: 4, Seed: 7})
	if f.Len() != 500 {
		t.Fatalf("len = %d", f.Len())
	}
	for i, p := range f.Particles {
		r := vmath.V3Mag(p.Base)
		if r < 2-1e-9 || r > 4+1e-9 {
			t.Fatalf("particle %d radius %f outside shell", i, r)
		}
	}
}

func TestFieldNotClusteredInside(t *testing.T) {
	f := NewField(FieldConfig{Count: 4000, MinRadius: 1, MaxRadius: 3, Seed: 1})
	inner := 0
	for _, p := range f.Particles {
		if vmath.V3Mag(p.Base) < 2 {
			inner++
		}
	}
	// Area-uniform radius puts (4-1)/(9-1) of the points below r=2.
	share := float64(inner) / float64(f.Len())
	if math.Abs(share-3.0/8.0) > 0.04 {
		t.Fatalf("inner share = %f, want about 0.375", share)
	}
}

func TestFieldDeterministic(t *testing.T) {
	a := NewField(FieldConfig{Count: 50, Seed: 42})
	b := NewField(FieldConfig{Count: 50, Seed: 42})
	for i := range a.Particles {
		if a.Particles[i] != b.Particles[i] {
			t.Fatalf("particle %d differs for equal seeds", i)
		}
	}
}

func TestFieldJitterSmallAndBounded(t *testing.T) {
	f := NewField(FieldConfig{Count: 100, Seed: 3})
	for _, tm := range []float64{0, 1.5, 1000, 1e6} {
		for i := range f.Particles {
			d := vmath.V3Mag(vmath.V3Sub(f.Position(i, tm), f.Particles[i].Base))
			if d > 0.05*math.Sqrt(3)+1e-9 {
				t.Fatalf("t=%f particle %d drifted %f", tm, i, d)
			}
			if o := f.Opacity(i, tm); o < 0 || o > 0.8 {
				t.Fatalf("opacity %f out of range", o)
			}
			if s := f.Size(i, tm); s <= 0 {
				t.Fatalf("size %f", s)
			}
		}
	}
}

func TestEvaluateReusesStorage(t *testing.T) {
	f := NewField(FieldConfig{Count: 10})
	pts := f.Evaluate(nil, 0)
	again := f.Evaluate(pts, 1)
	if len(again) != 10 || &again[0] != &pts[0] {
		t.Fatalf("evaluate reallocated")
	}
}

func TestAmbientOrbits(t *testing.T) {
	a := NewAmbient(AmbientConfig{Count: 30, Seed: 9})
	for i, p := range a.Particles {
		r0 := math.Hypot(p.Base.X, p.Base.Z)
		for _, tm := range []float64{0, 10, 500} {
			pos := a.Position(i, tm)
			if math.Abs(math.Hypot(pos.X, pos.Z)-r0) > 1e-9 {
				t.Fatalf("mote %d left its orbit", i)
			}
			if math.Abs(pos.Y-p.Base.Y) > 0.15+1e-9 {
				t.Fatalf("mote %d bobbed too far", i)
			}
			if o := a.Opacity(i, tm); o < 0 || o > 0.5 {
				t.Fatalf("opacity %f", o)
			}
		}
	}
	if p0, p1 := a.Position(0, 0), a.Position(0, 20); p0 == p1 {
		t.Fatalf("ambient layer is static")
	}
}
