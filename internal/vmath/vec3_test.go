package vmath

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNormalizeZero(t *testing.T) {
	if got := V3Normalize(Vec3{}); got != (Vec3{}) {
		t.Fatalf("normalize zero = %+v", got)
	}
	n := V3Normalize(Vec3{3, 4, 0})
	if !near(n.X, 0.6) || !near(n.Y, 0.8) {
		t.Fatalf("normalize = %+v", n)
	}
}

func TestRotationIdentity(t *testing.T) {
	v := Vec3{1, 2, 3}
	got := RotationFromEuler(Euler{}).Apply(v)
	if !near(got.X, 1) || !near(got.Y, 2) || !near(got.Z, 3) {
		t.Fatalf("identity rotation changed vector: %+v", got)
	}
}

func TestRotationYaw(t *testing.T) {
	got := RotationFromEuler(Euler{Yaw: math.Pi / 2}).Apply(Vec3{X: 1})
	if !near(got.X, 0) || !near(got.Z, -1) {
		t.Fatalf("yaw 90 of +X = %+v, want -Z", got)
	}
}

func TestRotationPreservesLength(t *testing.T) {
	r := RotationFromEuler(Euler{Pitch: 0.3, Yaw: -1.2, Roll: 2.5})
	v := Vec3{0.3, -2, 1.1}
	if !near(V3Mag(r.Apply(v)), V3Mag(v)) {
		t.Fatalf("rotation changed length")
	}
}

func TestCameraProject(t *testing.T) {
	c := DefaultCamera(2)
	x, y, depth, ok := c.Project(Vec3{})
	if !ok || x != 0 || y != 0 || depth != 5 {
		t.Fatalf("origin projection x=%f y=%f depth=%f ok=%v", x, y, depth, ok)
	}
	if _, _, _, ok := c.Project(Vec3{Z: 6}); ok {
		t.Fatalf("point behind camera should not project")
	}
	xa, _, _, _ := DefaultCamera(1).Project(Vec3{X: 1})
	xb, _, _, _ := c.Project(Vec3{X: 1})
	if !near(xa, xb*2) {
		t.Fatalf("aspect not applied: %f vs %f", xa, xb)
	}
}
