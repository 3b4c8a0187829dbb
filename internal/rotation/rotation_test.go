package rotation

import (
	"math"
	"testing"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) < eps }

func TestDragSetsVelocity(t *testing.T) {
	c := NewController(Config{})
	c.PointerDown(100, 100, 0)
	c.PointerMove(110, 106, 16)

	st := c.State()
	if !near(st.Velocity.X, 0.375, 1e-12) || !near(st.Velocity.Y, 0.625, 1e-12) {
		t.Fatalf("velocity = %+v, want (0.375, 0.625)", st.Velocity)
	}
	if !near(st.Orientation.Pitch, 0.06, 1e-12) || !near(st.Orientation.Yaw, 0.1, 1e-12) {
		t.Fatalf("orientation after drag = %+v", st.Orientation)
	}

	c.PointerUp()
	if c.Phase() != Inertial {
		t.Fatalf("phase after release = %v", c.Phase())
	}
	c.Tick(1, 0, 1)
	st2 := c.State()
	if !near(st2.Orientation.Pitch-st.Orientation.Pitch, 0.003, 1e-12) {
		t.Fatalf("first inertial pitch step = %f, want 0.003", st2.Orientation.Pitch-st.Orientation.Pitch)
	}
	if !near(st2.Velocity.X, 0.35625, 1e-12) || !near(st2.Velocity.Y, 0.59375, 1e-12) {
		t.Fatalf("damped velocity = %+v", st2.Velocity)
	}
}

func TestZeroDtKeepsVelocity(t *testing.T) {
	c := NewController(Config{})
	c.PointerDown(0, 0, 5)
	c.PointerMove(10, 0, 10)
	c.PointerMove(20, 0, 10)
	if v := c.State().Velocity; !near(v.Y, 2, 1e-12) {
		t.Fatalf("velocity overwritten on zero dt: %+v", v)
	}
}

func TestInertialDecayReachesIdle(t *testing.T) {
	c := NewController(Config{})
	c.PointerDown(100, 100, 0)
	c.PointerMove(110, 106, 16)
	c.PointerUp()
	v0 := c.State().Velocity
	kMax := int(math.Ceil(math.Log(1e-3/v0.Mag()) / math.Log(0.95)))

	for k := 1; k <= kMax; k++ {
		c.Tick(0, 0, 0)
		if k < kMax {
			want := v0.Mag() * math.Pow(0.95, float64(k))
			if c.Phase() != Inertial {
				t.Fatalf("left inertial early at tick %d", k)
			}
			if !near(c.State().Velocity.Mag(), want, 1e-9) {
				t.Fatalf("tick %d |v| = %g, want %g", k, c.State().Velocity.Mag(), want)
			}
		}
	}
	if c.Phase() != Idle {
		t.Fatalf("phase after %d ticks = %v, want idle", kMax, c.Phase())
	}
	if v := c.State().Velocity; v.X != 0 || v.Y != 0 {
		t.Fatalf("velocity not snapped to zero: %+v", v)
	}
}

func TestAutoRotationAlwaysApplies(t *testing.T) {
	c := NewController(Config{})
	c.Tick(2, 0.5, 2)
	st := c.State()
	if !near(st.Orientation.Yaw, 0.005*2*2, 1e-12) || !near(st.Orientation.Roll, 0.002*2*2, 1e-12) {
		t.Fatalf("auto rotation = %+v", st.Orientation)
	}

	c.PointerDown(0, 0, 0)
	c.PointerMove(10, 0, 10)
	yaw := c.State().Orientation.Yaw
	c.Tick(1, 0, 1)
	if !near(c.State().Orientation.Yaw-yaw, 0.005, 1e-12) {
		t.Fatalf("auto yaw not added while dragging")
	}
}

func TestPointerDownResetsVelocity(t *testing.T) {
	c := NewController(Config{})
	c.PointerDown(0, 0, 0)
	c.PointerMove(50, 50, 10)
	c.PointerUp()
	c.Tick(1, 0, 1)
	c.PointerDown(0, 0, 100)
	if c.Phase() != Dragging || c.State().Velocity != (Velocity{}) {
		t.Fatalf("pointer down did not restart drag: %v %+v", c.Phase(), c.State().Velocity)
	}
}

func TestSpringBounceReturnsHome(t *testing.T) {
	c := NewController(Config{Policy: SpringBounce, Bound: 1})
	c.PointerDown(0, 0, 0)
	c.PointerMove(80, -40, 16)
	st := c.State()
	if !near(st.Offset.X, 0.8, 1e-12) || !near(st.Offset.Y, 0.4, 1e-12) {
		t.Fatalf("offset = %+v", st.Offset)
	}
	if st.Orientation.Pitch != 0 || st.Orientation.Yaw != 0 {
		t.Fatalf("spring drag rotated the orb: %+v", st.Orientation)
	}
	c.PointerUp()
	for i := 0; i < 2000 && c.Phase() == Inertial; i++ {
		c.Tick(0, 0, 0)
		o := c.State().Offset
		if math.Abs(o.X) > 1+1e-9 || math.Abs(o.Y) > 1+1e-9 {
			t.Fatalf("offset escaped bounds: %+v", o)
		}
	}
	if c.Phase() != Idle || c.State().Offset != (Offset{}) {
		t.Fatalf("spring did not settle: %v %+v", c.Phase(), c.State().Offset)
	}
}

func TestBounce(t *testing.T) {
	p, v := bounce(1.2, 2, 1, 0.5)
	if !near(p, 0.8, 1e-12) || v != -1 {
		t.Fatalf("bounce = %f %f", p, v)
	}
	p, v = bounce(0.3, 2, 1, 0.5)
	if p != 0.3 || v != 2 {
		t.Fatalf("in-bounds bounce changed state")
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{RotationInertia, SpringBounce} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("round trip %v: %v %v", p, got, err)
		}
	}
	if _, err := ParsePolicy("wobble"); err == nil {
		t.Fatalf("expected error")
	}
}
