// Package rotation turns pointer drags into orb orientation.
package rotation

import (
	"fmt"
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/guidoenr/orbizer/internal/vmath"
)

const (
	dragGain      = 0.01
	inertiaGain   = 0.8
	damping       = 0.95
	restThreshold = 1e-3

	autoYaw  = 0.005
	autoRoll = 0.002
)

// Phase is the drag state machine position.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Inertial
)

func (p Phase) String() string {
	switch p {
	case Dragging:
		return "dragging"
	case Inertial:
		return "inertial"
	default:
		return "idle"
	}
}

// Policy selects how a drag is turned into motion.
type Policy int

const (
	// RotationInertia rotates the orb while dragging and keeps spinning with
	// damped velocity after release.
	RotationInertia Policy = iota
	// SpringBounce moves the orb off center while dragging and springs it
	// back on release, bouncing off the bounds.
	SpringBounce
)

func (p Policy) String() string {
	if p == SpringBounce {
		return "spring"
	}
	return "inertia"
}

// ParsePolicy accepts the names produced by Policy.String.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "inertia":
		return RotationInertia, nil
	case "spring":
		return SpringBounce, nil
	}
	return RotationInertia, fmt.Errorf("unknown drag policy %q", name)
}

// Velocity is the drag angular velocity in pixels per millisecond. X drives
// pitch and is taken from vertical motion; Y drives yaw from horizontal motion.
type Velocity struct {
	X, Y float64
}

// Mag returns the velocity magnitude.
func (v Velocity) Mag() float64 { return math.Hypot(v.X, v.Y) }

// Offset is a displacement of the orb from the scene center, in world units.
type Offset struct {
	X, Y float64
}

// State is everything the renderer reads from the controller.
type State struct {
	Orientation vmath.Euler
	Velocity    Velocity
	Offset      Offset
	OffsetVel   Offset
}

// Config configures a Controller.
type Config struct {
	Policy Policy
	// Bound limits the spring offset on each axis.
	Bound float64
	// Restitution is the share of speed kept after hitting a bound.
	Restitution float64
}

// Controller owns RotationState. It is not safe for concurrent use; the
// engine feeds it pointer events on the render goroutine.
type Controller struct {
	cfg    Config
	phase  Phase
	state  State
	spring harmonica.Spring

	lastX, lastY, lastT float64
}

// NewController returns an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Bound <= 0 {
		cfg.Bound = 1.5
	}
	if cfg.Restitution <= 0 || cfg.Restitution > 1 {
		cfg.Restitution = 0.6
	}
	return &Controller{
		cfg:    cfg,
		spring: harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.5),
	}
}

// Phase returns the current state machine phase.
func (c *Controller) Phase() Phase { return c.phase }

// State returns a copy of the rotation state.
func (c *Controller) State() State { return c.state }

// Policy returns the active drag policy.
func (c *Controller) Policy() Policy { return c.cfg.Policy }

// SetPolicy switches the drag policy. Any motion in progress is stopped but
// orientation is kept.
func (c *Controller) SetPolicy(p Policy) {
	if p == c.cfg.Policy {
		return
	}
	c.cfg.Policy = p
	c.state.Velocity = Velocity{}
	c.state.OffsetVel = Offset{}
	if c.phase == Inertial {
		c.phase = Idle
	}
	if p == RotationInertia {
		// Inertia never moves the orb off center.
		c.state.Offset = Offset{}
	}
}

// PointerDown starts a drag at (x, y), t in milliseconds.
func (c *Controller) PointerDown(x, y, t float64) {
	c.phase = Dragging
	c.lastX, c.lastY, c.lastT = x, y, t
	c.state.Velocity = Velocity{}
	c.state.OffsetVel = Offset{}
}

// PointerMove continues a drag. Moves outside a drag are ignored.
func (c *Controller) PointerMove(x, y, t float64) {
	if c.phase != Dragging {
		return
	}
	dx, dy := x-c.lastX, y-c.lastY
	dt := t - c.lastT

	switch c.cfg.Policy {
	case SpringBounce:
		c.state.Offset.X = vmath.Clamp(c.state.Offset.X+dx*dragGain, -c.cfg.Bound, c.cfg.Bound)
		c.state.Offset.Y = vmath.Clamp(c.state.Offset.Y-dy*dragGain, -c.cfg.Bound, c.cfg.Bound)
	default:
		c.state.Orientation.Pitch += dy * dragGain
		c.state.Orientation.Yaw += dx * dragGain
	}
	if dt > 0 {
		c.state.Velocity = Velocity{X: dy / dt, Y: dx / dt}
	}
	c.lastX, c.lastY, c.lastT = x, y, t
}

// PointerUp ends a drag and hands over to the release motion.
func (c *Controller) PointerUp() {
	if c.phase != Dragging {
		return
	}
	c.phase = Inertial
	if c.cfg.Policy == SpringBounce {
		// px/ms to world units per second
		c.state.OffsetVel = Offset{
			X: c.state.Velocity.Y * dragGain * 1000,
			Y: -c.state.Velocity.X * dragGain * 1000,
		}
		c.state.Velocity = Velocity{}
	}
}

// Tick advances one frame. The automatic rotation is applied in every phase.
func (c *Controller) Tick(rotationSpeed, audioLevel, reactivity float64) {
	if c.phase == Inertial {
		switch c.cfg.Policy {
		case SpringBounce:
			c.tickSpring()
		default:
			c.tickInertia()
		}
	}

	boost := rotationSpeed * (1 + audioLevel*reactivity)
	c.state.Orientation.Yaw += autoYaw * boost
	c.state.Orientation.Roll += autoRoll * boost
}

func (c *Controller) tickInertia() {
	v := &c.state.Velocity
	if v.Mag() >= restThreshold {
		c.state.Orientation.Pitch += v.X * dragGain * inertiaGain
		c.state.Orientation.Yaw += v.Y * dragGain * inertiaGain
		v.X *= damping
		v.Y *= damping
	}
	if v.Mag() < restThreshold {
		*v = Velocity{}
		c.phase = Idle
	}
}

func (c *Controller) tickSpring() {
	s := &c.state
	s.Offset.X, s.OffsetVel.X = c.spring.Update(s.Offset.X, s.OffsetVel.X, 0)
	s.Offset.Y, s.OffsetVel.Y = c.spring.Update(s.Offset.Y, s.OffsetVel.Y, 0)
	s.Offset.X, s.OffsetVel.X = bounce(s.Offset.X, s.OffsetVel.X, c.cfg.Bound, c.cfg.Restitution)
	s.Offset.Y, s.OffsetVel.Y = bounce(s.Offset.Y, s.OffsetVel.Y, c.cfg.Bound, c.cfg.Restitution)

	if math.Hypot(s.Offset.X, s.Offset.Y) < restThreshold && math.Hypot(s.OffsetVel.X, s.OffsetVel.Y) < restThreshold {
		s.Offset = Offset{}
		s.OffsetVel = Offset{}
		c.phase = Idle
	}
}

// bounce reflects pos back inside [-bound, bound], scaling the speed by
// restitution.
func bounce(pos, vel, bound, restitution float64) (float64, float64) {
	switch {
	case pos > bound:
		return math.Max(-bound, 2*bound-pos), -vel * restitution
	case pos < -bound:
		return math.Min(bound, -2*bound-pos), -vel * restitution
	}
	return pos, vel
}
