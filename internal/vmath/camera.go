package vmath

import "math"

// Camera is a perspective camera looking down -Z from Position.
type Camera struct {
	FOV      float64 // vertical field of view, degrees
	Aspect   float64 // width / height
	Near     float64
	Position Vec3
}

// DefaultCamera matches the scene setup the engine renders with.
func DefaultCamera(aspect float64) Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return Camera{FOV: 75, Aspect: aspect, Near: 0.1, Position: Vec3{Z: 5}}
}

// Project maps a world point to normalized device coordinates. ok is false for
// points behind the near plane. depth is the view-space distance.
func (c Camera) Project(p Vec3) (x, y, depth float64, ok bool) {
	view := V3Sub(p, c.Position)
	depth = -view.Z
	if depth <= c.Near {
		return 0, 0, depth, false
	}
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	x = (view.X * f / c.Aspect) / depth
	y = (view.Y * f) / depth
	return x, y, depth, true
}

// ViewDir returns the unit direction from p towards the camera.
func (c Camera) ViewDir(p Vec3) Vec3 {
	return V3Normalize(V3Sub(c.Position, p))
}

// Perspective returns a column-major 4x4 projection matrix for GPU upload.
func (c Camera) Perspective(far float64) [16]float32 {
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	nf := 1 / (c.Near - far)
	return [16]float32{
		float32(f / c.Aspect), 0, 0, 0,
		0, float32(f), 0, 0,
		0, 0, float32((far + c.Near) * nf), -1,
		0, 0, float32(2 * far * c.Near * nf), 0,
	}
}

// Matrix4 converts the rotation into a column-major 4x4 matrix.
func (r Rotation) Matrix4() [16]float32 {
	return [16]float32{
		float32(r[0][0]), float32(r[1][0]), float32(r[2][0]), 0,
		float32(r[0][1]), float32(r[1][1]), float32(r[2][1]), 0,
		float32(r[0][2]), float32(r[1][2]), float32(r[2][2]), 0,
		0, 0, 0, 1,
	}
}
