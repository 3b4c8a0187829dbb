package glview

import "github.com/guidoenr/orbizer/internal/vmath"

// flatten packs vectors as consecutive float32 xyz triples for upload.
func flatten(vs []vmath.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, float32(v.X), float32(v.Y), float32(v.Z))
	}
	return out
}
