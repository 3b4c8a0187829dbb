package orb

import (
	"math"

	"github.com/guidoenr/orbizer/internal/vmath"
)

// Geometry is an icosahedral sphere. It is immutable once built: a change of
// subdivision level produces a new Geometry.
type Geometry struct {
	Level     int
	Radius    float64
	Positions []vmath.Vec3
	Normals   []vmath.Vec3
	Indices   []uint32
	Edges     [][2]uint32
}

// SubdivisionLevel maps the resolution setting onto a discrete subdivision
// level, never below 1.
func SubdivisionLevel(resolution int) int {
	level := resolution / 8
	if level < 1 {
		return 1
	}
	return level
}

var icoT = (1 + math.Sqrt(5)) / 2

var icoVertices = [12]vmath.Vec3{
	{X: -1, Y: icoT}, {X: 1, Y: icoT}, {X: -1, Y: -icoT}, {X: 1, Y: -icoT},
	{Y: -1, Z: icoT}, {Y: 1, Z: icoT}, {Y: -1, Z: -icoT}, {Y: 1, Z: -icoT},
	{X: icoT, Z: -1}, {X: icoT, Z: 1}, {X: -icoT, Z: -1}, {X: -icoT, Z: 1},
}

// Faces wind counter-clockwise when seen from outside.
var icoFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

type vertexKey [3]int64

// NewGeometry splits every icosahedron edge into level+1 segments, projects the
// grid onto a sphere of the given radius and shares coincident vertices.
func NewGeometry(level int, radius float64) *Geometry {
	if level < 1 {
		level = 1
	}
	if radius <= 0 {
		radius = 1
	}
	n := level + 1
	g := &Geometry{
		Level:     level,
		Radius:    radius,
		Positions: make([]vmath.Vec3, 0, 10*n*n+2),
		Normals:   make([]vmath.Vec3, 0, 10*n*n+2),
		Indices:   make([]uint32, 0, 20*n*n*3),
	}

	lookup := make(map[vertexKey]uint32, 10*n*n+2)
	addVertex := func(p vmath.Vec3) uint32 {
		unit := vmath.V3Normalize(p)
		key := vertexKey{
			int64(math.Round(unit.X * 1e6)),
			int64(math.Round(unit.Y * 1e6)),
			int64(math.Round(unit.Z * 1e6)),
		}
		if idx, ok := lookup[key]; ok {
			return idx
		}
		idx := uint32(len(g.Positions))
		g.Positions = append(g.Positions, vmath.V3Scale(unit, radius))
		g.Normals = append(g.Normals, unit)
		lookup[key] = idx
		return idx
	}

	grid := make([][]uint32, n+1)
	for _, face := range icoFaces {
		a, b, c := icoVertices[face[0]], icoVertices[face[1]], icoVertices[face[2]]
		ab := vmath.V3Sub(b, a)
		ac := vmath.V3Sub(c, a)
		for i := 0; i <= n; i++ {
			grid[i] = grid[i][:0]
			for j := 0; j <= n-i; j++ {
				p := vmath.V3Add(a, vmath.V3Add(
					vmath.V3Scale(ab, float64(i)/float64(n)),
					vmath.V3Scale(ac, float64(j)/float64(n)),
				))
				grid[i] = append(grid[i], addVertex(p))
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n-i; j++ {
				g.Indices = append(g.Indices, grid[i][j], grid[i+1][j], grid[i][j+1])
				if j < n-i-1 {
					g.Indices = append(g.Indices, grid[i+1][j], grid[i+1][j+1], grid[i][j+1])
				}
			}
		}
	}

	g.Edges = uniqueEdges(g.Indices)
	return g
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int { return len(g.Indices) / 3 }

func uniqueEdges(indices []uint32) [][2]uint32 {
	seen := make(map[[2]uint32]struct{}, len(indices))
	edges := make([][2]uint32, 0, len(indices)/2)
	add := func(a, b uint32) {
		if a > b {
			a, b = b, a
		}
		e := [2]uint32{a, b}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
	}
	for i := 0; i+2 < len(indices); i += 3 {
		add(indices[i], indices[i+1])
		add(indices[i+1], indices[i+2])
		add(indices[i+2], indices[i])
	}
	return edges
}
