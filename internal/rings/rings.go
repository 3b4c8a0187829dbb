// Package rings draws the 2D frequency ring overlay.
package rings

import "math"

// Point is a 2D position on the ring surface, in pixels.
type Point struct {
	X, Y float64
}

// Layout describes how rings are sampled from a frequency frame.
type Layout struct {
	NumRings    int
	NumPoints   int
	BaseRadius  float64
	Center      Point
	Sensitivity float64
	Reactivity  float64
}

// RingBaseRadius returns the undisturbed radius of ring r.
func RingBaseRadius(base float64, ring int) float64 {
	return base * (0.7 + float64(ring)*0.15)
}

// bandRange returns the frequency bins [start, end) feeding ring r.
func bandRange(bins, ring, numRings int) (int, int) {
	div := float64(numRings) * 1.5
	start := int(math.Floor(float64(ring*bins) / div))
	end := int(math.Floor(float64((ring+1)*bins) / div))
	return start, end
}

// SampleValue returns the normalized magnitude in [0, 1] of vertex i on ring
// r. A ring whose band has fewer bins than points yields 0.
func SampleValue(frame []uint8, ring, numRings, numPoints, i int) float64 {
	if numRings <= 0 || numPoints <= 0 {
		return 0
	}
	start, end := bandRange(len(frame), ring, numRings)
	width := end - start
	if width <= 0 {
		return 0
	}
	segment := width / numPoints
	if segment == 0 {
		return 0
	}
	sum := 0
	for j := 0; j < segment; j++ {
		idx := start + (i*segment+j)%width
		if idx < len(frame) {
			sum += int(frame[idx])
		}
	}
	return float64(sum) / float64(segment*255)
}

// RingPoints computes the displaced vertices of ring r into dst.
func RingPoints(dst []Point, frame []uint8, ring int, l Layout) []Point {
	dst = dst[:0]
	base := RingBaseRadius(l.BaseRadius, ring)
	for i := 0; i < l.NumPoints; i++ {
		value := SampleValue(frame, ring, l.NumRings, l.NumPoints, i)
		adjusted := value * (l.Sensitivity / 5) * l.Reactivity
		radius := base * (1 + adjusted*0.5)
		angle := float64(i) / float64(l.NumPoints) * 2 * math.Pi
		dst = append(dst, Point{
			X: l.Center.X + math.Cos(angle)*radius,
			Y: l.Center.Y + math.Sin(angle)*radius,
		})
	}
	return dst
}
