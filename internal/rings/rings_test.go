package rings

import (
	"math"
	"testing"
)

func filled(n int, v uint8) []uint8 {
	f := make([]uint8, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func radii(pts []Point, c Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = math.Hypot(p.X-c.X, p.Y-c.Y)
	}
	return out
}

func TestRingRadiusBounds(t *testing.T) {
	l := Layout{NumRings: 3, NumPoints: 180, BaseRadius: 100, Center: Point{225, 225}, Sensitivity: 5, Reactivity: 2}
	for ring := 0; ring < 3; ring++ {
		base := RingBaseRadius(100, ring)
		for _, r := range radii(RingPoints(nil, filled(1024, 0), ring, l), l.Center) {
			if math.Abs(r-base) > 1e-9 {
				t.Fatalf("ring %d silent radius %f, want %f", ring, r, base)
			}
		}
		for _, r := range radii(RingPoints(nil, filled(1024, 255), ring, l), l.Center) {
			if math.Abs(r-base*2) > 1e-9 {
				t.Fatalf("ring %d full radius %f, want %f", ring, r, base*2)
			}
		}
	}
}

func TestRingBaseRadius(t *testing.T) {
	if got := RingBaseRadius(100, 0); math.Abs(got-70) > 1e-12 {
		t.Fatalf("ring 0 = %f", got)
	}
	if got := RingBaseRadius(100, 2); math.Abs(got-100) > 1e-12 {
		t.Fatalf("ring 2 = %f", got)
	}
}

func TestBandRange(t *testing.T) {
	s, e := bandRange(1024, 0, 3)
	if s != 0 || e != 227 {
		t.Fatalf("ring 0 band = [%d,%d)", s, e)
	}
	s, e = bandRange(1024, 2, 3)
	if s != 455 || e != 682 {
		t.Fatalf("ring 2 band = [%d,%d)", s, e)
	}
}

func TestZeroSegmentGuard(t *testing.T) {
	frame := filled(64, 255)
	for i := 0; i < 180; i++ {
		if v := SampleValue(frame, 1, 3, 180, i); v != 0 {
			t.Fatalf("point %d value %f, want 0", i, v)
		}
	}
	if v := SampleValue(nil, 0, 3, 180, 0); v != 0 {
		t.Fatalf("empty frame value %f", v)
	}
}

func TestSampleValueWraps(t *testing.T) {
	// 12 bins in ring 0 of a 3-ring layout over 54 bins, 4 points: segment 3.
	frame := make([]uint8, 54)
	for i := range frame {
		frame[i] = uint8(i * 4)
	}
	got := SampleValue(frame, 0, 3, 4, 1)
	want := float64(frame[3]+frame[4]+frame[5]) / (3 * 255)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("value = %f, want %f", got, want)
	}
}

func TestVisualizerFixedSquare(t *testing.T) {
	v := New(Config{})
	w, h := v.Size()
	if w != 450 || h != 450 {
		t.Fatalf("surface %dx%d", w, h)
	}
	img := v.Draw(filled(1024, 128), 5, 1)
	if b := img.Bounds(); b.Dx() != 450 || b.Dy() != 450 {
		t.Fatalf("image bounds %v", b)
	}
	if len(v.Rings()) != 3 || len(v.Rings()[0]) != 180 {
		t.Fatalf("ring sampling shape wrong")
	}
	lit := false
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("nothing drawn")
	}
}

func TestLineWidthDecreasesOutward(t *testing.T) {
	if !(LineWidth(0, 3) > LineWidth(1, 3) && LineWidth(1, 3) > LineWidth(2, 3)) {
		t.Fatalf("line widths not decreasing")
	}
}
