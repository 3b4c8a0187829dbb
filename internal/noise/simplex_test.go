package noise

import (
	"math"
	"testing"
)

func TestNoise3Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		x, y, z := float64(i)*0.37, float64(i)*-0.21, float64(i)*0.93
		if Noise3(x, y, z) != Noise3(x, y, z) {
			t.Fatalf("noise not deterministic at (%f,%f,%f)", x, y, z)
		}
	}
}

func TestNoise3Range(t *testing.T) {
	minV, maxV := 1.0, -1.0
	for i := 0; i < 20000; i++ {
		x := float64(i%37)*0.173 - 3
		y := float64(i%53)*0.119 + 1
		z := float64(i)*0.0071 - 20
		v := Noise3(x, y, z)
		if v < -1 || v > 1 || math.IsNaN(v) {
			t.Fatalf("noise out of range: %f", v)
		}
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if maxV-minV < 0.5 {
		t.Fatalf("noise suspiciously flat: min=%f max=%f", minV, maxV)
	}
}

func TestNoise3ZeroAtLatticeOrigin(t *testing.T) {
	if v := Noise3(0, 0, 0); v != 0 {
		t.Fatalf("noise at origin = %f want 0", v)
	}
}

func TestNoise3Continuous(t *testing.T) {
	const eps = 1e-4
	for i := 0; i < 500; i++ {
		x := float64(i) * 0.0137
		y := math.Sin(float64(i)) * 4
		z := float64(i) * -0.031
		a := Noise3(x, y, z)
		b := Noise3(x+eps, y+eps, z+eps)
		if math.Abs(a-b) > 0.01 {
			t.Fatalf("noise jump %f at (%f,%f,%f)", math.Abs(a-b), x, y, z)
		}
	}
}
