package analyzer

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

const idleSeed = 1337

var idleNoise = opensimplex.New(idleSeed)

// IdleFrame synthesizes a deterministic frame from wall-clock time so the
// visuals keep breathing while no audio is available. The same (t, bins)
// always yields the same frame. dst is reused when large enough.
func IdleFrame(dst Frame, t float64, bins int) Frame {
	if bins <= 0 {
		bins = defaultFFTSize / 2
	}
	if cap(dst.Frequency) < bins {
		dst.Frequency = make(FrequencyFrame, bins)
	}
	if cap(dst.TimeDomain) < bins {
		dst.TimeDomain = make(TimeDomainFrame, bins)
	}
	dst.Frequency = dst.Frequency[:bins]
	dst.TimeDomain = dst.TimeDomain[:bins]

	breath := 0.5 + 0.5*math.Sin(t*1.2)
	for i := range dst.Frequency {
		pos := float64(i) / float64(bins)
		tilt := 1 - pos*0.7
		wave := 0.5 + 0.5*math.Sin(t*2.0+float64(i)*0.05)
		ripple := (idleNoise.Eval2(float64(i)*0.03, t*0.4) + 1) * 0.5
		v := tilt * (0.18*breath + 0.12*wave + 0.1*ripple)
		dst.Frequency[i] = toByte(255 * clamp(v, 0, 1))
	}
	for i := range dst.TimeDomain {
		dst.TimeDomain[i] = toByte(128 + 24*breath*math.Sin(t*4+float64(i)*0.1))
	}
	return dst
}
