package analyzer

// FrequencyFrame holds byte magnitudes ordered from low to high frequency.
type FrequencyFrame []uint8

// TimeDomainFrame holds raw waveform bytes centered at 128.
type TimeDomainFrame []uint8

// Frame is one analysis window. Slices are owned by the producer and are only
// valid until the next call that produced them.
type Frame struct {
	Frequency  FrequencyFrame
	TimeDomain TimeDomainFrame
}

// Mean returns the arithmetic mean of the bins, 0 for an empty frame.
func (f FrequencyFrame) Mean() float64 {
	if len(f) == 0 {
		return 0
	}
	sum := 0
	for _, v := range f {
		sum += int(v)
	}
	return float64(sum) / float64(len(f))
}

// AudioLevel derives the scalar level that drives every audio-reactive
// parameter. It depends on the current frame only.
func AudioLevel(freq FrequencyFrame, sensitivity float64) float64 {
	level := freq.Mean() / 255 * (sensitivity / 5)
	if level < 0 {
		return 0
	}
	return level
}

// Resample maps src onto exactly n bins by nearest-index lookup, reusing dst
// when it has capacity.
func Resample(dst, src []uint8, n int) []uint8 {
	if cap(dst) < n {
		dst = make([]uint8, n)
	}
	dst = dst[:n]
	if len(src) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return dst
	}
	if len(src) == n {
		copy(dst, src)
		return dst
	}
	for i := range dst {
		dst[i] = src[i*len(src)/n]
	}
	return dst
}
