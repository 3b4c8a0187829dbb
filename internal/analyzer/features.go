package analyzer

import "math"

// Features summarizes a frequency frame for status displays.
type Features struct {
	Level  float64 `json:"level"`
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
	Peak   float64 `json:"peak"`
	Idle   bool    `json:"idle"`
}

// Summarize reads band energies out of a byte frequency frame whose bins span
// 0..sampleRate/2.
func Summarize(freq FrequencyFrame, sampleRate, sensitivity float64) Features {
	if len(freq) == 0 {
		return Features{}
	}
	if sampleRate <= 0 {
		sampleRate = 44_100
	}
	resolution := sampleRate / 2 / float64(len(freq))
	peak := uint8(0)
	for _, v := range freq {
		if v > peak {
			peak = v
		}
	}
	return Features{
		Level:  AudioLevel(freq, sensitivity),
		Bass:   bandEnergy(freq, resolution, 20, 250),
		Mid:    bandEnergy(freq, resolution, 250, 2000),
		Treble: bandEnergy(freq, resolution, 2000, 8000),
		Peak:   float64(peak) / 255,
	}
}

func bandEnergy(freq FrequencyFrame, resolution, minHz, maxHz float64) float64 {
	if minHz >= maxHz || resolution <= 0 {
		return 0
	}
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(freq) {
		hi = len(freq)
	}
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for _, v := range freq[lo:hi] {
		sum += float64(v)
	}
	return sum / float64(hi-lo) / 255
}

// GateFeatures applies a simple noise floor so weak signals are ignored.
func GateFeatures(f Features, floor float64) Features {
	if floor <= 0 {
		return f
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clamp((v-floor)/(1.0-floor), 0, 1)
	}

	f.Bass = gate(f.Bass)
	f.Mid = gate(f.Mid)
	f.Treble = gate(f.Treble)
	f.Peak = gate(f.Peak)
	return f
}
