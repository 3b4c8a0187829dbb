package engine

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/rings"
)

// ColorMode selects the orb base color and the ring palette.
type ColorMode int

const (
	Chromatic ColorMode = iota
	Fire
	Aurora
	Mono
)

var colorModeNames = []string{"chromatic", "fire", "aurora", "mono"}

// ColorModeNames returns the supported color modes.
func ColorModeNames() []string {
	out := make([]string, len(colorModeNames))
	copy(out, colorModeNames)
	return out
}

// ParseColorMode maps a name onto a mode. Unknown names select Chromatic.
func ParseColorMode(name string) ColorMode {
	switch strings.ToLower(name) {
	case "fire":
		return Fire
	case "aurora", "cool":
		return Aurora
	case "mono", "monochrome", "bw", "gray":
		return Mono
	default:
		return Chromatic
	}
}

func (m ColorMode) String() string {
	if m < 0 || int(m) >= len(colorModeNames) {
		return colorModeNames[0]
	}
	return colorModeNames[m]
}

// Next cycles to the following mode.
func (m ColorMode) Next() ColorMode {
	return ColorMode((int(m) + 1) % len(colorModeNames))
}

// BaseColor returns the orb color for time t and audio level.
func (m ColorMode) BaseColor(t, level float64) orb.Color {
	var c colorful.Color
	switch m {
	case Fire:
		c = colorful.Hsv(10+30*math.Min(level, 1), 0.85, 1)
	case Aurora:
		c = colorful.Hsv(150+40*math.Sin(t*0.3), 0.6, 1)
	case Mono:
		c = colorful.Hsv(0, 0, 1)
	default:
		c = colorful.Hsv(math.Mod(200+t*12+level*60, 360), 0.7, 1)
	}
	return orb.Color{R: c.R, G: c.G, B: c.B}
}

// RingHues returns the ring palette matching the mode.
func (m ColorMode) RingHues() []rings.HuePair {
	switch m {
	case Fire:
		return rings.HuesFrom(0)
	case Aurora:
		return rings.HuesFrom(120)
	case Mono:
		pairs := make([]rings.HuePair, 3)
		for i := range pairs {
			v := 1 - float64(i)*0.2
			pairs[i] = rings.HuePair{Inner: colorful.Hsv(0, 0, v), Outer: colorful.Hsv(0, 0, v*0.5)}
		}
		return pairs
	default:
		return rings.DefaultHues()
	}
}
