package render

// Ramp maps brightness onto glyphs, darkest first.
type Ramp []rune

var palettes = map[string]Ramp{
	"default": Ramp(" .:-=+*#%@"),
	"box":     Ramp(" ░▒▓█"),
	"dots":    Ramp(" ·•●⬤"),
	"spark":   Ramp("  ´`^\"~:;*+×•¤°oO@#█"),
	"wire":    Ramp(" .,-~:;=!*#$@"),
}

var paletteOrder = []string{"default", "box", "dots", "spark", "wire"}

// Palette returns the ramp for name, falling back to the default ramp.
func Palette(name string) Ramp {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes["default"]
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	out := make([]string, len(paletteOrder))
	copy(out, paletteOrder)
	return out
}

// Glyph picks the glyph for brightness in [0,1]. Any lit cell gets at least
// the second glyph of the ramp.
func (p Ramp) Glyph(brightness float64) rune {
	last := len(p) - 1
	if brightness <= 0 || last <= 0 {
		return p[0]
	}
	i := clampInt(int(brightness*float64(last)+0.5), 1, last)
	return p[i]
}
