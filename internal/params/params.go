package params

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// MaxResolution is the largest accepted resolution (subdivision level 16).
const MaxResolution = 128

// Settings holds the tuning parameters shared by every engine subsystem.
type Settings struct {
	RotationSpeed float64 `json:"rotationSpeed"`
	Resolution    int     `json:"resolution"`
	Distortion    float64 `json:"distortion"`
	Reactivity    float64 `json:"reactivity"`
	Sensitivity   float64 `json:"sensitivity"`
}

// Defaults returns the settings the engine starts with.
func Defaults() Settings {
	return Settings{
		RotationSpeed: 1.0,
		Resolution:    32,
		Distortion:    1.0,
		Reactivity:    1.0,
		Sensitivity:   5.0,
	}
}

// Sanitize replaces every out-of-range field with its default so the result is
// always fully defined. Resolution above MaxResolution is clamped.
func (s Settings) Sanitize() Settings {
	def := Defaults()
	if !(s.RotationSpeed > 0) || math.IsInf(s.RotationSpeed, 0) {
		s.RotationSpeed = def.RotationSpeed
	}
	if s.Resolution <= 0 {
		s.Resolution = def.Resolution
	}
	if s.Resolution > MaxResolution {
		s.Resolution = MaxResolution
	}
	if !(s.Distortion >= 0) || math.IsInf(s.Distortion, 0) {
		s.Distortion = def.Distortion
	}
	if !(s.Reactivity >= 0) || math.IsInf(s.Reactivity, 0) {
		s.Reactivity = def.Reactivity
	}
	if !(s.Sensitivity > 0) || math.IsInf(s.Sensitivity, 0) {
		s.Sensitivity = def.Sensitivity
	}
	return s
}

// Validate reports the first field that is out of range.
func (s Settings) Validate() error {
	switch {
	case !(s.RotationSpeed > 0):
		return fmt.Errorf("rotationSpeed must be positive (got %g)", s.RotationSpeed)
	case s.Resolution <= 0 || s.Resolution > MaxResolution:
		return fmt.Errorf("resolution must be in 1..%d (got %d)", MaxResolution, s.Resolution)
	case !(s.Distortion >= 0):
		return fmt.Errorf("distortion must be non-negative (got %g)", s.Distortion)
	case !(s.Reactivity >= 0):
		return fmt.Errorf("reactivity must be non-negative (got %g)", s.Reactivity)
	case !(s.Sensitivity > 0):
		return fmt.Errorf("sensitivity must be positive (got %g)", s.Sensitivity)
	}
	return nil
}

// GeometryChanged reports whether moving from s to next requires the orb
// geometry and programs to be rebuilt.
func (s Settings) GeometryChanged(next Settings) bool {
	return s.Resolution != next.Resolution || s.Distortion != next.Distortion
}

// ConfigPath returns where settings are persisted: next to the binary when
// possible, otherwise in the home directory.
func ConfigPath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), "orbizer-config.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".orbizer-config.json")
}

// Save writes settings as indented JSON.
func Save(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Load reads settings from path. Missing fields fall back to defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("decode settings %s: %w", path, err)
	}
	return s.Sanitize(), nil
}
