//go:build !sdl

package render

import (
	"errors"

	"github.com/guidoenr/orbizer/internal/engine"
)

type sdlState struct{}

func (r *Renderer) initSDL(width, height int) error {
	return errors.New("SDL backend not enabled; rebuild with -tags sdl")
}

func (r *Renderer) renderSDL(sc *engine.Scene, fps float64) Frame {
	return Frame{
		Status: "SDL backend unavailable (build without -tags sdl)",
		Present: func(string) error {
			return ErrRendererQuit
		},
	}
}

func (r *Renderer) resizeSDL() {}

func (r *Renderer) closeSDL() error { return nil }

func (r *Renderer) windowedSDL() bool { return false }

// SupportsSDL reports whether the binary was built with the SDL backend.
func SupportsSDL() bool { return false }
