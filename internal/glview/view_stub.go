//go:build !gl

package glview

import (
	"errors"
	"log"

	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/orb"
)

// ErrClosed is returned by Draw once the window was closed.
var ErrClosed = errors.New("glview: window closed")

var errDisabled = errors.New("OpenGL backend not enabled; rebuild with -tags gl")

// InputSink receives pointer and viewport events. *engine.Engine implements it.
type InputSink interface {
	PointerDown(x, y, t float64)
	PointerMove(x, y, t float64)
	PointerUp()
	Resize(width, height int)
}

// Config configures a View.
type Config struct {
	Width  int
	Height int
	Title  string
	Input  InputSink
	Log    *log.Logger
}

// View is unavailable in this build.
type View struct{}

// Available reports whether the binary was built with the OpenGL backend.
func Available() bool { return false }

// Open always fails without the gl build tag.
func Open(cfg Config) (*View, error) { return nil, errDisabled }

func (v *View) SetInput(in InputSink) {}

func (v *View) FramebufferSize() (int, int) { return 0, 0 }

func (v *View) UploadGeometry(g *orb.Geometry) (orb.Handle, error) { return 0, errDisabled }

func (v *View) CompileProgram(src orb.ProgramSource) (orb.Handle, error) { return 0, errDisabled }

func (v *View) Release(h orb.Handle) {}

func (v *View) Draw(sc *engine.Scene, title string) error { return ErrClosed }

func (v *View) Close() {}
