//go:build gl

// Package glview is the OpenGL window backend. It implements orb.Backend so
// the orb programs and mesh buffers live on the GPU.
package glview

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/orb"
	"github.com/guidoenr/orbizer/internal/particles"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

// ErrClosed is returned by Draw once the window was closed.
var ErrClosed = errors.New("glview: window closed")

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

type mesh struct {
	vao, glowVAO     uint32
	posVBO, baseVBO  uint32
	nrmVBO           uint32
	edgeEBO, triEBO  uint32
	vertices         int
	edgeIdx, triIdx  int32
}

type program struct {
	id  uint32
	loc map[string]int32
}

func (p *program) uniform(name string) int32 {
	if l, ok := p.loc[name]; ok {
		return l
	}
	l := uniform(p.id, name)
	p.loc[name] = l
	return l
}

// View is a GLFW window with an OpenGL 4.1 core context.
type View struct {
	cfg    Config
	window *glfw.Window

	next     orb.Handle
	meshes   map[orb.Handle]*mesh
	programs map[orb.Handle]*program

	pointProg *program
	pointVAO  uint32
	pointVBO  uint32
	pointBuf  []float32

	quadProg *program
	quadVAO  uint32
	quadVBO  uint32
	ringTex  uint32
	ringSize int

	dragging bool
}

// Available reports whether the binary was built with the OpenGL backend.
func Available() bool { return true }

// Open creates the window and GL context.
func Open(cfg Config) (*View, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.Title == "" {
		cfg.Title = "orbizer"
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init: %w", err)
	}
	cfg.Log.Printf("opengl %s", gl.GoStr(gl.GetString(gl.VERSION)))

	v := &View{
		cfg:      cfg,
		window:   window,
		meshes:   make(map[orb.Handle]*mesh),
		programs: make(map[orb.Handle]*program),
	}
	if err := v.initOverlays(); err != nil {
		v.Close()
		return nil, err
	}
	v.installCallbacks()
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	return v, nil
}

func (v *View) initOverlays() error {
	id, err := linkProgram(pointVertSrc, pointFragSrc)
	if err != nil {
		return fmt.Errorf("point program: %w", err)
	}
	v.pointProg = &program{id: id, loc: make(map[string]int32)}
	gl.GenVertexArrays(1, &v.pointVAO)
	gl.GenBuffers(1, &v.pointVBO)
	gl.BindVertexArray(v.pointVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.pointVBO)
	stride := int32(5 * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, glOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 1, gl.FLOAT, false, stride, glOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 1, gl.FLOAT, false, stride, glOffset(4*4))

	id, err = linkProgram(quadVertSrc, quadFragSrc)
	if err != nil {
		return fmt.Errorf("ring program: %w", err)
	}
	v.quadProg = &program{id: id, loc: make(map[string]int32)}
	corners := []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	gl.GenVertexArrays(1, &v.quadVAO)
	gl.GenBuffers(1, &v.quadVBO)
	gl.BindVertexArray(v.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(corners)*4, gl.Ptr(corners), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, glOffset(0))

	gl.GenTextures(1, &v.ringTex)
	gl.BindTexture(gl.TEXTURE_2D, v.ringTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindVertexArray(0)
	return nil
}

func (v *View) installCallbacks() {
	v.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft || v.cfg.Input == nil {
			return
		}
		x, y := w.GetCursorPos()
		switch action {
		case glfw.Press:
			v.dragging = true
			v.cfg.Input.PointerDown(x, y, glfw.GetTime()*1000)
		case glfw.Release:
			if v.dragging {
				v.dragging = false
				v.cfg.Input.PointerUp()
			}
		}
	})
	v.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if v.dragging && v.cfg.Input != nil {
			v.cfg.Input.PointerMove(x, y, glfw.GetTime()*1000)
		}
	})
	v.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if v.cfg.Input != nil {
			v.cfg.Input.Resize(width, height)
		}
	})
	v.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
}

// SetInput routes window events to in.
func (v *View) SetInput(in InputSink) { v.cfg.Input = in }

// FramebufferSize returns the drawable size in pixels.
func (v *View) FramebufferSize() (int, int) {
	return v.window.GetFramebufferSize()
}

// UploadGeometry creates the vertex arrays for a mesh. Surface positions are
// streamed every frame; the glow pass reads the undisplaced sphere.
func (v *View) UploadGeometry(g *orb.Geometry) (orb.Handle, error) {
	if g == nil || len(g.Positions) == 0 {
		return 0, fmt.Errorf("upload geometry: empty mesh")
	}
	m := &mesh{vertices: len(g.Positions)}
	base := flatten(g.Positions)
	normals := flatten(g.Normals)
	edges := make([]uint32, 0, len(g.Edges)*2)
	for _, e := range g.Edges {
		edges = append(edges, e[0], e[1])
	}
	m.edgeIdx = int32(len(edges))
	m.triIdx = int32(len(g.Indices))

	gl.GenBuffers(1, &m.posVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.posVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(base)*4, gl.Ptr(base), gl.STREAM_DRAW)
	gl.GenBuffers(1, &m.baseVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.baseVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(base)*4, gl.Ptr(base), gl.STATIC_DRAW)
	gl.GenBuffers(1, &m.nrmVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.nrmVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(normals)*4, gl.Ptr(normals), gl.STATIC_DRAW)

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	bindVec3(0, m.posVBO)
	bindVec3(1, m.nrmVBO)
	gl.GenBuffers(1, &m.edgeEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.edgeEBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(edges)*4, gl.Ptr(edges), gl.STATIC_DRAW)

	gl.GenVertexArrays(1, &m.glowVAO)
	gl.BindVertexArray(m.glowVAO)
	bindVec3(0, m.baseVBO)
	bindVec3(1, m.nrmVBO)
	gl.GenBuffers(1, &m.triEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.triEBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	v.next++
	v.meshes[v.next] = m
	return v.next, nil
}

// CompileProgram links an orb program.
func (v *View) CompileProgram(src orb.ProgramSource) (orb.Handle, error) {
	id, err := linkProgram(src.Vertex, src.Fragment)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src.Name, err)
	}
	v.next++
	v.programs[v.next] = &program{id: id, loc: make(map[string]int32)}
	return v.next, nil
}

// Release deletes the GPU objects behind h.
func (v *View) Release(h orb.Handle) {
	if m, ok := v.meshes[h]; ok {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteVertexArrays(1, &m.glowVAO)
		bufs := []uint32{m.posVBO, m.baseVBO, m.nrmVBO, m.edgeEBO, m.triEBO}
		gl.DeleteBuffers(int32(len(bufs)), &bufs[0])
		delete(v.meshes, h)
		return
	}
	if p, ok := v.programs[h]; ok {
		gl.DeleteProgram(p.id)
		delete(v.programs, h)
	}
}

// Draw renders the scene, presents it and processes window events.
func (v *View) Draw(sc *engine.Scene, title string) error {
	if v.window.ShouldClose() {
		return ErrClosed
	}
	fbw, fbh := v.window.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fbw), int32(fbh))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.BLEND)

	u := sc.Orb.Uniforms()
	v.drawPoints(sc.Ambient, u, [3]float32{0.9, 0.85, 1}, float32(fbh))
	v.drawPoints(sc.Particles, u, [3]float32{0.55, 0.7, 1}, float32(fbh))

	geomH, surfH, glowH := sc.Orb.Handles()
	m := v.meshes[geomH]
	surf := v.programs[surfH]
	glow := v.programs[glowH]
	if m != nil && surf != nil && glow != nil {
		v.drawGlow(m, glow, u)
		v.drawSurface(m, surf, u, sc.Orb)
	}

	if sc.RingImage != nil {
		v.drawRings(sc, fbw, fbh)
	}

	if title != "" {
		v.window.SetTitle(title)
	}
	v.window.SwapBuffers()
	glfw.PollEvents()
	return nil
}

func setOrbUniforms(p *program, u orb.Uniforms) {
	gl.UniformMatrix4fv(p.uniform("uModel"), 1, false, &u.Model[0])
	gl.UniformMatrix4fv(p.uniform("uProjection"), 1, false, &u.Projection[0])
	gl.Uniform3f(p.uniform("uCameraPos"), u.CameraPos[0], u.CameraPos[1], u.CameraPos[2])
	gl.Uniform3f(p.uniform("uBaseColor"), u.BaseColor[0], u.BaseColor[1], u.BaseColor[2])
	gl.Uniform1f(p.uniform("uAudioLevel"), u.AudioLevel)
}

func (v *View) drawGlow(m *mesh, p *program, u orb.Uniforms) {
	gl.UseProgram(p.id)
	setOrbUniforms(p, u)
	gl.Uniform1f(p.uniform("uShellScale"), u.GlowScale)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.BlendFunc(gl.ONE, gl.ONE)
	gl.BindVertexArray(m.glowVAO)
	gl.DrawElements(gl.TRIANGLES, m.triIdx, gl.UNSIGNED_INT, nil)
	gl.Disable(gl.CULL_FACE)
}

func (v *View) drawSurface(m *mesh, p *program, u orb.Uniforms, o *orb.Orb) {
	local := flatten(o.Local)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.posVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(local)*4, gl.Ptr(local))

	gl.UseProgram(p.id)
	setOrbUniforms(p, u)
	gl.Uniform1f(p.uniform("uShellScale"), 1)
	gl.Uniform1f(p.uniform("uTime"), u.Time)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.LINES, m.edgeIdx, gl.UNSIGNED_INT, nil)
}

func (v *View) drawPoints(pts []particles.Point, u orb.Uniforms, tint [3]float32, height float32) {
	if len(pts) == 0 {
		return
	}
	buf := v.pointBuf[:0]
	for _, p := range pts {
		buf = append(buf, float32(p.Pos.X), float32(p.Pos.Y), float32(p.Pos.Z), float32(p.Size), float32(p.Opacity))
	}
	v.pointBuf = buf

	gl.UseProgram(v.pointProg.id)
	gl.UniformMatrix4fv(v.pointProg.uniform("uProjection"), 1, false, &u.Projection[0])
	gl.Uniform3f(v.pointProg.uniform("uCameraPos"), u.CameraPos[0], u.CameraPos[1], u.CameraPos[2])
	gl.Uniform1f(v.pointProg.uniform("uPixelScale"), height)
	gl.Uniform3f(v.pointProg.uniform("uTint"), tint[0], tint[1], tint[2])
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.BindVertexArray(v.pointVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.pointVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(buf)*4, gl.Ptr(buf), gl.STREAM_DRAW)
	gl.DrawArrays(gl.POINTS, 0, int32(len(pts)))
}

// drawRings shows the ring surface as a centered square whose side follows
// the shorter window edge, so the rings stay circular.
func (v *View) drawRings(sc *engine.Scene, fbw, fbh int) {
	img := sc.RingImage
	b := img.Bounds()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, v.ringTex)
	if v.ringSize != b.Dx() {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
		v.ringSize = b.Dx()
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(b.Dx()), int32(b.Dy()), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	}

	side := 0.9 * math.Min(float64(fbw), float64(fbh))
	gl.UseProgram(v.quadProg.id)
	gl.Uniform1i(v.quadProg.uniform("uTex"), 0)
	gl.Uniform2f(v.quadProg.uniform("uScale"), float32(side/float64(fbw)), float32(side/float64(fbh)))
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.BindVertexArray(v.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

// Close destroys the window. Orb resources must be released first.
func (v *View) Close() {
	if v.window == nil {
		return
	}
	if v.pointProg != nil {
		gl.DeleteProgram(v.pointProg.id)
	}
	if v.quadProg != nil {
		gl.DeleteProgram(v.quadProg.id)
	}
	gl.DeleteTextures(1, &v.ringTex)
	v.window.Destroy()
	v.window = nil
	glfw.Terminate()
}

func bindVec3(index uint32, vbo uint32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.EnableVertexAttribArray(index)
	gl.VertexAttribPointer(index, 3, gl.FLOAT, false, 3*4, glOffset(0))
}

func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }
