package orb

import (
	"fmt"
	"sync"
)

// Handle identifies a GPU-side (or emulated) resource owned by a Backend.
type Handle uint32

// Backend owns the resources an Orb renders with. The OpenGL view implements
// it with buffers and linked programs; CPU renderers use MemoryBackend.
type Backend interface {
	UploadGeometry(g *Geometry) (Handle, error)
	CompileProgram(src ProgramSource) (Handle, error)
	Release(h Handle)
}

// MemoryBackend tracks resources without a GPU. It is safe for concurrent use.
type MemoryBackend struct {
	mu     sync.Mutex
	next   Handle
	live   map[Handle]string
	frozen bool
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{live: make(map[Handle]string)}
}

func (m *MemoryBackend) alloc(kind string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return 0, fmt.Errorf("allocate %s: backend closed", kind)
	}
	m.next++
	m.live[m.next] = kind
	return m.next, nil
}

// UploadGeometry registers a geometry buffer.
func (m *MemoryBackend) UploadGeometry(g *Geometry) (Handle, error) {
	if g == nil || len(g.Positions) == 0 {
		return 0, fmt.Errorf("upload geometry: empty mesh")
	}
	return m.alloc("geometry")
}

// CompileProgram registers a program. Sources must carry both stages.
func (m *MemoryBackend) CompileProgram(src ProgramSource) (Handle, error) {
	if src.Vertex == "" || src.Fragment == "" {
		return 0, fmt.Errorf("compile %s: missing shader stage", src.Name)
	}
	return m.alloc("program:" + src.Name)
}

// Release frees h. Unknown handles are ignored.
func (m *MemoryBackend) Release(h Handle) {
	m.mu.Lock()
	delete(m.live, h)
	m.mu.Unlock()
}

// Live returns the number of resources not yet released.
func (m *MemoryBackend) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close makes further allocations fail.
func (m *MemoryBackend) Close() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}
