package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	paMu    sync.Mutex
	paUsers int
)

// Initialize starts PortAudio for one user. Every successful call must be
// balanced by Terminate; PortAudio shuts down when the last user leaves.
func Initialize() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paUsers == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio init: %w", err)
		}
	}
	paUsers++
	return nil
}

// Terminate releases one Initialize. Extra calls are ignored.
func Terminate() {
	paMu.Lock()
	defer paMu.Unlock()
	if paUsers == 0 {
		return
	}
	paUsers--
	if paUsers == 0 {
		_ = portaudio.Terminate()
	}
}
