package audio

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio device.
type Device struct {
	Index           int
	Name            string
	MaxInput        int
	MaxOutput       int
	DefaultSampleHz float64
	HostAPI         string
	IsDefaultInput  bool
	IsDefaultOutput bool
}

// loopbackKeywords mark devices that carry what the machine is playing.
var loopbackKeywords = []string{"monitor", "loopback", "stereo mix", "what u hear", "mix"}

// ListDevices returns all devices across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}
	defIn := defaultInputIndex()

	devices := make([]Device, 0, len(hosts)*4)
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Index:           d.Index,
				Name:            d.Name,
				MaxInput:        d.MaxInputChannels,
				MaxOutput:       d.MaxOutputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				HostAPI:         host.Name,
				IsDefaultInput:  d.Index == defIn,
				IsDefaultOutput: host.DefaultOutputDevice != nil && d.Index == host.DefaultOutputDevice.Index,
			})
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})
	return devices, nil
}

// WriteInputDevices prints the devices that can capture.
func WriteInputDevices(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\n=== Audio Input Devices ===\n\n")
	for _, dev := range devices {
		if dev.MaxInput == 0 {
			continue
		}
		markers := ""
		if dev.IsDefaultInput {
			markers += " (default)"
		}
		if isLoopback(dev.Name) {
			markers += " (loopback)"
		}
		fmt.Fprintf(w, "- %s [%s]%s\n    inputs:%d outputs:%d sample:%.0f Hz\n",
			dev.Name, dev.HostAPI, markers, dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)
	}
}

// AutoDetectDevice returns the input device NewCapture picks without a name.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	if name != "" {
		needle := strings.ToLower(name)
		for _, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), needle) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("audio device %q not found", name)
	}

	defIn := defaultInputIndex()
	hostIn := -1
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		hostIn = host.DefaultInputDevice.Index
	}

	var (
		best      *portaudio.DeviceInfo
		bestScore = -1
	)
	for _, d := range devices {
		if d == nil {
			continue
		}
		dev := Device{Index: d.Index, Name: d.Name, MaxInput: d.MaxInputChannels, IsDefaultInput: d.Index == defIn}
		score := deviceScore(dev, d.Index == hostIn)
		if score > bestScore || (score == bestScore && best != nil && strings.ToLower(d.Name) < strings.ToLower(best.Name)) {
			best, bestScore = d, score
		}
	}
	if best == nil || bestScore < 0 {
		return nil, fmt.Errorf("no suitable audio input device found")
	}
	return best, nil
}

// deviceScore ranks capture candidates. Devices without inputs score -1.
func deviceScore(d Device, hostDefault bool) int {
	if d.MaxInput <= 0 {
		return -1
	}
	score := d.MaxInput
	if d.IsDefaultInput {
		score += 50
	}
	if hostDefault {
		score += 40
	}
	if isLoopback(d.Name) {
		score += 20
	}
	if strings.Contains(strings.ToLower(d.Name), "default") {
		score += 10
	}
	return score
}

func isLoopback(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range loopbackKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func defaultInputIndex() int {
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def.Index
	}
	return -1
}
