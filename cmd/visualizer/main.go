package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/guidoenr/orbizer/internal/app"
	"github.com/guidoenr/orbizer/internal/audio"
	"github.com/guidoenr/orbizer/internal/engine"
	"github.com/guidoenr/orbizer/internal/params"
	"github.com/guidoenr/orbizer/internal/render"
	"github.com/guidoenr/orbizer/internal/web"
	"golang.org/x/term"
)

func main() {
	var (
		backend    = flag.String("backend", "ascii", "Drawing backend (ascii|sdl|gl)")
		deviceName = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		listDevs   = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		noAudio    = flag.Bool("no-audio", false, "Run with a synthetic signal instead of capture")
		tone       = flag.String("tone", "", "Play comma-separated sine tones (Hz) and visualize them")
		width      = flag.Int("width", 80, "Frame width (cells for ascii, pixels for windows)")
		height     = flag.Int("height", 24, "Frame height (cells for ascii, pixels for windows)")
		targetFPS  = flag.Float64("fps", 60, "Target frames per second")
		bufferSize = flag.Int("buffer-size", 2048, "FFT size (power of two recommended)")
		palette    = flag.String("palette", "default", "ASCII palette ("+strings.Join(render.PaletteNames(), "|")+")")
		colorMode  = flag.String("color-mode", "chromatic", "Color mode ("+strings.Join(engine.ColorModeNames(), "|")+")")
		quality    = flag.String("quality", "balanced", "Render quality ("+strings.Join(render.QualityModeNames(), "|")+")")
		policy     = flag.String("policy", "inertia", "Drag response (inertia|spring)")
		configPath = flag.String("config", params.ConfigPath(), "Settings file")
		webAddr    = flag.String("web", "", "Serve the control panel on this address (e.g. :8080)")
		profile    = flag.String("profile", "", "Write per-frame timings to this CSV file")
		seed       = flag.Uint64("seed", 0, "Particle seed (0 picks one from the clock)")
		debug      = flag.Bool("debug", false, "Enable verbose logging")
		showStatus = flag.Bool("status", true, "Display status bar")
		noColor    = flag.Bool("no-color", false, "Disable ANSI color output")
	)

	flag.Parse()

	if *width <= 0 || *height <= 0 {
		log.Fatalf("invalid dimensions: width=%d height=%d", *width, *height)
	}
	if *targetFPS <= 0 {
		log.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}
	if *bufferSize <= 0 {
		log.Fatalf("buffer-size must be positive (got %d)", *bufferSize)
	}
	tones, err := parseTones(*tone)
	if err != nil {
		log.Fatalf("tone: %v", err)
	}

	if *backend == "ascii" {
		if fd := int(os.Stdout.Fd()); fd >= 0 {
			if w, h, err := term.GetSize(fd); err == nil {
				if w > 0 {
					*width = w
				}
				if h > 0 {
					*height = h
				}
			}
		}
	} else if !isFlagSet("width") && !isFlagSet("height") {
		*width, *height = 1280, 720
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, "[orbizer] ", log.LstdFlags)
	if !*debug {
		logger.SetOutput(os.Stderr)
		logger.SetFlags(0)
	}

	needAudio := (!*noAudio && len(tones) == 0) || *listDevs
	if needAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		listDevices(logger)
		return
	}

	settings, err := params.Load(*configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("settings: %v (using defaults)", err)
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	a, err := app.New(app.Config{
		DeviceName:    *deviceName,
		Width:         *width,
		Height:        *height,
		TargetFPS:     *targetFPS,
		BufferSize:    *bufferSize,
		DisableAudio:  *noAudio,
		Tone:          tones,
		ShowStatusBar: *showStatus,
		Palette:       *palette,
		ColorMode:     *colorMode,
		Quality:       *quality,
		Policy:        *policy,
		Backend:       *backend,
		UseANSI:       !*noColor,
		Settings:      settings,
		ConfigPath:    *configPath,
		Profile:       *profile,
		Seed:          *seed,
		Log:           logger,
	})
	if err != nil {
		logger.Fatalf("failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	if *webAddr != "" {
		srv := web.NewServer(a.Engine(), web.Config{Addr: *webAddr, ConfigPath: *configPath, Log: logger})
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Printf("%v", err)
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Printf("runtime error: %v", err)
		return
	}

	time.Sleep(50 * time.Millisecond)
}

func listDevices(logger *log.Logger) {
	devices, err := audio.ListDevices()
	if err != nil {
		logger.Fatalf("list devices: %v", err)
	}
	audio.WriteInputDevices(os.Stdout, devices)
	if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
		fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
	}
}

func parseTones(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad frequency %q: %w", part, err)
		}
		if f <= 0 {
			return nil, fmt.Errorf("frequency must be positive (got %g)", f)
		}
		out = append(out, f)
	}
	return out, nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
