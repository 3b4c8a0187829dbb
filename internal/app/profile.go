package app

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// profiler appends per-section frame timings to a CSV file and logs the
// averages when closed. A nil profiler ignores every call.
type profiler struct {
	file   *os.File
	w      *bufio.Writer
	logger *log.Logger
	now    func() time.Time

	frame  uint64
	start  time.Time
	last   time.Time
	totals map[string]time.Duration
	counts map[string]int
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	p := &profiler{
		file:   f,
		w:      bufio.NewWriter(f),
		logger: logger,
		now:    time.Now,
		totals: make(map[string]time.Duration),
		counts: make(map[string]int),
	}
	fmt.Fprintln(p.w, "frame,section,ms")
	return p
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	p.frame++
	p.start = p.now()
	p.last = p.start
}

// markSection records the time since the previous mark under name.
func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	now := p.now()
	p.record(name, now.Sub(p.last))
	p.last = now
}

func (p *profiler) endFrame() {
	if p == nil {
		return
	}
	p.record("frame", p.now().Sub(p.start))
}

func (p *profiler) record(section string, d time.Duration) {
	p.totals[section] += d
	p.counts[section]++
	fmt.Fprintf(p.w, "%d,%s,%.3f\n", p.frame, section, float64(d)/float64(time.Millisecond))
}

// summary returns the mean time per section, sorted by name.
func (p *profiler) summary() string {
	if p == nil {
		return ""
	}
	names := make([]string, 0, len(p.totals))
	for name := range p.totals {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		mean := p.totals[name] / time.Duration(p.counts[name])
		parts = append(parts, fmt.Sprintf("%s=%.2fms", name, float64(mean)/float64(time.Millisecond)))
	}
	return strings.Join(parts, " ")
}

func (p *profiler) Close() error {
	if p == nil || p.file == nil {
		return nil
	}
	if p.logger != nil && p.frame > 0 {
		p.logger.Printf("profile over %d frames: %s", p.frame, p.summary())
	}
	err := p.w.Flush()
	if cerr := p.file.Close(); err == nil {
		err = cerr
	}
	p.file = nil
	return err
}
