package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Progress reports the progress of a fetch on a terminal. A nil or
// disabled Progress reports nothing.
type Progress struct {
	mu          sync.Mutex
	writer      io.Writer
	enabled     bool
	startTime   time.Time
	totalStages int
	stage       int
	stageName   string
	total       int
	done        int
	lastUpdate  time.Time
	minInterval time.Duration
}

// ProgressConfig configures progress reporting.
type ProgressConfig struct {
	// Writer is where progress is written. Default is os.Stderr.
	Writer io.Writer

	// Enabled controls whether progress is reported.
	Enabled bool

	// MinInterval is the minimum time between step updates.
	// Default is 100ms.
	MinInterval time.Duration
}

// Summary is printed when the fetch completes.
type Summary struct {
	Releases int
	PRs      int
	Slices   int
	Packages int
}

// NewProgress creates a new progress reporter.
func NewProgress(cfg ProgressConfig) *Progress {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 100 * time.Millisecond
	}
	return &Progress{
		writer:      cfg.Writer,
		enabled:     cfg.Enabled,
		minInterval: cfg.MinInterval,
	}
}

func (p *Progress) active() bool {
	return p != nil && p.enabled
}

// Start begins tracking a fetch made of totalStages stages.
func (p *Progress) Start(totalStages int) {
	if !p.active() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.totalStages = totalStages
	p.stage = 0
	p.lastUpdate = time.Time{}
}

// StartStage begins a stage of total requests.
func (p *Progress) StartStage(name string, total int) {
	if !p.active() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage++
	p.stageName = name
	p.total = total
	p.done = 0

	fmt.Fprintf(p.writer, "[%d/%d] Fetching %s (%d requests)...\n",
		p.stage, p.totalStages, name, total)
}

// Step reports one finished request of the current stage. Updates are
// rate limited except for the last request of a stage.
func (p *Progress) Step() {
	if !p.active() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++

	if p.done < p.total && time.Since(p.lastUpdate) < p.minInterval {
		return
	}
	p.lastUpdate = time.Now()

	fmt.Fprintf(p.writer, "  [%d/%d] %s\r", p.done, p.total, p.stageName)
}

// Complete finishes progress tracking and prints a summary.
func (p *Progress) Complete(s Summary) {
	if !p.active() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime).Round(time.Millisecond)

	fmt.Fprintf(p.writer, "\nFetch complete:\n")
	fmt.Fprintf(p.writer, "  Releases: %d\n", s.Releases)
	fmt.Fprintf(p.writer, "  PRs:      %d\n", s.PRs)
	fmt.Fprintf(p.writer, "  Slices:   %d\n", s.Slices)
	fmt.Fprintf(p.writer, "  Packages: %d\n", s.Packages)
	fmt.Fprintf(p.writer, "  Duration: %s\n", elapsed)
}

// tracked wraps fn so that every successful call steps p.
func tracked[T, R any](p *Progress, fn func(context.Context, T) (R, error)) func(context.Context, T) (R, error) {
	return func(ctx context.Context, item T) (R, error) {
		r, err := fn(ctx, item)
		if err == nil {
			p.Step()
		}
		return r, err
	}
}
