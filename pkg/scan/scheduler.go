package scan

import (
	"context"
	"sync"
	"time"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/config"
)

// Scheduler fires a periodic tick that starts scans while scan mode is active.
type Scheduler struct {
	scanner  Scanner
	mode     ModeSource
	display  StatusRenderer
	target   string
	interval time.Duration

	mu      sync.Mutex
	found   bool // A result of the pending scan matched the target
	pending bool // A started scan has not been evaluated yet
	status  Status
	started int // Scans started successfully

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler probing for cfg.TargetSSID every cfg.Interval.
func NewScheduler(cfg config.ScanConfig, scanner Scanner, mode ModeSource, display StatusRenderer) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		mode:     mode,
		display:  display,
		target:   cfg.TargetSSID,
		interval: cfg.Interval,
	}
}

// Start begins ticking in a goroutine until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the periodic tick and waits for the tick goroutine to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one scheduling step. It never blocks on the scan itself.
func (s *Scheduler) Tick() {
	if s.scanner.Active() {
		return
	}

	if !s.mode.ScanMode() {
		s.report(Inactive)
		return
	}

	s.mu.Lock()
	evaluate := s.pending
	status := NotFound
	if s.found {
		status = Found
	}
	s.found = false
	s.pending = false
	s.mu.Unlock()

	if evaluate {
		s.report(status)
	}

	if err := s.scanner.Start(s.onResult); err != nil {
		log.Warn("failed to start scan", "err", err)
		// No scan ran this tick, so the target counts as unreachable
		if !evaluate {
			s.report(NotFound)
		}
		return
	}

	s.mu.Lock()
	s.pending = true
	s.started++
	s.mu.Unlock()
}

// onResult is the per-network scan callback.
func (s *Scheduler) onResult(ssid string) {
	if ssid != s.target {
		return
	}
	s.mu.Lock()
	s.found = true
	s.mu.Unlock()
}

func (s *Scheduler) report(status Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if changed {
		log.Info("connectivity status", "status", status.String(), "target", s.target)
	}
	s.display.RenderStatus(status)
}

// Status returns the last reported connectivity status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Started returns how many scans were started successfully.
func (s *Scheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
