package display

import (
	"sync"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/scan"
)

// Log renders through the process logger. Intensity goes to debug, status
// changes to info.
type Log struct {
	matrix config.MatrixConfig

	mu     sync.Mutex
	status scan.Status
	seen   bool
}

// NewLog creates a logger backed renderer.
func NewLog(matrix config.MatrixConfig) *Log {
	return &Log{matrix: matrix}
}

// RenderIntensity logs the level and the lit LED count.
func (l *Log) RenderIntensity(level int) {
	f := NewFrame(l.matrix, level)
	log.Debug("intensity", "level", level, "lit", f.Lit)
}

// RenderStatus logs s when it differs from the previous status.
func (l *Log) RenderStatus(s scan.Status) {
	l.mu.Lock()
	changed := !l.seen || l.status != s
	l.status, l.seen = s, true
	l.mu.Unlock()

	if changed {
		log.Info("status display", "status", s.String(), "text", Glyph(s))
	}
}

// Fanout forwards every update to all of its renderers in order.
type Fanout []Renderer

// RenderIntensity forwards level.
func (f Fanout) RenderIntensity(level int) {
	for _, r := range f {
		r.RenderIntensity(level)
	}
}

// RenderStatus forwards s.
func (f Fanout) RenderStatus(s scan.Status) {
	for _, r := range f {
		r.RenderStatus(s)
	}
}
