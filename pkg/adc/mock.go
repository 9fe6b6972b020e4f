package adc

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/micscan/pkg/config"
)

const midScale = 2048

var _ Converter = (*Mock)(nil)

// Mock simulates a microphone on a 12-bit converter for testing and development.
// The tone amplitude alternates between a quiet and a loud level: every
// LoudPeriod a burst of LoudDuration starts.
type Mock struct {
	cfg *config.MockConfig

	mu      sync.Mutex
	running bool
	start   time.Time
	forced  *bool // Overrides the burst schedule when set
	rng     *rand.Rand

	dst   []uint16
	xfer  *Transfer
	timer *time.Timer
}

// NewMock creates a simulated converter.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	return &Mock{
		cfg:   cfg,
		start: time.Now(),
		rng:   rand.New(rand.NewPCG(1, 2)),
	}
}

// Force pins the simulated signal to loud or quiet regardless of the burst schedule.
func (m *Mock) Force(loud bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = &loud
}

// Release returns the simulated signal to the burst schedule.
func (m *Mock) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = nil
}

// Drain cancels a transfer left over from a failed capture.
func (m *Mock) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.xfer != nil {
		if m.timer != nil {
			m.timer.Stop()
		}
		m.xfer.Complete(context.Canceled)
		m.dst, m.xfer, m.timer = nil, nil, nil
	}
	return nil
}

// Run starts or stops simulated conversion. Starting with an armed transfer
// schedules its completion after len(dst) sample periods.
func (m *Mock) Run(enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = enable
	if enable && m.xfer != nil && m.timer == nil {
		d := time.Duration(len(m.dst)) * m.cfg.SamplePeriod
		xfer := m.xfer
		m.timer = time.AfterFunc(d, func() { m.finish(xfer) })
	}
	return nil
}

// Arm registers dst as the destination of the next transfer.
func (m *Mock) Arm(dst []uint16) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.xfer != nil {
		return nil, ErrTransferArmed
	}

	m.dst = dst
	m.xfer = NewTransfer()
	return m.xfer, nil
}

// finish fills the armed buffer and completes xfer if it is still the armed transfer.
func (m *Mock) finish(xfer *Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.xfer != xfer || !m.running {
		return
	}

	now := time.Now()
	m.fill(m.dst, now.Add(-time.Duration(len(m.dst))*m.cfg.SamplePeriod))
	m.xfer.Complete(nil)
	m.dst, m.xfer, m.timer = nil, nil, nil
}

// fill generates readings for a batch starting at t0. Caller holds mu.
func (m *Mock) fill(dst []uint16, t0 time.Time) {
	amp := float32(m.cfg.QuietAmp)
	if m.loud(t0) {
		amp = float32(m.cfg.LoudAmp)
	}
	noise := float32(m.cfg.Noise)
	omega := 2 * math32.Pi * float32(m.cfg.ToneHz)
	dt := float32(m.cfg.SamplePeriod.Seconds())
	phase := float32(t0.Sub(m.start).Seconds())

	for i := range dst {
		t := phase + float32(i)*dt
		v := midScale + amp*math32.Sin(omega*t) + noise*(2*m.rng.Float32()-1)
		dst[i] = clampReading(v)
	}
}

// loud reports whether the burst schedule is in a loud phase at t. Caller holds mu.
func (m *Mock) loud(t time.Time) bool {
	if m.forced != nil {
		return *m.forced
	}
	if m.cfg.LoudPeriod <= 0 {
		return false
	}
	return t.Sub(m.start)%m.cfg.LoudPeriod < m.cfg.LoudDuration
}

func clampReading(v float32) uint16 {
	if v < 0 {
		return 0
	}
	if v > MaxReading {
		return MaxReading
	}
	return uint16(v)
}
