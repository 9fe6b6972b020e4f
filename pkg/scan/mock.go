package scan

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Mock simulates a radio that sees a fixed set of networks.
type Mock struct {
	duration time.Duration

	mu       sync.Mutex
	networks []string
	failNext error
	joinErr  error
	closed   bool
	scans    int

	active atomic.Bool
}

// NewMock creates a simulated radio. Each scan takes duration and reports networks.
func NewMock(networks []string, duration time.Duration) *Mock {
	return &Mock{
		networks: append([]string(nil), networks...),
		duration: duration,
	}
}

// SetNetworks replaces the networks reported by later scans.
func (m *Mock) SetNetworks(networks []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networks = append([]string(nil), networks...)
}

// FailNext makes the next Start call return err.
func (m *Mock) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Scans returns how many scans were started.
func (m *Mock) Scans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

// FailJoin makes every later Join call return err.
func (m *Mock) FailJoin(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinErr = err
}

// Join succeeds unless the radio was closed or FailJoin was set.
func (m *Mock) Join(ctx context.Context, ssid, password string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrRadioDown
	}
	if m.joinErr != nil {
		return fmt.Errorf("failed to join %q: %w", ssid, m.joinErr)
	}
	return nil
}

// Close tears the simulated radio down.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Active reports whether a simulated scan is running.
func (m *Mock) Active() bool {
	return m.active.Load()
}

// Start runs a simulated scan in a goroutine.
func (m *Mock) Start(onResult func(ssid string)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrRadioDown
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		m.mu.Unlock()
		return err
	}
	networks := append([]string(nil), m.networks...)
	m.mu.Unlock()

	if !m.active.CompareAndSwap(false, true) {
		return ErrScanInFlight
	}

	m.mu.Lock()
	m.scans++
	m.mu.Unlock()

	go func() {
		defer m.active.Store(false)
		if m.duration > 0 {
			time.Sleep(m.duration)
		}
		for _, ssid := range networks {
			onResult(ssid)
		}
	}()

	return nil
}
