package meter

import (
	"sync"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/config"
)

// Event describes the counter state after one main-loop cycle.
type Event struct {
	Intensity int  // Intensity reported by the cycle
	Loud      bool // Intensity was at or above the loud threshold
	Count     int  // Loud-event count after the cycle
	Tripped   bool // The cycle reached the trip threshold
	ScanMode  bool // Scan mode after the cycle
}

// Counter accumulates loud cycles and flips scan mode after a run of them.
//
// By default the count is sticky (quiet cycles neither increment nor reset it)
// and scan mode latches on at the first trip. Both behaviors are configurable.
type Counter struct {
	loudThreshold int
	tripThreshold int
	resetOnQuiet  bool
	toggleOnTrip  bool

	mu       sync.Mutex
	count    int
	scanMode bool

	callbacks []func(Event)
	cbMu      sync.RWMutex
}

// New creates a Counter from the meter configuration.
func New(cfg config.MeterConfig) *Counter {
	return &Counter{
		loudThreshold: cfg.LoudThreshold,
		tripThreshold: cfg.TripThreshold,
		resetOnQuiet:  cfg.ResetOnQuiet,
		toggleOnTrip:  cfg.ToggleOnTrip,
	}
}

// OnCycle feeds one cycle's intensity into the counter and returns the resulting state.
func (c *Counter) OnCycle(intensity int) Event {
	c.mu.Lock()

	ev := Event{
		Intensity: intensity,
		Loud:      intensity >= c.loudThreshold,
	}

	if ev.Loud {
		c.count++
		log.Debug("loud cycle", "count", c.count, "intensity", intensity)
	} else if c.resetOnQuiet {
		c.count = 0
	}

	if c.count >= c.tripThreshold {
		ev.Tripped = true
		c.count = 0
		if c.toggleOnTrip {
			c.scanMode = !c.scanMode
		} else {
			c.scanMode = true
		}
	}

	ev.Count = c.count
	ev.ScanMode = c.scanMode

	c.mu.Unlock()

	if ev.Tripped {
		log.Info("loud event threshold reached", "scan_mode", ev.ScanMode)
	}

	c.notifyCallbacks(ev)

	return ev
}

// Count returns the current loud-event count.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// ScanMode reports whether scan mode is active.
func (c *Counter) ScanMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanMode
}

// Reset clears the count and turns scan mode off.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.scanMode = false
}

// OnUpdate registers a callback invoked after every cycle.
// Callbacks run on the caller's goroutine and should return quickly.
func (c *Counter) OnUpdate(callback func(Event)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// notifyCallbacks invokes all registered callbacks without holding the state lock.
func (c *Counter) notifyCallbacks(ev Event) {
	c.cbMu.RLock()
	callbacks := make([]func(Event), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(ev)
		}
	}
}
