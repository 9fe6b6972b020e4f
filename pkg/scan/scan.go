// Package scan probes for one target Wi-Fi network while scan mode is active
// and reports the result to a status display.
package scan

import (
	"context"
	"errors"
	"time"
)

// Status is the connectivity state shown on the status display.
type Status int

const (
	// Inactive means scan mode is off.
	Inactive Status = iota
	// Found means the last completed scan saw the target network.
	Found
	// NotFound means the last completed scan did not see the target network.
	NotFound
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

var (
	// ErrSchedulerRunning indicates the scheduler is already running.
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrScanInFlight indicates a scan was requested while one is running.
	ErrScanInFlight = errors.New("scan already in flight")

	// ErrRadioDown indicates the radio was torn down and cannot scan.
	ErrRadioDown = errors.New("radio is down")
)

// Scanner is the network-scan collaborator.
type Scanner interface {
	// Start requests a scan and returns immediately. onResult is invoked once
	// per discovered network before Active reports false again.
	Start(onResult func(ssid string)) error
	// Active reports whether a scan is in flight.
	Active() bool
}

// Radio is a Scanner that can also join a network and be torn down.
type Radio interface {
	Scanner
	Join(ctx context.Context, ssid, password string, timeout time.Duration) error
	Close() error
}

var (
	_ Radio = (*Nmcli)(nil)
	_ Radio = (*Mock)(nil)
)

// ModeSource reports whether scan mode is active.
type ModeSource interface {
	ScanMode() bool
}

// StatusRenderer is the status display collaborator.
type StatusRenderer interface {
	RenderStatus(Status)
}
