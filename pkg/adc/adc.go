package adc

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrCaptureInFlight is returned when Capture is called while another capture runs.
	ErrCaptureInFlight = errors.New("capture already in flight")

	// ErrCaptureTimeout is returned when a transfer did not complete in time.
	ErrCaptureTimeout = errors.New("capture timed out")

	// ErrNotConnected is returned by converters that have not been opened.
	ErrNotConnected = errors.New("converter not connected")

	// ErrTransferArmed is returned when a transfer is armed while another one is pending.
	ErrTransferArmed = errors.New("transfer already armed")
)

// Batch is a fixed-length sequence of raw 12-bit converter readings.
// The backing array belongs to the Sampler and is overwritten by every capture.
type Batch []uint16

// Converter is the set of converter primitives a Sampler needs.
type Converter interface {
	// Drain discards any readings queued since the last transfer.
	Drain() error
	// Run starts or stops continuous conversion.
	Run(enable bool) error
	// Arm starts an asynchronous transfer of exactly len(dst) readings into dst.
	Arm(dst []uint16) (*Transfer, error)
}

// Transfer tracks one asynchronous transfer of readings into a buffer.
type Transfer struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewTransfer creates a pending transfer. Converter implementations complete it.
func NewTransfer() *Transfer {
	return &Transfer{done: make(chan struct{})}
}

// Complete marks the transfer finished with the given error.
// Only the first call has any effect.
func (t *Transfer) Complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Wait blocks until the transfer completes or ctx is done.
func (t *Transfer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrCaptureTimeout
		}
		return ctx.Err()
	}
}
