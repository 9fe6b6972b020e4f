package adc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Sampler captures fixed-size batches from a Converter.
type Sampler struct {
	conv    Converter
	buf     Batch
	timeout time.Duration
	busy    atomic.Bool
}

// NewSampler creates a Sampler capturing n readings per batch.
// A zero timeout waits for each transfer indefinitely.
func NewSampler(conv Converter, n int, timeout time.Duration) *Sampler {
	return &Sampler{
		conv:    conv,
		buf:     make(Batch, n),
		timeout: timeout,
	}
}

// Size returns the number of readings per batch.
func (s *Sampler) Size() int {
	return len(s.buf)
}

// Capture fills the shared batch buffer with fresh readings and returns it.
// The returned batch is only valid until the next Capture call.
//
// Sequence: drain stale readings, stop conversion, arm the transfer, start
// conversion, wait for the transfer, stop conversion.
func (s *Sampler) Capture(ctx context.Context) (Batch, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrCaptureInFlight
	}
	defer s.busy.Store(false)

	if err := s.conv.Drain(); err != nil {
		return nil, fmt.Errorf("failed to drain converter: %w", err)
	}
	if err := s.conv.Run(false); err != nil {
		return nil, fmt.Errorf("failed to stop converter: %w", err)
	}

	xfer, err := s.conv.Arm(s.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to arm transfer: %w", err)
	}

	if err := s.conv.Run(true); err != nil {
		return nil, fmt.Errorf("failed to start converter: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	waitErr := xfer.Wait(ctx)

	// Conversion is stopped even when the wait failed
	stopErr := s.conv.Run(false)

	if waitErr != nil {
		return nil, errors.Join(waitErr, stopErr)
	}
	if stopErr != nil {
		return nil, fmt.Errorf("failed to stop converter: %w", stopErr)
	}

	return s.buf, nil
}
