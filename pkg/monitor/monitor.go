// Package monitor runs the capture, quantize, render, count cycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/adc"
	"github.com/itohio/micscan/pkg/display"
	"github.com/itohio/micscan/pkg/level"
	"github.com/itohio/micscan/pkg/meter"
)

// Capturer produces one batch of raw readings per call.
type Capturer interface {
	Capture(ctx context.Context) (adc.Batch, error)
}

var _ Capturer = (*adc.Sampler)(nil)

// Reading is the result of one cycle.
type Reading struct {
	Power     float64 // RMS of the raw batch
	Volts     float32 // Envelope magnitude
	Intensity int
	Event     meter.Event
}

// Loop is the main metering loop.
type Loop struct {
	sampler   Capturer
	quantizer level.Quantizer
	matrix    display.IntensityRenderer
	counter   *meter.Counter

	callbacks []func(Reading)
	cbMu      sync.RWMutex
}

// New creates a Loop.
func New(sampler Capturer, quantizer level.Quantizer, matrix display.IntensityRenderer, counter *meter.Counter) *Loop {
	return &Loop{
		sampler:   sampler,
		quantizer: quantizer,
		matrix:    matrix,
		counter:   counter,
	}
}

// OnCycle registers a callback invoked after every completed cycle.
func (l *Loop) OnCycle(callback func(Reading)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.callbacks = append(l.callbacks, callback)
}

// Cycle runs one iteration: capture, power, magnitude, intensity, LED render
// and the counter update, in that order.
func (l *Loop) Cycle(ctx context.Context) (Reading, error) {
	batch, err := l.sampler.Capture(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("capture failed: %w", err)
	}

	var r Reading
	r.Power, r.Volts, r.Intensity = l.quantizer.Level(batch)

	l.matrix.RenderIntensity(r.Intensity)
	r.Event = l.counter.OnCycle(r.Intensity)

	l.cbMu.RLock()
	callbacks := make([]func(Reading), len(l.callbacks))
	copy(callbacks, l.callbacks)
	l.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(r)
	}
	return r, nil
}

// Run repeats Cycle until ctx is done, returning nil, or until a capture
// fails, returning the error.
func (l *Loop) Run(ctx context.Context) error {
	log.Info("monitor started")
	defer log.Info("monitor stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := l.Cycle(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			log.Error("monitor cycle failed", "err", err)
			return err
		}
	}
}
