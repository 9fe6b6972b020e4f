package adc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverter records primitive calls and completes transfers on Run(true).
type fakeConverter struct {
	mu      sync.Mutex
	calls   []string
	value   uint16
	hang    bool // never complete transfers
	armErr  error
	xfer    *Transfer
	dst     []uint16
	running bool
}

func (f *fakeConverter) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeConverter) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("drain")
	return nil
}

func (f *fakeConverter) Run(enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enable {
		f.record("run")
	} else {
		f.record("stop")
	}
	f.running = enable
	if enable && f.xfer != nil && !f.hang {
		xfer, dst := f.xfer, f.dst
		f.xfer, f.dst = nil, nil
		go func() {
			for i := range dst {
				dst[i] = f.value
			}
			xfer.Complete(nil)
		}()
	}
	return nil
}

func (f *fakeConverter) Arm(dst []uint16) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("arm")
	if f.armErr != nil {
		return nil, f.armErr
	}
	f.xfer = NewTransfer()
	f.dst = dst
	return f.xfer, nil
}

func (f *fakeConverter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestSampler_CaptureSequence(t *testing.T) {
	conv := &fakeConverter{value: 1234}
	s := NewSampler(conv, 200, time.Second)

	batch, err := s.Capture(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 200)
	for _, v := range batch {
		assert.Equal(t, uint16(1234), v)
	}

	assert.Equal(t, []string{"drain", "stop", "arm", "run", "stop"}, conv.Calls())
	assert.Equal(t, 200, s.Size())
}

func TestSampler_ReusesBuffer(t *testing.T) {
	conv := &fakeConverter{value: 1}
	s := NewSampler(conv, 10, time.Second)

	first, err := s.Capture(context.Background())
	require.NoError(t, err)

	conv.value = 2
	second, err := s.Capture(context.Background())
	require.NoError(t, err)

	// Same backing array, overwritten in place
	assert.Equal(t, &first[0], &second[0])
	assert.Equal(t, uint16(2), first[0])
}

func TestSampler_Timeout(t *testing.T) {
	conv := &fakeConverter{hang: true}
	s := NewSampler(conv, 10, 20*time.Millisecond)

	start := time.Now()
	_, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCaptureTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// Conversion stopped after the failed wait
	calls := conv.Calls()
	assert.Equal(t, "stop", calls[len(calls)-1])
}

func TestSampler_ContextCanceled(t *testing.T) {
	conv := &fakeConverter{hang: true}
	s := NewSampler(conv, 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampler_ArmError(t *testing.T) {
	armErr := errors.New("no channel")
	conv := &fakeConverter{armErr: armErr}
	s := NewSampler(conv, 10, time.Second)

	_, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, armErr)
}

func TestSampler_RejectsConcurrentCapture(t *testing.T) {
	conv := &fakeConverter{hang: true}
	s := NewSampler(conv, 10, 200*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := s.Capture(context.Background())
		done <- err
	}()

	// Wait for the first capture to arm
	require.Eventually(t, func() bool {
		for _, c := range conv.Calls() {
			if c == "run" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	_, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCaptureInFlight)

	assert.ErrorIs(t, <-done, ErrCaptureTimeout)
}

func TestTransfer_CompleteOnce(t *testing.T) {
	xfer := NewTransfer()
	first := errors.New("first")
	xfer.Complete(first)
	xfer.Complete(errors.New("second"))

	assert.ErrorIs(t, xfer.Wait(context.Background()), first)
	assert.ErrorIs(t, xfer.Wait(context.Background()), first, "completed transfer keeps its result")
}
