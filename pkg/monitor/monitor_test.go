package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/micscan/pkg/adc"
	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/level"
	"github.com/itohio/micscan/pkg/meter"
	"github.com/itohio/micscan/pkg/scan"
)

// Constant batch values and the intensity they quantize to with the default
// 3.3 V, 12 bit, 5x20 step configuration.
const (
	rawSilent = 2048 // intensity 0
	rawQuiet  = 2119 // intensity 3
	rawLoud   = 2181 // intensity 6
)

// scriptedSampler returns one constant batch per scripted value, then blocks
// until ctx is done.
type scriptedSampler struct {
	mu     sync.Mutex
	script []uint16
	n      int
	err    error // Returned once the script is exhausted, when set
}

func newScriptedSampler(values ...uint16) *scriptedSampler {
	return &scriptedSampler{script: values, n: 200}
}

func (s *scriptedSampler) Capture(ctx context.Context) (adc.Batch, error) {
	s.mu.Lock()
	if len(s.script) > 0 {
		v := s.script[0]
		s.script = s.script[1:]
		s.mu.Unlock()

		batch := make(adc.Batch, s.n)
		for i := range batch {
			batch[i] = v
		}
		return batch, nil
	}
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type matrixRecorder struct {
	mu     sync.Mutex
	levels []int
}

func (m *matrixRecorder) RenderIntensity(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = append(m.levels, level)
}

func (m *matrixRecorder) Levels() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.levels...)
}

func newTestLoop(meterCfg config.MeterConfig, sampler Capturer) (*Loop, *matrixRecorder, *meter.Counter) {
	cfg := config.Default()
	matrix := &matrixRecorder{}
	counter := meter.New(meterCfg)
	q := level.NewQuantizer(cfg.ADC, cfg.Quantizer)
	return New(sampler, q, matrix, counter), matrix, counter
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestCycle_Order(t *testing.T) {
	l, matrix, counter := newTestLoop(config.Default().Meter, newScriptedSampler(rawLoud, rawQuiet, rawSilent))

	r, err := l.Cycle(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2181.0, r.Power, 1e-9)
	assert.InDelta(t, 0.2143, r.Volts, 1e-3)
	assert.Equal(t, 6, r.Intensity)
	assert.True(t, r.Event.Loud)
	assert.Equal(t, 1, r.Event.Count)

	r, err = l.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, r.Intensity)
	assert.False(t, r.Event.Loud)

	r, err = l.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Intensity)

	assert.Equal(t, []int{6, 3, 0}, matrix.Levels())
	assert.Equal(t, 1, counter.Count())
}

func TestScenario_TenLoudCycles(t *testing.T) {
	l, _, counter := newTestLoop(config.Default().Meter, newScriptedSampler(repeat(rawLoud, 10)...))

	var last Reading
	for i := 0; i < 10; i++ {
		r, err := l.Cycle(context.Background())
		require.NoError(t, err)
		if i < 9 {
			assert.False(t, r.Event.ScanMode, "cycle %d", i+1)
		}
		last = r
	}

	assert.True(t, last.Event.Tripped)
	assert.True(t, counter.ScanMode())
	assert.Equal(t, 0, counter.Count())
}

func TestScenario_DipSticky(t *testing.T) {
	script := []uint16{rawLoud, rawLoud, rawQuiet}
	script = append(script, repeat(rawLoud, 8)...)
	l, _, counter := newTestLoop(config.Default().Meter, newScriptedSampler(script...))

	for i := 1; i <= 11; i++ {
		r, err := l.Cycle(context.Background())
		require.NoError(t, err)
		if i < 11 {
			assert.False(t, r.Event.Tripped, "cycle %d", i)
		} else {
			assert.True(t, r.Event.Tripped, "trips on cycle 11")
		}
	}

	assert.True(t, counter.ScanMode())
	assert.Equal(t, 0, counter.Count())
}

func TestScenario_DipResetOnQuiet(t *testing.T) {
	cfg := config.Default().Meter
	cfg.ResetOnQuiet = true

	script := []uint16{rawLoud, rawLoud, rawQuiet}
	script = append(script, repeat(rawLoud, 8)...)
	l, _, counter := newTestLoop(cfg, newScriptedSampler(script...))

	for i := 1; i <= 11; i++ {
		r, err := l.Cycle(context.Background())
		require.NoError(t, err)
		assert.False(t, r.Event.Tripped, "cycle %d", i)
	}

	assert.False(t, counter.ScanMode())
	assert.Equal(t, 8, counter.Count())
}

func TestOnCycle_Callbacks(t *testing.T) {
	l, _, _ := newTestLoop(config.Default().Meter, newScriptedSampler(rawLoud, rawSilent))

	var readings []Reading
	l.OnCycle(func(r Reading) { readings = append(readings, r) })

	_, err := l.Cycle(context.Background())
	require.NoError(t, err)
	_, err = l.Cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.Equal(t, 6, readings[0].Intensity)
	assert.Equal(t, 0, readings[1].Intensity)
}

func TestRun_StopsOnContext(t *testing.T) {
	sampler := newScriptedSampler(rawLoud, rawLoud, rawLoud)
	l, matrix, _ := newTestLoop(config.Default().Meter, sampler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return len(matrix.Levels()) == 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_CaptureTimeoutIsFatal(t *testing.T) {
	sampler := newScriptedSampler(rawLoud)
	sampler.err = adc.ErrCaptureTimeout
	l, matrix, _ := newTestLoop(config.Default().Meter, sampler)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, adc.ErrCaptureTimeout)
	assert.Equal(t, []int{6}, matrix.Levels())
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []scan.Status
}

func (s *statusRecorder) RenderStatus(st scan.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
}

func (s *statusRecorder) Last() (scan.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return scan.Inactive, false
	}
	return s.statuses[len(s.statuses)-1], true
}

// TestEndToEnd_MockHardware drives the simulated microphone loud until scan
// mode trips, then lets the scheduler find the target network.
func TestEndToEnd_MockHardware(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.SamplePeriod = 10 * time.Microsecond
	cfg.Scan.Interval = 5 * time.Millisecond
	cfg.Scan.TargetSSID = "target"

	mic := adc.NewMock(&cfg.Mock)
	mic.Force(true)
	sampler := adc.NewSampler(mic, cfg.ADC.Samples, cfg.ADC.CaptureTimeout)

	matrix := &matrixRecorder{}
	counter := meter.New(cfg.Meter)
	loop := New(sampler, level.NewQuantizer(cfg.ADC, cfg.Quantizer), matrix, counter)

	status := &statusRecorder{}
	radio := scan.NewMock([]string{"other", "target"}, time.Millisecond)
	scheduler := scan.NewScheduler(cfg.Scan, radio, counter, status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	defer scheduler.Stop()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, counter.ScanMode, 2*time.Second, time.Millisecond)
	for _, lvl := range matrix.Levels() {
		assert.GreaterOrEqual(t, lvl, cfg.Meter.LoudThreshold)
	}

	require.Eventually(t, func() bool {
		st, ok := status.Last()
		return ok && st == scan.Found
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
