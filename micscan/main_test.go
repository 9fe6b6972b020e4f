package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/meter"
	"github.com/itohio/micscan/pkg/monitor"
	"github.com/itohio/micscan/pkg/scan"
)

func resetFlags() {
	flagPort, flagTarget, flagLogLevel = "", "", ""
	flagMock, flagResetOnQuiet, flagToggle = false, false, false
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "micscan"}
	cmd.Flags().BoolVar(&flagResetOnQuiet, "reset-on-quiet", false, "")
	cmd.Flags().BoolVar(&flagToggle, "toggle", false, "")
	return cmd
}

func TestApplyFlags_Overrides(t *testing.T) {
	resetFlags()
	defer resetFlags()

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--reset-on-quiet", "--toggle"}))
	flagPort = "/dev/ttyUSB1"
	flagTarget = "lab"
	flagLogLevel = "debug"
	flagMock = true

	cfg := config.Default()
	applyFlags(cmd, cfg)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, "lab", cfg.Scan.TargetSSID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mock", cfg.Scan.Backend)
	assert.True(t, cfg.Meter.ResetOnQuiet)
	assert.True(t, cfg.Meter.ToggleOnTrip)
}

func TestApplyFlags_UnsetFlagsKeepConfig(t *testing.T) {
	resetFlags()
	defer resetFlags()

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg := config.Default()
	cfg.Meter.ResetOnQuiet = true
	applyFlags(cmd, cfg)

	assert.Equal(t, config.Default().Serial.Port, cfg.Serial.Port)
	assert.Equal(t, config.Default().Scan.TargetSSID, cfg.Scan.TargetSSID)
	assert.Equal(t, "nmcli", cfg.Scan.Backend)
	assert.True(t, cfg.Meter.ResetOnQuiet, "config value kept when flag not given")
	assert.False(t, cfg.Meter.ToggleOnTrip)
}

type nopRenderer struct {
	mu       sync.Mutex
	statuses []scan.Status
}

func (r *nopRenderer) RenderIntensity(int) {}

func (r *nopRenderer) RenderStatus(s scan.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *nopRenderer) last() (scan.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return scan.Inactive, false
	}
	return r.statuses[len(r.statuses)-1], true
}

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Scan.Backend = "mock"
	cfg.Scan.Interval = 5 * time.Millisecond
	cfg.Scan.TargetSSID = "target"
	cfg.Mock.SamplePeriod = 10 * time.Microsecond
	cfg.Mock.Networks = []string{"target"}
	cfg.Mock.ScanDuration = time.Millisecond
	return cfg
}

func TestSession_MockRun(t *testing.T) {
	cfg := mockConfig()
	renderer := &nopRenderer{}

	s, err := newSession(cfg, true, renderer)
	require.NoError(t, err)
	require.NotNil(t, s.mic)
	s.mic.Force(true)

	var mu sync.Mutex
	cycles := 0
	s.loop.OnCycle(func(monitor.Reading) {
		mu.Lock()
		cycles++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		st, ok := renderer.last()
		return ok && st == scan.Found
	}, 2*time.Second, time.Millisecond)
	assert.True(t, s.counter.ScanMode())

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, s.Close())

	mu.Lock()
	assert.GreaterOrEqual(t, cycles, cfg.Meter.TripThreshold)
	mu.Unlock()
}

func TestSession_JoinFailureTearsDownRadio(t *testing.T) {
	cfg := mockConfig()
	cfg.WiFi.SSID = "home"

	s, err := newSession(cfg, true, &nopRenderer{})
	require.NoError(t, err)

	radio, ok := s.radio.(*scan.Mock)
	require.True(t, ok)
	radio.FailJoin(errors.New("association rejected"))
	s.join(context.Background())

	assert.ErrorIs(t, s.radio.Start(func(string) {}), scan.ErrRadioDown)
}

func TestSession_JoinSkippedWithoutSSID(t *testing.T) {
	cfg := mockConfig()

	s, err := newSession(cfg, true, &nopRenderer{})
	require.NoError(t, err)

	assert.Len(t, s.id, 36)
	s.join(context.Background())
	assert.NoError(t, s.radio.Start(func(string) {}))
}

func TestTUIModel(t *testing.T) {
	cfg := mockConfig()
	s, err := newSession(cfg, true, &nopRenderer{})
	require.NoError(t, err)

	m := tuiModel{cfg: cfg, session: s}

	next, _ := m.Update(intensityMsg(7))
	next, _ = next.Update(readingMsg(monitor.Reading{Intensity: 7, Volts: 0.25}))
	next, _ = next.Update(statusMsg(scan.NotFound))
	m = next.(tuiModel)

	assert.Equal(t, 7, m.level)
	assert.Equal(t, scan.NotFound, m.status)

	view := m.View()
	assert.Contains(t, view, "Disconnected")
	assert.Contains(t, view, "0.250 V")
	assert.Contains(t, view, "scan mode off")
	assert.Contains(t, view, "l loud")
}

func TestTUIModel_CounterUpdates(t *testing.T) {
	cfg := mockConfig()
	s, err := newSession(cfg, true, &nopRenderer{})
	require.NoError(t, err)

	var m tea.Model = tuiModel{cfg: cfg, session: s}
	s.counter.OnUpdate(func(ev meter.Event) {
		m, _ = m.Update(eventMsg(ev))
	})

	for i := 0; i < 3; i++ {
		s.counter.OnCycle(cfg.Meter.LoudThreshold)
	}
	assert.Contains(t, m.View(), "3/10")

	for i := 0; i < 7; i++ {
		s.counter.OnCycle(cfg.Meter.LoudThreshold)
	}
	view := m.View()
	assert.Contains(t, view, "SCAN MODE")
	assert.Contains(t, view, "0/10")
}
