package adc

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/micscan/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMockConfig() *config.MockConfig {
	cfg := config.Default().Mock
	cfg.SamplePeriod = 10 * time.Microsecond
	cfg.Noise = 0
	return &cfg
}

func TestMock_ForcedLevels(t *testing.T) {
	cfg := testMockConfig()
	m := NewMock(cfg)
	s := NewSampler(m, 200, time.Second)

	m.Force(true)
	batch, err := s.Capture(context.Background())
	require.NoError(t, err)

	var lo, hi uint16 = MaxReading, 0
	for _, v := range batch {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	assert.Greater(t, int(hi)-int(lo), int(cfg.LoudAmp), "loud burst should swing wider than its amplitude")

	m.Force(false)
	batch, err = s.Capture(context.Background())
	require.NoError(t, err)
	for _, v := range batch {
		assert.InDelta(t, midScale, int(v), cfg.QuietAmp+1)
	}
}

func TestMock_BurstSchedule(t *testing.T) {
	cfg := testMockConfig()
	cfg.LoudPeriod = 10 * time.Second
	cfg.LoudDuration = 2 * time.Second
	m := NewMock(cfg)

	assert.True(t, m.loud(m.start.Add(500*time.Millisecond)))
	assert.False(t, m.loud(m.start.Add(3*time.Second)))
	assert.True(t, m.loud(m.start.Add(11*time.Second)))

	m.Force(false)
	assert.False(t, m.loud(m.start.Add(500*time.Millisecond)))
	m.Release()
	assert.True(t, m.loud(m.start.Add(500*time.Millisecond)))
}

func TestMock_ArmTwice(t *testing.T) {
	m := NewMock(testMockConfig())

	_, err := m.Arm(make([]uint16, 4))
	require.NoError(t, err)
	_, err = m.Arm(make([]uint16, 4))
	assert.ErrorIs(t, err, ErrTransferArmed)

	require.NoError(t, m.Drain())
	_, err = m.Arm(make([]uint16, 4))
	assert.NoError(t, err)
}

func TestClampReading(t *testing.T) {
	assert.Equal(t, uint16(0), clampReading(-5))
	assert.Equal(t, uint16(MaxReading), clampReading(5000))
	assert.Equal(t, uint16(2048), clampReading(2048.4))
}
