package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/adc"
	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/display"
	"github.com/itohio/micscan/pkg/level"
	"github.com/itohio/micscan/pkg/meter"
	"github.com/itohio/micscan/pkg/monitor"
	"github.com/itohio/micscan/pkg/scan"
)

// session is one connected measurement chain: converter, main loop, radio
// and scan scheduler.
type session struct {
	id  string // Tags the session's log lines
	cfg *config.Config

	conv      adc.Converter
	closeConv func() error
	mic       *adc.Mock // Set when the microphone is simulated

	counter   *meter.Counter
	loop      *monitor.Loop
	radio     scan.Radio
	scheduler *scan.Scheduler
}

// newSession connects the converter and the radio and wires the chain to renderer.
func newSession(cfg *config.Config, useMock bool, renderer display.Renderer) (*session, error) {
	s := &session{id: uuid.New().String(), cfg: cfg}

	if useMock {
		mockCfg := cfg.Mock
		s.mic = adc.NewMock(&mockCfg)
		s.conv = s.mic
		s.closeConv = func() error { return s.mic.Drain() }
		log.Info("using simulated microphone")
	} else {
		dev := adc.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
		if err := dev.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Serial.Port, err)
		}
		s.conv = dev
		s.closeConv = dev.Close
		log.Info("connected to serial port", "port", cfg.Serial.Port)
	}

	sampler := adc.NewSampler(s.conv, cfg.ADC.Samples, cfg.ADC.CaptureTimeout)
	quantizer := level.NewQuantizer(cfg.ADC, cfg.Quantizer)
	s.counter = meter.New(cfg.Meter)
	s.loop = monitor.New(sampler, quantizer, renderer, s.counter)

	s.radio = newRadio(cfg)
	s.scheduler = scan.NewScheduler(cfg.Scan, s.radio, s.counter, renderer)

	return s, nil
}

// newRadio creates the configured radio. A radio that cannot be brought up
// is returned closed so every scan start fails and gets logged.
func newRadio(cfg *config.Config) scan.Radio {
	if cfg.Scan.Backend == "mock" {
		return scan.NewMock(cfg.Mock.Networks, cfg.Mock.ScanDuration)
	}

	radio := scan.NewNmcli(cfg.Scan.Timeout)
	if !scan.Available() {
		log.Error("failed to initialize radio", "err", "nmcli not found")
		radio.Close()
	}
	return radio
}

// join associates with the configured network. Failure is logged and tears
// the radio down; the session keeps running.
func (s *session) join(ctx context.Context) {
	w := s.cfg.WiFi
	if w.SSID == "" {
		return
	}

	log.Info("joining network", "ssid", w.SSID)
	if err := s.radio.Join(ctx, w.SSID, w.Password, w.JoinTimeout); err != nil {
		log.Error("failed to join network", "ssid", w.SSID, "err", err)
		if err := s.radio.Close(); err != nil {
			log.Warn("failed to close radio", "err", err)
		}
		return
	}
	log.Info("joined network", "ssid", w.SSID)
}

// Run joins the network, starts the scheduler and runs the main loop until
// ctx is done or a capture fails.
func (s *session) Run(ctx context.Context) error {
	logger := log.With("session", s.id)
	logger.Info("session started", "target", s.cfg.Scan.TargetSSID)
	defer logger.Info("session finished")

	s.join(ctx)

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	defer s.scheduler.Stop()

	return s.loop.Run(ctx)
}

// Close releases the converter and the radio.
func (s *session) Close() error {
	s.scheduler.Stop()
	if err := s.radio.Close(); err != nil {
		log.Warn("failed to close radio", "err", err)
	}
	return s.closeConv()
}
