package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itohio/micscan/internal/log"
	"github.com/itohio/micscan/pkg/config"
	"github.com/itohio/micscan/pkg/display"
)

var (
	flagConfig       string
	flagPort         string
	flagMock         bool
	flagUI           string
	flagTarget       string
	flagLogLevel     string
	flagResetOnQuiet bool
	flagToggle       bool
)

// ErrUnknownUI is returned for an unsupported --ui value.
var ErrUnknownUI = errors.New("unknown ui")

func main() {
	rootCmd := &cobra.Command{
		Use:   "micscan",
		Short: "Microphone loudness meter that probes for a Wi-Fi network",
		Long: `micscan samples a microphone through the ADC firmware, shows the loudness
on an LED matrix and, after a run of loud cycles, switches to scan mode and
periodically reports whether the target Wi-Fi network is visible.

Use --mock to run with a simulated microphone and radio.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "Configuration file path")
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	rootCmd.Flags().BoolVar(&flagMock, "mock", false, "Use simulated microphone and radio")
	rootCmd.Flags().StringVar(&flagUI, "ui", "gui", "User interface: gui, tui or log")
	rootCmd.Flags().StringVar(&flagTarget, "target", "", "Target network SSID override")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagResetOnQuiet, "reset-on-quiet", false, "Reset the loud-cycle count on a quiet cycle")
	rootCmd.Flags().BoolVar(&flagToggle, "toggle", false, "Toggle scan mode on every trip instead of latching it on")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.Log.Level)
	log.Info("configuration loaded", "path", flagConfig, "mock", flagMock, "ui", flagUI)

	switch flagUI {
	case "gui":
		return runGUI(cfg, flagConfig, flagMock)
	case "tui":
		return runTUI(cfg, flagMock)
	case "log":
		return runLog(cfg, flagMock)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownUI, flagUI)
	}
}

// applyFlags copies explicitly set command line flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagPort != "" {
		cfg.Serial.Port = flagPort
	}
	if flagTarget != "" {
		cfg.Scan.TargetSSID = flagTarget
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagMock {
		cfg.Scan.Backend = "mock"
	}
	if cmd.Flags().Changed("reset-on-quiet") {
		cfg.Meter.ResetOnQuiet = flagResetOnQuiet
	}
	if cmd.Flags().Changed("toggle") {
		cfg.Meter.ToggleOnTrip = flagToggle
	}
}

// runLog runs headless, rendering through the logger until interrupted.
func runLog(cfg *config.Config, useMock bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := display.Fanout{
		display.NewLog(cfg.Matrix),
		display.NewTerminal(os.Stdout, cfg.Matrix),
	}

	s, err := newSession(cfg, useMock, renderer)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Run(ctx)
}
