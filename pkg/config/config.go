package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate when a value cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	ADC       ADCConfig       `yaml:"adc"`
	Serial    SerialConfig    `yaml:"serial"`
	Quantizer QuantizerConfig `yaml:"quantizer"`
	Meter     MeterConfig     `yaml:"meter"`
	Scan      ScanConfig      `yaml:"scan"`
	WiFi      WiFiConfig      `yaml:"wifi"`
	Matrix    MatrixConfig    `yaml:"matrix"`
	Mock      MockConfig      `yaml:"mock"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ADCConfig describes the converter the microphone is sampled with.
type ADCConfig struct {
	Samples        int           `yaml:"samples"`         // Readings per capture batch
	FullScale      float64       `yaml:"full_scale"`      // Reference voltage (V)
	Resolution     uint          `yaml:"resolution"`      // Converter resolution in bits
	CaptureTimeout time.Duration `yaml:"capture_timeout"` // Upper bound for one capture (0 = wait forever)
}

// SerialConfig contains serial port configuration for the firmware link.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// QuantizerConfig contains the intensity step math.
// The step is FullScale / Divisions / Substeps.
type QuantizerConfig struct {
	Divisions int `yaml:"divisions"`
	Substeps  int `yaml:"substeps"`
}

// MeterConfig contains the loud-event counter parameters.
type MeterConfig struct {
	LoudThreshold int  `yaml:"loud_threshold"` // Intensity at or above which a cycle is loud
	TripThreshold int  `yaml:"trip_threshold"` // Loud cycles needed to trip scan mode
	ResetOnQuiet  bool `yaml:"reset_on_quiet"` // Reset the count on a quiet cycle
	ToggleOnTrip  bool `yaml:"toggle_on_trip"` // Flip scan mode on trip instead of latching it on
}

// ScanConfig contains the network probe parameters.
type ScanConfig struct {
	Backend    string        `yaml:"backend"` // nmcli or mock
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"` // Upper bound for one nmcli scan
	TargetSSID string        `yaml:"target_ssid"`
}

// WiFiConfig contains the credentials of the network joined at start up.
// An empty SSID skips joining.
type WiFiConfig struct {
	SSID        string        `yaml:"ssid"`
	Password    string        `yaml:"password"`
	JoinTimeout time.Duration `yaml:"join_timeout"`
}

// MatrixConfig contains the LED matrix geometry.
type MatrixConfig struct {
	Rows      int `yaml:"rows"`
	Cols      int `yaml:"cols"`
	FullLevel int `yaml:"full_level"` // Intensity at which every LED is lit
}

// MockConfig contains simulated microphone and radio configuration.
type MockConfig struct {
	SamplePeriod time.Duration `yaml:"sample_period"` // Time between two simulated readings
	ToneHz       float64       `yaml:"tone_hz"`       // Simulated tone frequency
	QuietAmp     float64       `yaml:"quiet_amp"`     // Tone amplitude while quiet (ADC counts)
	LoudAmp      float64       `yaml:"loud_amp"`      // Tone amplitude during a burst (ADC counts)
	Noise        float64       `yaml:"noise"`         // Noise amplitude (ADC counts)
	LoudDuration time.Duration `yaml:"loud_duration"` // Burst duration
	LoudPeriod   time.Duration `yaml:"loud_period"`   // Time between bursts
	Networks     []string      `yaml:"networks"`      // SSIDs reported by the mock scanner
	ScanDuration time.Duration `yaml:"scan_duration"` // Simulated scan duration
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		ADC: ADCConfig{
			Samples:        200,
			FullScale:      3.3,
			Resolution:     12,
			CaptureTimeout: time.Second,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Quantizer: QuantizerConfig{
			Divisions: 5,
			Substeps:  20,
		},
		Meter: MeterConfig{
			LoudThreshold: 6,
			TripThreshold: 10,
			ResetOnQuiet:  false,
			ToggleOnTrip:  false,
		},
		Scan: ScanConfig{
			Backend:    "nmcli",
			Interval:   2 * time.Second,
			Timeout:    15 * time.Second,
			TargetSSID: "A54 de Thiago",
		},
		WiFi: WiFiConfig{
			JoinTimeout: 10 * time.Second,
		},
		Matrix: MatrixConfig{
			Rows:      5,
			Cols:      5,
			FullLevel: 25,
		},
		Mock: MockConfig{
			SamplePeriod: 20 * time.Microsecond,
			ToneHz:       440,
			QuietAmp:     100,
			LoudAmp:      1500,
			Noise:        20,
			LoudDuration: 3 * time.Second,
			LoudPeriod:   15 * time.Second,
			Networks:     []string{"home", "A54 de Thiago", "office"},
			ScanDuration: 500 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first value that would break the metering core.
func (c *Config) Validate() error {
	switch {
	case c.ADC.Samples <= 0:
		return fmt.Errorf("%w: adc.samples must be positive, got %d", ErrInvalidConfig, c.ADC.Samples)
	case c.ADC.FullScale <= 0:
		return fmt.Errorf("%w: adc.full_scale must be positive, got %g", ErrInvalidConfig, c.ADC.FullScale)
	case c.ADC.Resolution == 0 || c.ADC.Resolution > 16:
		return fmt.Errorf("%w: adc.resolution must be 1-16 bits, got %d", ErrInvalidConfig, c.ADC.Resolution)
	case c.Quantizer.Divisions <= 0 || c.Quantizer.Substeps <= 0:
		return fmt.Errorf("%w: quantizer divisions and substeps must be positive", ErrInvalidConfig)
	case c.Meter.TripThreshold <= 0:
		return fmt.Errorf("%w: meter.trip_threshold must be positive, got %d", ErrInvalidConfig, c.Meter.TripThreshold)
	case c.Scan.Interval <= 0:
		return fmt.Errorf("%w: scan.interval must be positive, got %s", ErrInvalidConfig, c.Scan.Interval)
	case c.Scan.Backend != "nmcli" && c.Scan.Backend != "mock":
		return fmt.Errorf("%w: unknown scan.backend %q", ErrInvalidConfig, c.Scan.Backend)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.ADC.Samples == 0 {
		c.ADC.Samples = def.ADC.Samples
	}
	if c.ADC.FullScale == 0 {
		c.ADC.FullScale = def.ADC.FullScale
	}
	if c.ADC.Resolution == 0 {
		c.ADC.Resolution = def.ADC.Resolution
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Quantizer.Divisions == 0 {
		c.Quantizer.Divisions = def.Quantizer.Divisions
	}
	if c.Quantizer.Substeps == 0 {
		c.Quantizer.Substeps = def.Quantizer.Substeps
	}

	// An explicit loud_threshold of 0 marks every cycle loud. Load starts from
	// Default, so a missing key already keeps the default.
	if c.Meter.TripThreshold == 0 {
		c.Meter.TripThreshold = def.Meter.TripThreshold
	}

	if c.Scan.Backend == "" {
		c.Scan.Backend = def.Scan.Backend
	}
	if c.Scan.Interval == 0 {
		c.Scan.Interval = def.Scan.Interval
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = def.Scan.Timeout
	}
	if c.Scan.TargetSSID == "" {
		c.Scan.TargetSSID = def.Scan.TargetSSID
	}

	if c.WiFi.JoinTimeout == 0 {
		c.WiFi.JoinTimeout = def.WiFi.JoinTimeout
	}

	if c.Matrix.Rows == 0 {
		c.Matrix.Rows = def.Matrix.Rows
	}
	if c.Matrix.Cols == 0 {
		c.Matrix.Cols = def.Matrix.Cols
	}
	if c.Matrix.FullLevel == 0 {
		c.Matrix.FullLevel = def.Matrix.FullLevel
	}

	if c.Mock.SamplePeriod == 0 {
		c.Mock.SamplePeriod = def.Mock.SamplePeriod
	}
	if c.Mock.ToneHz == 0 {
		c.Mock.ToneHz = def.Mock.ToneHz
	}
	if c.Mock.LoudPeriod == 0 {
		c.Mock.LoudPeriod = def.Mock.LoudPeriod
	}
	if c.Mock.LoudDuration == 0 {
		c.Mock.LoudDuration = def.Mock.LoudDuration
	}
	if len(c.Mock.Networks) == 0 {
		c.Mock.Networks = def.Mock.Networks
	}
	if c.Mock.ScanDuration == 0 {
		c.Mock.ScanDuration = def.Mock.ScanDuration
	}
}
