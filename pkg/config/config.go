package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Log    LogConfig    `yaml:"log"`
	Mock   MockConfig   `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // Bounds every blocking response read
}

// SweepConfig contains sweep parameters and the current-sense resistor.
type SweepConfig struct {
	N        int     `yaml:"n"`        // Repetitions per output level
	Start    int     `yaml:"start"`    // First output level (DAC units)
	Stop     int     `yaml:"stop"`     // Last output level, inclusive
	Step     int     `yaml:"step"`     // Output level increment
	Resistor float64 `yaml:"resistor"` // Current-sense resistance (ohm)
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MockConfig contains simulated instrument configuration.
type MockConfig struct {
	Identity          string  `yaml:"identity"`           // Response to *IDN?
	NoiseLevel        float64 `yaml:"noise_level"`        // Gaussian noise on inputs (V)
	Supply            float64 `yaml:"supply"`             // DAC full-scale voltage (V)
	Resistor          float64 `yaml:"resistor"`           // Simulated sense resistor (ohm)
	SaturationCurrent float64 `yaml:"saturation_current"` // Diode saturation current (A)
	IdealityFactor    float64 `yaml:"ideality_factor"`    // Diode ideality factor
	ThermalVoltage    float64 `yaml:"thermal_voltage"`    // kT/q (V)
	Seed              int64   `yaml:"seed"`               // Noise generator seed
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    9600,
			ReadTimeout: 2 * time.Second,
		},
		Sweep: SweepConfig{
			N:        2,
			Start:    0,
			Stop:     1023,
			Step:     1,
			Resistor: 1.5,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mock: MockConfig{
			Identity:          "Arduino VISA firmware v1.0.0",
			NoiseLevel:        0.0,
			Supply:            3.3,
			Resistor:          220,
			SaturationCurrent: 1e-18,
			IdealityFactor:    2.0,
			ThermalVoltage:    0.02585,
			Seed:              1,
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

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	return logger, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
// Sweep.Start is left alone since zero is a meaningful first level.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Sweep.N == 0 {
		c.Sweep.N = def.Sweep.N
	}
	if c.Sweep.Stop == 0 {
		c.Sweep.Stop = def.Sweep.Stop
	}
	if c.Sweep.Step == 0 {
		c.Sweep.Step = def.Sweep.Step
	}
	if c.Sweep.Resistor == 0 {
		c.Sweep.Resistor = def.Sweep.Resistor
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Mock.Identity == "" {
		c.Mock.Identity = def.Mock.Identity
	}
	if c.Mock.Supply == 0 {
		c.Mock.Supply = def.Mock.Supply
	}
	if c.Mock.Resistor == 0 {
		c.Mock.Resistor = def.Mock.Resistor
	}
	if c.Mock.SaturationCurrent == 0 {
		c.Mock.SaturationCurrent = def.Mock.SaturationCurrent
	}
	if c.Mock.IdealityFactor == 0 {
		c.Mock.IdealityFactor = def.Mock.IdealityFactor
	}
	if c.Mock.ThermalVoltage == 0 {
		c.Mock.ThermalVoltage = def.Mock.ThermalVoltage
	}
}
