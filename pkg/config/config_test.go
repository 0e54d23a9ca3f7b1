package config

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 2, cfg.Sweep.N)
	assert.Equal(t, 0, cfg.Sweep.Start)
	assert.Equal(t, 1023, cfg.Sweep.Stop)
	assert.Equal(t, 1, cfg.Sweep.Step)
	assert.Equal(t, 1.5, cfg.Sweep.Resistor)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, float64(220), cfg.Mock.Resistor)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
  baud_rate: 115200
  read_timeout: 500ms

sweep:
  n: 5
  start: 40
  stop: 500
  step: 10
  resistor: 220

log:
  level: debug

mock:
  noise_level: 0.002
  seed: 42
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 5, cfg.Sweep.N)
	assert.Equal(t, 40, cfg.Sweep.Start)
	assert.Equal(t, 500, cfg.Sweep.Stop)
	assert.Equal(t, 10, cfg.Sweep.Step)
	assert.Equal(t, float64(220), cfg.Sweep.Resistor)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.002, cfg.Mock.NoiseLevel)
	assert.Equal(t, int64(42), cfg.Mock.Seed)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "COM4"
sweep:
  stop: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Missing or zero fields fall back to defaults
	assert.Equal(t, "COM4", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 1023, cfg.Sweep.Stop)
	assert.Equal(t, 1.5, cfg.Sweep.Resistor)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Sweep.N = 7

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 7, loaded.Sweep.N)
	assert.Equal(t, cfg.Serial.ReadTimeout, loaded.Serial.ReadTimeout)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	cfg.Log.Level = "loud"
	logger, err = cfg.Logger()
	assert.Error(t, err)
	assert.Nil(t, logger)
}
