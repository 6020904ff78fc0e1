package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/motion-sensor/internal/logic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motion-sensor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceMQTT, cfg.Source.Type)
	assert.Equal(t, "motion/sensor/accel", cfg.Source.Topic)
	assert.Equal(t, uint16(0x53), cfg.Source.I2CAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.Motion.MinInterval)
	assert.Equal(t, []logic.Kind{logic.KindShake, logic.KindFlip, logic.KindFall}, cfg.Kinds())
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  type: adxl345
  i2c_bus: "1"
  poll_interval: 10ms
motion:
  min_interval: 100ms
  kinds: [fall]
mqtt:
  broker: tcp://192.168.1.200:1883
gpio:
  enabled: true
  pin: 27
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceADXL345, cfg.Source.Type)
	assert.Equal(t, "1", cfg.Source.I2CBus)
	assert.Equal(t, 10*time.Millisecond, cfg.Source.PollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Motion.MinInterval)
	assert.Equal(t, []logic.Kind{logic.KindFall}, cfg.Kinds())
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.GPIO.Enabled)
	assert.Equal(t, 27, cfg.GPIO.Pin)

	// Untouched sections keep their defaults
	assert.Equal(t, uint16(0x53), cfg.Source.I2CAddr)
	assert.Equal(t, ":80", cfg.HTTP.Addr)
	assert.Equal(t, 256, cfg.MQTT.BufferSize)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "motion:\n  debounce: 10ms\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "motion:\n  min_interval: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source.Type = "serial" }},
		{"mqtt source without topic", func(c *Config) { c.Source.Topic = "" }},
		{"adxl345 zero poll interval", func(c *Config) {
			c.Source.Type = SourceADXL345
			c.Source.PollInterval = 0
		}},
		{"zero min interval", func(c *Config) { c.Motion.MinInterval = 0 }},
		{"negative min interval", func(c *Config) { c.Motion.MinInterval = -time.Millisecond }},
		{"negative sensitivity", func(c *Config) { c.Motion.Sensitivity = -1 }},
		{"no kinds", func(c *Config) { c.Motion.Kinds = nil }},
		{"unknown kind", func(c *Config) { c.Motion.Kinds = []string{"shake", "tilt"} }},
		{"empty broker", func(c *Config) { c.MQTT.Broker = "" }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }},
		{"negative gpio pin", func(c *Config) {
			c.GPIO.Enabled = true
			c.GPIO.Pin = -1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateAllowsDisabledOptionals(t *testing.T) {
	cfg := Default()
	cfg.Heartbeat = 0
	cfg.HTTP.Addr = ""
	cfg.GPIO.Pin = -1 // ignored while disabled
	assert.NoError(t, cfg.Validate())
}

func TestSensitivity(t *testing.T) {
	cfg := Default()
	assert.Equal(t, logic.SensitivityDefault, cfg.Sensitivity())

	cfg.Motion.DenseSamples = true
	assert.Equal(t, logic.SensitivityDense, cfg.Sensitivity())

	cfg.Motion.Sensitivity = 7
	assert.Equal(t, 7, cfg.Sensitivity())
}

func TestMotionConfig(t *testing.T) {
	cfg := Default()
	cfg.Motion.MinInterval = 80 * time.Millisecond
	cfg.Motion.DenseSamples = true

	mc := cfg.MotionConfig()
	assert.Equal(t, 80*time.Millisecond, mc.MinInterval)
	assert.Equal(t, logic.SensitivityDense, mc.Sensitivity)
}
