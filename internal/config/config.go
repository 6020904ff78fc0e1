// Package config loads the motion-sensor daemon configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/motion-sensor/internal/gpio"
	"github.com/sweeney/motion-sensor/internal/logic"
	"github.com/sweeney/motion-sensor/internal/motion"
	"github.com/sweeney/motion-sensor/internal/mqtt"
	"github.com/sweeney/motion-sensor/internal/sensor"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Source types.
const (
	SourceMQTT    = "mqtt"
	SourceADXL345 = "adxl345"
)

// Config is the daemon configuration.
type Config struct {
	Source    SourceConfig  `yaml:"source"`
	Motion    MotionConfig  `yaml:"motion"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      HTTPConfig    `yaml:"http"`
	GPIO      GPIOConfig    `yaml:"gpio"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// SourceConfig selects where samples come from.
type SourceConfig struct {
	Type         string        `yaml:"type"`  // mqtt, adxl345
	Topic        string        `yaml:"topic"` // mqtt only
	I2CBus       string        `yaml:"i2c_bus"`
	I2CAddr      uint16        `yaml:"i2c_addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MotionConfig controls the sample gate and detectors.
type MotionConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	// Sensitivity 0 picks the default for the sample density.
	Sensitivity  int      `yaml:"sensitivity"`
	DenseSamples bool     `yaml:"dense_samples"`
	Kinds        []string `yaml:"kinds"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	BufferSize int    `yaml:"buffer_size"`
}

// HTTPConfig contains status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// GPIOConfig contains indicator line settings.
type GPIOConfig struct {
	Enabled bool `yaml:"enabled"`
	Pin     int  `yaml:"pin"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Type:         SourceMQTT,
			Topic:        sensor.DefaultTopic,
			I2CAddr:      sensor.DefaultADXL345Addr,
			PollInterval: 20 * time.Millisecond,
		},
		Motion: MotionConfig{
			MinInterval: motion.DefaultMinInterval,
			Kinds:       []string{"shake", "flip", "fall"},
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://127.0.0.1:1883",
			BufferSize: mqtt.DefaultBufferSize,
		},
		HTTP:      HTTPConfig{Addr: ":80"},
		GPIO:      GPIOConfig{Pin: gpio.DefaultPin},
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads a YAML file and merges it over Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse merges YAML data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Source.Type {
	case SourceMQTT:
		if c.Source.Topic == "" {
			return fmt.Errorf("%w: source.topic is required for mqtt source", ErrInvalidConfig)
		}
	case SourceADXL345:
		if c.Source.PollInterval <= 0 {
			return fmt.Errorf("%w: source.poll_interval must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidConfig, c.Source.Type)
	}

	if c.Motion.MinInterval <= 0 {
		return fmt.Errorf("%w: motion.min_interval must be positive", ErrInvalidConfig)
	}
	if c.Motion.Sensitivity < 0 {
		return fmt.Errorf("%w: motion.sensitivity must not be negative", ErrInvalidConfig)
	}
	if len(c.Motion.Kinds) == 0 {
		return fmt.Errorf("%w: motion.kinds must name at least one kind", ErrInvalidConfig)
	}
	for _, k := range c.Motion.Kinds {
		if _, err := logic.ParseKind(k); err != nil {
			return fmt.Errorf("%w: motion.kinds: %v", ErrInvalidConfig, err)
		}
	}

	if c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required", ErrInvalidConfig)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative", ErrInvalidConfig)
	}
	if c.GPIO.Enabled && c.GPIO.Pin < 0 {
		return fmt.Errorf("%w: gpio.pin must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Kinds returns the configured event kinds. Call after Validate.
func (c Config) Kinds() []logic.Kind {
	out := make([]logic.Kind, 0, len(c.Motion.Kinds))
	for _, s := range c.Motion.Kinds {
		k, err := logic.ParseKind(s)
		if err != nil {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Sensitivity returns the shake sensitivity, resolving 0 by sample density.
func (c Config) Sensitivity() int {
	if c.Motion.Sensitivity > 0 {
		return c.Motion.Sensitivity
	}
	if c.Motion.DenseSamples {
		return logic.SensitivityDense
	}
	return logic.SensitivityDefault
}

// MotionConfig returns the classifier configuration.
func (c Config) MotionConfig() motion.Config {
	return motion.Config{
		MinInterval: c.Motion.MinInterval,
		Sensitivity: c.Sensitivity(),
	}
}
