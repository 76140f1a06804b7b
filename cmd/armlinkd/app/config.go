package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"armlink/internal/kinematics"
	"armlink/internal/telemetry"
)

const (
	defaultTickRateHz    = 2.0
	defaultStatsInterval = 30 * time.Second
	simFrameInterval     = 20 * time.Millisecond
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Serial   SerialConfig   `yaml:"serial"`
	Arm      ArmConfig      `yaml:"arm"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() (slog.Level, error) {
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level '%s': %w", s.LogLevel, err)
	}
	return level, nil
}

// SerialConfig represents the sensor connection settings
type SerialConfig struct {
	Port          string `yaml:"port"`          // empty means auto-discover
	BaudRate      int    `yaml:"baudRate"`      // default 115200
	ReadTimeoutMs int    `yaml:"readTimeoutMs"` // default 1000
	StopTimeoutMs int    `yaml:"stopTimeoutMs"` // default 1000
	Simulate      bool   `yaml:"simulate"`      // synthetic frames, no device
}

// ControllerConfig converts the serial settings to a telemetry controller
// configuration.
func (s SerialConfig) ControllerConfig() telemetry.Config {
	return telemetry.Config{
		Port:        s.Port,
		BaudRate:    s.BaudRate,
		ReadTimeout: time.Duration(s.ReadTimeoutMs) * time.Millisecond,
		StopTimeout: time.Duration(s.StopTimeoutMs) * time.Millisecond,
	}
}

// ArmConfig represents the kinematic chain settings
type ArmConfig struct {
	LinkLengths []float64 `yaml:"linkLengths"` // exactly six, default 10,10,10,5,5,2
	RawScale    float64   `yaml:"rawScale"`    // raw-to-degree factor, default 360/1024
}

// Joints builds the six joint definitions from the configured lengths and
// scale.
func (a ArmConfig) Joints() [kinematics.NumJoints]kinematics.Joint {
	lengths := kinematics.DefaultLengths
	for i, l := range a.LinkLengths {
		lengths[i] = l
	}

	joints := kinematics.DefaultJoints(lengths)
	if a.RawScale > 0 {
		for i := range joints {
			joints[i].Scale = a.RawScale
		}
	}
	return joints
}

// ConsumerConfig represents the pose consumer loop settings
type ConsumerConfig struct {
	TickRateHz       float64 `yaml:"tickRateHz"`       // pose readout rate, default 2
	StatsIntervalSec int     `yaml:"statsIntervalSec"` // frame counter readout, default 30
}

// TickInterval returns the consumer tick period.
func (c ConsumerConfig) TickInterval() time.Duration {
	rate := c.TickRateHz
	if rate <= 0 {
		rate = defaultTickRateHz
	}
	return time.Duration(float64(time.Second) / rate)
}

// StatsInterval returns the frame counter readout period.
func (c ConsumerConfig) StatsInterval() time.Duration {
	if c.StatsIntervalSec <= 0 {
		return defaultStatsInterval
	}
	return time.Duration(c.StatsIntervalSec) * time.Second
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{}
}

// LoadConfig reads and validates a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	config := NewConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}
	if err = config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}
	if n := len(c.Arm.LinkLengths); n != 0 && n != kinematics.NumJoints {
		return fmt.Errorf("arm.linkLengths must hold %d values, got %d", kinematics.NumJoints, n)
	}
	for i, l := range c.Arm.LinkLengths {
		if l < 0 {
			return fmt.Errorf("arm.linkLengths[%d] is negative: %f", i, l)
		}
	}
	if c.Arm.RawScale < 0 {
		return fmt.Errorf("arm.rawScale is negative: %f", c.Arm.RawScale)
	}
	if c.Serial.BaudRate < 0 {
		return fmt.Errorf("serial.baudRate is negative: %d", c.Serial.BaudRate)
	}
	return nil
}
