// Package config loads the sensor-station YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/sensor-station/internal/console"
	"github.com/sweeney/sensor-station/internal/gpio"
	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/mqtt"
	"github.com/sweeney/sensor-station/internal/report"
	"github.com/sweeney/sensor-station/internal/sensor"
	"github.com/sweeney/sensor-station/internal/session"
)

// Config represents the daemon configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	ADC       ADCConfig       `yaml:"adc"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Session   SessionConfig   `yaml:"session"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig contains the operator console port settings.
type SerialConfig struct {
	Port         string        `yaml:"port"`
	Baud         int           `yaml:"baud"`
	WriteTimeout time.Duration `yaml:"write_timeout"` // bound on a single console write
}

// ADCConfig contains the converter settings.
type ADCConfig struct {
	IIODevice      string        `yaml:"iio_device"`
	Inputs         []int         `yaml:"inputs"` // ADC input per channel, menu order
	Shift          uint          `yaml:"shift"`  // right shift to 10 bits (2 for a 12-bit ADC)
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// IndicatorConfig contains the GPIO lines driving the two indicator outputs.
type IndicatorConfig struct {
	Chip     string `yaml:"chip"`
	PinGreen int    `yaml:"pin_green"`
	PinRed   int    `yaml:"pin_red"`
}

// SessionConfig contains measurement loop timing.
type SessionConfig struct {
	Interval time.Duration `yaml:"interval"`
	IdlePoll time.Duration `yaml:"idle_poll"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Buffer   int    `yaml:"buffer"`
}

// HTTPConfig contains the status server settings. An empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:         "/dev/ttyUSB0",
			Baud:         console.DefaultBaudRate,
			WriteTimeout: report.DefaultWriteTimeout,
		},
		ADC: ADCConfig{
			IIODevice:      sensor.DefaultIIODevice,
			Inputs:         []int{0, 1, 2, 3},
			Shift:          0,
			AcquireTimeout: sensor.DefaultAcquireTimeout,
		},
		Indicator: IndicatorConfig{
			Chip:     gpio.DefaultChip,
			PinGreen: gpio.DefaultPinGreen,
			PinRed:   gpio.DefaultPinRed,
		},
		Session: SessionConfig{
			Interval: session.DefaultInterval,
			IdlePoll: session.DefaultIdlePoll,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "sensor-station",
			Buffer:   mqtt.DefaultBufferSize,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. The result is validated.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ensureDefaults fills zero values left by a partial file. MQTT broker and
// HTTP addr are left alone: empty means disabled.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.WriteTimeout == 0 {
		c.Serial.WriteTimeout = def.Serial.WriteTimeout
	}

	if c.ADC.IIODevice == "" {
		c.ADC.IIODevice = def.ADC.IIODevice
	}
	if len(c.ADC.Inputs) == 0 {
		c.ADC.Inputs = def.ADC.Inputs
	}
	if c.ADC.AcquireTimeout == 0 {
		c.ADC.AcquireTimeout = def.ADC.AcquireTimeout
	}

	if c.Indicator.Chip == "" {
		c.Indicator.Chip = def.Indicator.Chip
	}

	if c.Session.Interval == 0 {
		c.Session.Interval = def.Session.Interval
	}
	if c.Session.IdlePoll == 0 {
		c.Session.IdlePoll = def.Session.IdlePoll
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Buffer == 0 {
		c.MQTT.Buffer = def.MQTT.Buffer
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.WriteTimeout <= 0 {
		return fmt.Errorf("serial.write_timeout must be positive, got %s", c.Serial.WriteTimeout)
	}
	if len(c.ADC.Inputs) != len(logic.Channels) {
		return fmt.Errorf("adc.inputs must list %d inputs, got %d", len(logic.Channels), len(c.ADC.Inputs))
	}
	for i, in := range c.ADC.Inputs {
		if in < 0 {
			return fmt.Errorf("adc.inputs[%d] must not be negative, got %d", i, in)
		}
	}
	if c.ADC.Shift > 6 {
		return fmt.Errorf("adc.shift must be at most 6, got %d", c.ADC.Shift)
	}
	if c.ADC.AcquireTimeout <= 0 {
		return fmt.Errorf("adc.acquire_timeout must be positive, got %s", c.ADC.AcquireTimeout)
	}
	if c.Indicator.PinGreen < 0 || c.Indicator.PinRed < 0 {
		return fmt.Errorf("indicator pins must not be negative")
	}
	if c.Indicator.PinGreen == c.Indicator.PinRed {
		return fmt.Errorf("indicator.pin_green and indicator.pin_red must differ, both %d", c.Indicator.PinGreen)
	}
	if c.Session.Interval <= 0 {
		return fmt.Errorf("session.interval must be positive, got %s", c.Session.Interval)
	}
	if c.Session.IdlePoll <= 0 {
		return fmt.Errorf("session.idle_poll must be positive, got %s", c.Session.IdlePoll)
	}
	if c.MQTT.Buffer < 0 {
		return fmt.Errorf("mqtt.buffer must not be negative, got %d", c.MQTT.Buffer)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level, falling back to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
