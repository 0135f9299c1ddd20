package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate of the module UART (9600 for the WSSFM10R)
	BaudRate int `yaml:"baud_rate"`
	// SerialDriver selects the serial library: "bugst" or "tarm"
	SerialDriver string `yaml:"serial_driver"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// Country is the ISO 3166-1 alpha-2 code of the deployment country
	Country string `yaml:"country"`
	// EmulatorDevice, when set, sends messages to the emulator with this
	// device ID instead of the Sigfox network
	EmulatorDevice string `yaml:"emulator_device"`
	// Simulate replaces the serial port with an in-process module
	Simulate bool `yaml:"simulate"`
	// HTTPToken, when set, is required as a bearer token on every request
	HTTPToken string `yaml:"http_token"`
	// MQTTBroker enables the MQTT ingest (e.g. "tcp://localhost:1883")
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`
	// MaxRetries bounds the delivery attempts of a queued message
	MaxRetries int `yaml:"max_retries"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if config.SerialDriver != "bugst" && config.SerialDriver != "tarm" {
		return nil, fmt.Errorf("unknown serial driver %q", config.SerialDriver)
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.SerialDriver = "bugst"
		c.LogLevel = "info"
		c.Country = "SG"
		c.MQTTClientID = "sigfox-gw-1"
		c.MQTTTopic = "sigfox/send"
		c.MaxRetries = 3
		return nil
	}
}

// WithFile loads configuration from a YAML file. Keys missing from the
// file keep their current value. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if driver := os.Getenv("SERIAL_DRIVER"); driver != "" {
			c.SerialDriver = driver
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if country := os.Getenv("COUNTRY"); country != "" {
			c.Country = country
		}

		if device := os.Getenv("EMULATOR_DEVICE"); device != "" {
			c.EmulatorDevice = device
		}

		if simulate := os.Getenv("SIMULATE"); simulate != "" {
			if b, err := strconv.ParseBool(simulate); err == nil {
				c.Simulate = b
			}
		}

		if token := os.Getenv("HTTP_TOKEN"); token != "" {
			c.HTTPToken = token
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}
		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}
		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
		}
		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MQTTPassword = pass
		}

		if retries := os.Getenv("MAX_RETRIES"); retries != "" {
			if n, err := strconv.Atoi(retries); err == nil {
				c.MaxRetries = n
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "serial-driver":
				c.SerialDriver = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "country":
				c.Country = f.Value.String()
			case "emulator-device":
				c.EmulatorDevice = f.Value.String()
			case "simulate":
				c.Simulate = f.Value.String() == "true"
			case "http-token":
				c.HTTPToken = f.Value.String()
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			case "max-retries":
				if n, err := strconv.Atoi(f.Value.String()); err == nil {
					c.MaxRetries = n
				}
			}
		})
		return nil
	}
}
