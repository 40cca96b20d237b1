package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required,min=8"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl" validate:"gt=0"`

	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	WS      WSConfig      `mapstructure:"ws" yaml:"ws"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// StoreConfig selects and tunes the durable store.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver" validate:"oneof=mongo sqlite"`
	MongoURI      string        `mapstructure:"mongo_uri" yaml:"mongo_uri" validate:"required_if=Driver mongo"`
	MongoDatabase string        `mapstructure:"mongo_database" yaml:"mongo_database" validate:"required_if=Driver mongo"`
	MongoMaxPool  uint64        `mapstructure:"mongo_max_pool" yaml:"mongo_max_pool"`
	MongoMinPool  uint64        `mapstructure:"mongo_min_pool" yaml:"mongo_min_pool" validate:"ltefield=MongoMaxPool"`
	SQLitePath    string        `mapstructure:"sqlite_path" yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	OpTimeout     time.Duration `mapstructure:"op_timeout" yaml:"op_timeout" validate:"gt=0"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver" validate:"oneof=redis memory"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url" validate:"required_if=Driver redis"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// WSConfig tunes websocket connections.
type WSConfig struct {
	SendBuffer        int           `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gt=0"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`
	MessagesPerMinute int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute" validate:"gte=0"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval" validate:"gte=0"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "pairchat",
		JWTAudience:       "pairchat-clients",
		JWTTTL:            24 * time.Hour,
		Store: StoreConfig{
			Driver:        "sqlite",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "pairchat",
			MongoMaxPool:  100,
			MongoMinPool:  0,
			SQLitePath:    "pairchat.db",
			OpTimeout:     5 * time.Second,
		},
		Session: SessionConfig{
			Driver:    "memory",
			RedisURL:  "redis://localhost:6379/0",
			KeyPrefix: "pairchat:session:",
		},
		WS: WSConfig{
			SendBuffer:        32,
			MaxMessageBytes:   64 << 10,
			MessagesPerMinute: 120,
			PingInterval:      30 * time.Second,
			AllowedOrigins:    []string{"*"},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// It carries command-line overrides, so only flag-backed fields are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Session.Driver != "" {
		c.Session.Driver = other.Session.Driver
	}
}
