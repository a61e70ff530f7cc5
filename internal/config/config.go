// Package config loads roboflow settings from a YAML file overlaid by ROBOFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/roboflow/pkg/adapters/adb"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ROBOFLOW_"

// DefaultFile is read when no config path is given. Its absence is not an error.
const DefaultFile = "roboflow.yaml"

// Store drivers.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	Project   string `yaml:"project" env:"PROJECT"`
	Scenario  string `yaml:"scenario" env:"SCENARIO"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	MaxSteps  int    `yaml:"max_steps" env:"MAX_STEPS"`

	Device adb.Config  `yaml:"device" envPrefix:"DEVICE_"`
	Store  StoreConfig `yaml:"store" envPrefix:"STORE_"`
	MQTT   MQTTConfig  `yaml:"mqtt" envPrefix:"MQTT_"`
	HTTP   HTTPConfig  `yaml:"http" envPrefix:"HTTP_"`
}

// StoreConfig selects where run reports are kept.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the report directory (file) or database file (sqlite).
	Path string `yaml:"path" env:"PATH"`
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn" env:"DSN"`

	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`

	// Redact lists regular expressions masked in report errors before they are stored.
	Redact []string `yaml:"redact" env:"REDACT" envSeparator:","`
}

// MQTTConfig enables event streaming when URL is set.
type MQTTConfig struct {
	URL         string `yaml:"url" env:"URL"`
	ClientID    string `yaml:"client_id" env:"CLIENT_ID"`
	TopicPrefix string `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
}

// HTTPConfig configures `roboflow serve`.
type HTTPConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	Metrics bool   `yaml:"metrics" env:"METRICS"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Project:   "project.xml",
		LogLevel:  "info",
		LogFormat: "text",
		MaxSteps:  1000,
		Device:    adb.DefaultConfig(),
		Store: StoreConfig{
			Driver: StoreFile,
		},
		MQTT: MQTTConfig{
			ClientID:    "roboflow",
			TopicPrefix: "roboflow",
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// Load reads path (or DefaultFile when path is empty) over Default, then applies the environment.
// An explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and incomplete store settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreNone, StoreMemory, StoreFile, StoreSQLite:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store driver redis requires redis_addr")
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver postgres requires dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
