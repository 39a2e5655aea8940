// Package config handles loading and parsing application configuration.
// It supports two sources for the config file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value read from the file can be overridden by the environment
// variable named in its env:"..." tag.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Update policies, see resource.UpdatePolicy.
const (
	UpdatePresent = "present"
	UpdateTruthy  = "truthy"
)

// Config is the root configuration structure.
//
// env-required:"true" means the app refuses to start if that value is
// missing.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Storage Storage `yaml:"storage"`

	HTTPServer `yaml:"http_server"`

	// UpdatePolicy decides which payload values an update copies onto the
	// stored record: "present" copies every key sent, "truthy" skips
	// empty strings, zeros, false and null.
	UpdatePolicy string `yaml:"update_policy" env:"UPDATE_POLICY" env-default:"present"`

	// ManifestPath optionally points at a YAML resource manifest that is
	// registered in addition to the built-in resources.
	ManifestPath string `yaml:"manifest_path" env:"MANIFEST_PATH"`
}

// Storage selects and configures the document store.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// Path is the SQLite database file (":memory:" for a throwaway store).
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/microblog.db"`

	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"microblog"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8080".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8080"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad resolves the config path (CONFIG_PATH first, then flagPath),
// loads it, and exits the process on any failure.
// If this function returns, the config is valid.
func MustLoad(flagPath string) *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = flagPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}

// Validate checks the values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.UpdatePolicy {
	case UpdatePresent, UpdateTruthy:
	default:
		return fmt.Errorf("unknown update_policy %q", c.UpdatePolicy)
	}

	return nil
}
