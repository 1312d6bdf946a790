package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FetchNPlusOne = "nplusone"
	FetchBatched  = "batched"

	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// Config holds every runtime setting of the server and the clients.
type Config struct {
	Addr         string        `yaml:"addr" json:"addr"`
	DBPath       string        `yaml:"db_path" json:"db_path"`
	DBDriver     string        `yaml:"db_driver" json:"db_driver"`
	Latency      time.Duration `yaml:"latency" json:"latency"`
	SnapshotPath string        `yaml:"snapshot_path" json:"snapshot_path"`
	ServerURL    string        `yaml:"server_url" json:"server_url"`
	FetchMode    string        `yaml:"fetch_mode" json:"fetch_mode"`
	LogLevel     string        `yaml:"log_level" json:"log_level"`
	LogFormat    string        `yaml:"log_format" json:"log_format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Addr:      ":3000",
		DBPath:    "./database.sqlite",
		DBDriver:  DriverModernc,
		Latency:   100 * time.Millisecond,
		ServerURL: "http://localhost:3000",
		FetchMode: FetchNPlusOne,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load starts from Default, applies the YAML file at path when path is
// non-empty, then the environment, then each override in order. The result
// is validated once, after the last layer.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	for _, override := range overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the configuration from environment variables, falling back
// to defaults for every variable that is not set.
func FromEnv() (Config, error) {
	return Load("")
}

// Validate rejects settings the rest of the program cannot act on.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	switch c.DBDriver {
	case DriverModernc, DriverCgo:
	default:
		errs = append(errs, fmt.Errorf("unknown db_driver %q (want %s or %s)", c.DBDriver, DriverModernc, DriverCgo))
	}
	if c.Latency < 0 {
		errs = append(errs, fmt.Errorf("latency must not be negative, got %s", c.Latency))
	}
	switch c.FetchMode {
	case FetchNPlusOne, FetchBatched:
	default:
		errs = append(errs, fmt.Errorf("unknown fetch_mode %q (want %s or %s)", c.FetchMode, FetchNPlusOne, FetchBatched))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q (want json or text)", c.LogFormat))
	}

	return errors.Join(errs...)
}
