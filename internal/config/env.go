package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables read by FromEnv and Load.
const (
	EnvConfig       = "TASKBOARD_CONFIG"
	EnvAddr         = "TASKBOARD_ADDR"
	EnvDBPath       = "TASKBOARD_DB_PATH"
	EnvDBDriver     = "TASKBOARD_DB_DRIVER"
	EnvLatency      = "TASKBOARD_LATENCY"
	EnvSnapshotPath = "TASKBOARD_SNAPSHOT_PATH"
	EnvServerURL    = "TASKBOARD_SERVER_URL"
	EnvFetchMode    = "TASKBOARD_FETCH_MODE"
	EnvLogLevel     = "TASKBOARD_LOG_LEVEL"
	EnvLogFormat    = "TASKBOARD_LOG_FORMAT"
)

func applyEnv(cfg *Config) error {
	if val := getEnv(EnvAddr); val != "" {
		cfg.Addr = val
	}
	if val := getEnv(EnvDBPath); val != "" {
		cfg.DBPath = val
	}
	if val := getEnv(EnvDBDriver); val != "" {
		cfg.DBDriver = val
	}
	if val := getEnv(EnvLatency); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLatency, err)
		}
		cfg.Latency = d
	}
	if val := getEnv(EnvSnapshotPath); val != "" {
		cfg.SnapshotPath = val
	}
	if val := getEnv(EnvServerURL); val != "" {
		cfg.ServerURL = val
	}
	if val := getEnv(EnvFetchMode); val != "" {
		cfg.FetchMode = strings.ToLower(val)
	}
	if val := getEnv(EnvLogLevel); val != "" {
		cfg.LogLevel = strings.ToLower(val)
	}
	if val := getEnv(EnvLogFormat); val != "" {
		cfg.LogFormat = strings.ToLower(val)
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
