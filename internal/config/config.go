package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the agent configuration, read from YAML with environment overrides.
type Config struct {
	Env     string        `yaml:"env" env:"SYSMONITOR_ENV" env-default:"local"`
	Log     LogConfig     `yaml:"log"`
	Sampler SamplerConfig `yaml:"sampler"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Device  DeviceConfig  `yaml:"device"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"SYSMONITOR_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"SYSMONITOR_LOG_FORMAT" env-default:"json"`
}

type SamplerConfig struct {
	RetryAttempts int           `yaml:"retry_attempts" env:"SYSMONITOR_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"SYSMONITOR_RETRY_DELAY" env-default:"10ms"`
	DiskPath      string        `yaml:"disk_path" env:"SYSMONITOR_DISK_PATH" env-default:"/"`
}

// ServerConfig controls the localhost query server used by the widget.
type ServerConfig struct {
	Enabled   bool    `yaml:"enabled" env:"SYSMONITOR_SERVER_ENABLED"`
	Port      int     `yaml:"port" env:"SYSMONITOR_SERVER_PORT" env-default:"47291"`
	RateLimit float64 `yaml:"rate_limit" env:"SYSMONITOR_SERVER_RATE_LIMIT" env-default:"20"`
	Burst     int     `yaml:"burst" env:"SYSMONITOR_SERVER_BURST" env-default:"10"`
}

// HistoryConfig controls the optional snapshot recorder.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled" env:"SYSMONITOR_HISTORY_ENABLED"`
	StoragePath   string        `yaml:"storage_path" env:"SYSMONITOR_HISTORY_STORAGE_PATH" env-default:"sysmonitor.db"`
	Interval      time.Duration `yaml:"interval" env:"SYSMONITOR_HISTORY_INTERVAL" env-default:"5s"`
	BatchSize     int           `yaml:"batch_size" env:"SYSMONITOR_HISTORY_BATCH_SIZE" env-default:"12"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"SYSMONITOR_HISTORY_FLUSH_INTERVAL" env-default:"1m"`
	Retention     time.Duration `yaml:"retention" env:"SYSMONITOR_HISTORY_RETENTION" env-default:"168h"`
}

type DeviceConfig struct {
	ID string `yaml:"id" env:"SYSMONITOR_DEVICE_ID"`
}

// LoadConfig reads path when it exists and falls back to environment variables otherwise.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			return &cfg, cfg.Validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate rejects values the agent cannot run with.
func (c *Config) Validate() error {
	if c.Sampler.RetryAttempts < 1 {
		return fmt.Errorf("sampler.retry_attempts must be at least 1, got %d", c.Sampler.RetryAttempts)
	}
	if c.Sampler.RetryDelay < 0 {
		return fmt.Errorf("sampler.retry_delay must not be negative")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.Enabled && c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive")
	}
	if c.History.Enabled {
		if c.History.Interval <= 0 {
			return fmt.Errorf("history.interval must be positive")
		}
		if c.History.BatchSize < 1 {
			return fmt.Errorf("history.batch_size must be at least 1")
		}
		if c.History.FlushInterval <= 0 {
			return fmt.Errorf("history.flush_interval must be positive")
		}
	}
	return nil
}
