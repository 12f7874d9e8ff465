package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL        string `yaml:"api_base_url"`
	HealthTimeoutSecs int    `yaml:"health_timeout_secs"`
	ChatTimeoutSecs   int    `yaml:"chat_timeout_secs"`
	UploadTimeoutSecs int    `yaml:"upload_timeout_secs"`
	HealthRetrySecs   int    `yaml:"health_retry_secs"`
	PollIntervalMS    int    `yaml:"poll_interval_ms"`
	DemoMode          bool   `yaml:"demo_mode"`
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:        "http://localhost:8000",
		HealthTimeoutSecs: 5,
		ChatTimeoutSecs:   30,
		UploadTimeoutSecs: 120,
		HealthRetrySecs:   10,
		PollIntervalMS:    1000,
		DemoMode:          false,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8000"
	}
	if cfg.HealthTimeoutSecs <= 0 {
		cfg.HealthTimeoutSecs = 5
	}
	if cfg.ChatTimeoutSecs <= 0 {
		cfg.ChatTimeoutSecs = 30
	}
	if cfg.UploadTimeoutSecs <= 0 {
		cfg.UploadTimeoutSecs = 120
	}
	if cfg.HealthRetrySecs <= 0 {
		cfg.HealthRetrySecs = 10
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 1000
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "docassist", "config.yml")
}

func (c Config) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSecs) * time.Second
}

func (c Config) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutSecs) * time.Second
}

func (c Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSecs) * time.Second
}

func (c Config) HealthRetry() time.Duration {
	return time.Duration(c.HealthRetrySecs) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
