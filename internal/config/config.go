package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Generator struct {
		// Provider is "llm", "bank" or "remote".
		Provider string `yaml:"provider"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		BankPath string `yaml:"bank_path"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"generator"`
	Gateway struct {
		BaseURL   string `yaml:"base_url"`
		TokenFile string `yaml:"token_file"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"gateway"`
	Session struct {
		CheckpointInterval string `yaml:"checkpoint_interval"`
		PollInterval       string `yaml:"poll_interval"`
		SecondsPerQuestion int    `yaml:"seconds_per_question"`
		WarningThreshold   string `yaml:"warning_threshold"`
	} `yaml:"session"`
}

// Load reads YAML config from path. A missing file yields defaults so the
// terminal client works without any setup. LLM_API_KEY and QUIZ_AUTH_SECRET
// override the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := strings.TrimSpace(os.Getenv("LLM_API_KEY")); key != "" {
		cfg.Generator.APIKey = key
	}
	if secret := strings.TrimSpace(os.Getenv("QUIZ_AUTH_SECRET")); secret != "" {
		cfg.Auth.Secret = secret
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
