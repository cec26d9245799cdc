package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File mirrors the environment variables as a YAML document. Every value is optional.
type File struct {
	Port     string `yaml:"port"`
	AppName  string `yaml:"app_name"`
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`
	Version  string `yaml:"version"`
	Env      string `yaml:"env"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	Telegram struct {
		BotToken        string `yaml:"bot_token"`
		BotName         string `yaml:"bot_name"`
		WebhookSecret   string `yaml:"webhook_secret"`
		WebhookInsecure *bool  `yaml:"webhook_insecure"`
		MiniAppURL      string `yaml:"mini_app_url"`
		SupportContact  string `yaml:"support_contact"`
	} `yaml:"telegram"`

	Login struct {
		TokenTTL        string `yaml:"token_ttl"`
		TokenRetention  string `yaml:"token_retention"`
		PollInterval    string `yaml:"poll_interval"`
		MaxPollAttempts int    `yaml:"max_poll_attempts"`
		ConfirmTimeout  string `yaml:"confirm_timeout"`
		SweepInterval   string `yaml:"sweep_interval"`
		BackendURL      string `yaml:"backend_url"`
	} `yaml:"login"`

	Security struct {
		JWTSecret          string   `yaml:"jwt_secret"`
		JWTIssuer          string   `yaml:"jwt_issuer"`
		AccessTokenExpiry  string   `yaml:"access_token_expiry"`
		RefreshTokenExpiry string   `yaml:"refresh_token_expiry"`
		BotAPIKey          string   `yaml:"bot_api_key"`
		CreateTokenLimit   int      `yaml:"create_token_limit"`
		CreateTokenWindow  string   `yaml:"create_token_window"`
		TrustedProxies     []string `yaml:"trusted_proxies"`
	} `yaml:"security"`

	Storage struct {
		Driver   string `yaml:"driver"`
		RedisURL string `yaml:"redis_url"`
	} `yaml:"storage"`
}

// LoadFile reads a YAML config file. An empty path yields an empty File.
func LoadFile(path string) (*File, error) {
	file := &File{}
	if path == "" {
		return file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

// durationOr parses a duration from the config file, falling back on empty or invalid input
func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
