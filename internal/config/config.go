package config

import (
	"fmt"
	"regexp"
	"time"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

const (
	envProduction = "PROD"
	envDev        = "DEV"
	envTest       = "TEST"
)

type Config interface {
	EnvConfig
	CorsConfig
	TelegramConfig
	LoginConfig
	SecurityConfig
	StorageConfig
	Validate() error
	Warnings() []string
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetVersion() string
	GetEnv() string
	IsLocal() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Telegram
	Login
	Security
	Storage
}

// New builds the configuration from environment variables. When CONFIG_FILE points at a YAML
// file its values are used as defaults that environment variables override.
func New() (Config, error) {
	file, err := LoadFile(GetEnv(configFileEnvVar, ""))
	if err != nil {
		return nil, fmt.Errorf("[config New] %w", err)
	}
	return newMainConfig(file), nil
}

func newMainConfig(file *File) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{file: file},
		Cors:     Cors{file: file},
		Telegram: Telegram{file: file},
		Login:    Login{file: file},
		Security: Security{file: file},
		Storage:  Storage{file: file},
	}
}

// Telegram accepts 1-256 characters A-Z, a-z, 0-9, _ and - for secret_token
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Validate reports configuration that must stop the server from starting.
func (c mainConfig) Validate() error {
	secret := c.GetWebhookSecret()
	if secret != "" && !webhookSecretPattern.MatchString(secret) {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s may only contain A-Z, a-z, 0-9, _ and -", webhookSecretEnvVar)
	}

	if c.GetEnv() == envProduction {
		if secret == "" && !c.GetWebhookInsecure() {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig,
				"%s is required in production (set %s=true to accept unauthenticated webhooks)", webhookSecretEnvVar, webhookInsecureEnvVar)
		}
		if c.GetJWTSecret() == defaultJWTSecret {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s must be set in production", jwtSecretEnvVar)
		}
		if c.GetBotAPIKey() == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s is required in production to protect confirm-login", botAPIKeyEnvVar)
		}
	}

	if _, err := ParseTrustedProxies(c.rawTrustedProxies()); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s", err.Error())
	}

	if c.GetStorage() == StorageRedis && c.GetRedisURL() == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s is required when %s=%s", redisURLEnvVar, storageEnvVar, StorageRedis)
	}

	if c.GetLoginTokenTTL() <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "login token ttl must be positive")
	}
	return c.ValidatePolling()
}

// Warnings lists configuration that is accepted but worth flagging at startup.
func (c mainConfig) Warnings() []string {
	var warnings []string
	if c.GetWebhookSecret() == "" {
		if c.GetWebhookInsecure() {
			warnings = append(warnings, "webhook secret not configured: accepting unauthenticated webhook requests")
		} else {
			warnings = append(warnings, fmt.Sprintf("webhook secret not configured: set %s or %s=true", webhookSecretEnvVar, webhookInsecureEnvVar))
		}
	}
	if c.GetBotToken() == "" {
		warnings = append(warnings, "telegram bot token not configured: bot replies are logged, not sent")
	}
	pollBudget := c.GetPollInterval() * time.Duration(c.GetMaxPollAttempts())
	if diff := pollBudget - c.GetLoginTokenTTL(); diff > c.GetPollInterval() || -diff > c.GetPollInterval() {
		warnings = append(warnings, fmt.Sprintf("poll budget %s is not aligned with login token ttl %s", pollBudget, c.GetLoginTokenTTL()))
	}
	return warnings
}
