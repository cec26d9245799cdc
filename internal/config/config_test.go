package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-bot-login/internal/config"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, 5*time.Minute, cfg.GetLoginTokenTTL())
	require.Equal(t, 2*time.Second, cfg.GetPollInterval())
	require.Equal(t, 150, cfg.GetMaxPollAttempts())
	require.Equal(t, config.StorageMemory, cfg.GetStorage())
	require.Equal(t, "http://localhost:8080/api/bot", cfg.GetWebhookURL())
	require.NoError(t, cfg.Validate())
}

func TestNew_FileValuesAreOverriddenByEnv(t *testing.T) {
	path := writeConfigFile(t, `
port: "9000"
telegram:
  bot_name: file_bot
  webhook_secret: file-secret
login:
  token_ttl: 2m
  max_poll_attempts: 60
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TELEGRAM_BOT_NAME", "env_bot")

	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "env_bot", cfg.GetBotName())
	require.Equal(t, "file-secret", cfg.GetWebhookSecret())
	require.Equal(t, 2*time.Minute, cfg.GetLoginTokenTTL())
	require.Equal(t, 60, cfg.GetMaxPollAttempts())
}

func TestNew_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "port: [unterminated"))
	_, err := config.New()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("production without webhook secret", func(t *testing.T) {
		t.Setenv("ENV", "prod")
		t.Setenv("JWT_SECRET", "something-long")
		cfg, err := config.New()
		require.NoError(t, err)
		err = cfg.Validate()
		require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		require.Contains(t, err.Error(), "TELEGRAM_WEBHOOK_SECRET")
	})

	t.Run("production with explicit insecure webhook", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		t.Setenv("JWT_SECRET", "something-long")
		t.Setenv("TELEGRAM_WEBHOOK_INSECURE", "true")
		t.Setenv("BOT_API_KEY", "internal-key")
		cfg, err := config.New()
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		require.Contains(t, cfg.Warnings(), "webhook secret not configured: accepting unauthenticated webhook requests")
	})

	t.Run("production with default jwt secret", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
		cfg, err := config.New()
		require.NoError(t, err)
		require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
	})

	t.Run("production without bot api key", func(t *testing.T) {
		t.Setenv("ENV", "PROD")
		t.Setenv("JWT_SECRET", "something-long")
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
		cfg, err := config.New()
		require.NoError(t, err)
		err = cfg.Validate()
		require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		require.Contains(t, err.Error(), "BOT_API_KEY")
	})

	t.Run("invalid trusted proxy", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "10.0.0.1, not-an-ip")
		cfg, err := config.New()
		require.NoError(t, err)
		require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
	})

	t.Run("zero poll interval", func(t *testing.T) {
		t.Setenv("LOGIN_POLL_INTERVAL", "0s")
		cfg, err := config.New()
		require.NoError(t, err)
		require.ErrorIs(t, cfg.ValidatePolling(), apperrors.ErrInvalidConfig)
		require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
	})

	t.Run("secret with invalid characters", func(t *testing.T) {
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "not allowed!")
		cfg, err := config.New()
		require.NoError(t, err)
		require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
	})

	t.Run("redis storage without url", func(t *testing.T) {
		t.Setenv("STORAGE", "redis")
		cfg, err := config.New()
		require.NoError(t, err)
		require.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
	})
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	cfg, err := config.New()
	require.NoError(t, err)

	origins := cfg.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://c.example.com"))
}

func TestWarnings_PollBudgetAlignment(t *testing.T) {
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := config.New()
	require.NoError(t, err)
	require.Empty(t, cfg.Warnings())

	t.Setenv("LOGIN_MAX_POLL_ATTEMPTS", "10")
	cfg, err = config.New()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings(), 1)
}

func TestTrustedProxies(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)
	require.Empty(t, cfg.GetTrustedProxies())

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1,::1")
	cfg, err = config.New()
	require.NoError(t, err)
	proxies := cfg.GetTrustedProxies()
	require.Len(t, proxies, 3)
	require.Equal(t, "10.0.0.0/8", proxies[0].String())
	require.Equal(t, "127.0.0.1/32", proxies[1].String())
	require.Equal(t, "::1/128", proxies[2].String())
}

func TestIsLocal(t *testing.T) {
	for env, local := range map[string]bool{"dev": true, "TEST": true, "PROD": false, "STAGING": false} {
		t.Setenv("ENV", env)
		cfg, err := config.New()
		require.NoError(t, err)
		require.Equal(t, local, cfg.IsLocal(), env)
	}
}
