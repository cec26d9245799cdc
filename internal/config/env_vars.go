package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	configFileEnvVar = "CONFIG_FILE"
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	baseURLVar       = "BASE_URL"
	logLevelEnvVar   = "LOG_LEVEL"
	versionEnvVar    = "APP_VERSION"
)

type EnvVars struct {
	file *File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, e.file.Port)
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.file.AppName, "Bot Login"))
}

// GetBaseURL returns the public base URL of this service (e.g., "https://app.example.com").
// The Telegram webhook is registered at GetBaseURL() + "/api/bot".
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, orDefault(e.file.BaseURL, "http://localhost:8080")), "/")
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, orDefault(e.file.LogLevel, "info"))
}

func (e EnvVars) GetVersion() string {
	return GetEnv(versionEnvVar, orDefault(e.file.Version, "dev"))
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv("ENV", orDefault(e.file.Env, envDev)))
}

// IsLocal reports a DEV or TEST environment
func (e EnvVars) IsLocal() bool {
	switch e.GetEnv() {
	case envDev, envTest:
		return true
	}
	return false
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration reads a Go duration string ("90s", "5m"). Invalid values fall back to the default.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func orDefault[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
