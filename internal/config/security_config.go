package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

const (
	jwtSecretEnvVar      = "JWT_SECRET"
	defaultJWTSecret     = "bot-login-secret-change-me"
	botAPIKeyEnvVar      = "BOT_API_KEY"
	trustedProxiesEnvVar = "TRUSTED_PROXIES"
)

type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetBotAPIKey() string
	GetCreateTokenRateLimit() int
	GetCreateTokenRateWindow() time.Duration
	GetTrustedProxies() []netip.Prefix
}

type Security struct {
	file *File
}

var _ SecurityConfig = Security{}

func (s Security) GetJWTSecret() string {
	return GetEnv(jwtSecretEnvVar, orDefault(s.file.Security.JWTSecret, defaultJWTSecret))
}

func (s Security) GetJWTIssuer() string {
	return GetEnv("JWT_ISSUER", orDefault(s.file.Security.JWTIssuer, EnvVars{file: s.file}.GetBaseURL()))
}

func (s Security) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", durationOr(s.file.Security.AccessTokenExpiry, time.Hour))
}

func (s Security) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", durationOr(s.file.Security.RefreshTokenExpiry, 7*24*time.Hour))
}

// GetBotAPIKey protects confirm-login. Required in production; when empty elsewhere the
// endpoint is only served in DEV and TEST.
func (s Security) GetBotAPIKey() string {
	return GetEnv(botAPIKeyEnvVar, s.file.Security.BotAPIKey)
}

// GetCreateTokenRateLimit is the number of login tokens one client IP may create per window
func (s Security) GetCreateTokenRateLimit() int {
	return GetEnvInt("CREATE_TOKEN_RATE_LIMIT", orDefault(s.file.Security.CreateTokenLimit, 10))
}

func (s Security) GetCreateTokenRateWindow() time.Duration {
	return GetEnvDuration("CREATE_TOKEN_RATE_WINDOW", durationOr(s.file.Security.CreateTokenWindow, time.Minute))
}

// GetTrustedProxies lists the reverse proxies whose X-Forwarded-For and X-Real-IP headers are
// believed. Empty means the peer address is always the client. Invalid entries are skipped
// here and reported by Validate.
func (s Security) GetTrustedProxies() []netip.Prefix {
	prefixes, _ := ParseTrustedProxies(s.rawTrustedProxies())
	return prefixes
}

func (s Security) rawTrustedProxies() []string {
	if raw := GetEnv(trustedProxiesEnvVar, ""); raw != "" {
		return strings.Split(raw, ",")
	}
	return s.file.Security.TrustedProxies
}

// ParseTrustedProxies accepts addresses ("10.0.0.1") and CIDR ranges ("10.0.0.0/8")
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	var bad []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				bad = append(bad, entry)
				continue
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			bad = append(bad, entry)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(bad) > 0 {
		return prefixes, fmt.Errorf("invalid %s entries: %s", trustedProxiesEnvVar, strings.Join(bad, ", "))
	}
	return prefixes, nil
}
