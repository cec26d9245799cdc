// Package deeplink builds and parses the Telegram bot start links used by the login handshake.
package deeplink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LoginPrefix is prepended to the token in the start parameter
const LoginPrefix = "login_"

// maxStartParam is Telegram's limit for the ?start= payload
const maxStartParam = 64

var (
	loginCommand = regexp.MustCompile(`(?i)^/start(?:@[A-Za-z0-9_]+)?\s+login_([a-f0-9]+)\s*$`)
	tokenPattern = regexp.MustCompile(`^[a-f0-9]+$`)
)

// BotURL returns https://t.me/<bot>?start=login_<token>
func BotURL(botName, token string) (string, error) {
	botName = strings.TrimPrefix(strings.TrimSpace(botName), "@")
	if botName == "" {
		return "", fmt.Errorf("[deeplink BotURL] bot name is required")
	}
	if !IsValidToken(token) {
		return "", fmt.Errorf("[deeplink BotURL] invalid token %q", token)
	}
	if len(LoginPrefix)+len(token) > maxStartParam {
		return "", fmt.Errorf("[deeplink BotURL] token too long for a start parameter")
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "t.me",
		Path:     "/" + botName,
		RawQuery: url.Values{"start": []string{LoginPrefix + token}}.Encode(),
	}
	return u.String(), nil
}

// ParseLoginCommand extracts the token from "/start login_<token>". The token is returned in
// lower case; ok is false for any other message text.
func ParseLoginCommand(text string) (token string, ok bool) {
	m := loginCommand.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// IsValidToken reports whether token uses the lower-case hex alphabet
func IsValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}
