package brokerclient

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-bot-login/backoff"
)

// Classify tells the retry controller how to treat a broker error: 429 is rate limited and
// honours Retry-After, 5xx is a server error, anything else (including transport failures)
// is final.
func Classify(err error) backoff.Decision {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return backoff.Decision{}
	}
	switch {
	case statusErr.StatusCode == http.StatusTooManyRequests:
		return backoff.Decision{Reason: backoff.ReasonRateLimited, After: statusErr.RetryAfter}
	case statusErr.StatusCode >= 500:
		return backoff.Decision{Reason: backoff.ReasonServerError}
	}
	return backoff.Decision{}
}
