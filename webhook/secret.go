package webhook

import (
	"crypto/subtle"

	"github.com/rs/zerolog/log"
)

// SecretHeader carries the secret_token registered with setWebhook
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// SecretPolicy decides whether a webhook delivery is trusted.
//
// With no secret configured every delivery is accepted; Insecure records that this was chosen
// on purpose and silences the per-request warning. With a secret configured a delivery
// without the header is accepted with a warning, and a delivery with a different value is
// rejected.
type SecretPolicy struct {
	Secret   string
	Insecure bool
}

// Verify reports whether a delivery carrying header may be processed
func (p SecretPolicy) Verify(header string) bool {
	if p.Secret == "" {
		if !p.Insecure {
			log.Warn().Str("component", "webhook").Msg("Webhook secret not configured, accepting unverified update")
		}
		return true
	}
	if header == "" {
		log.Warn().Str("component", "webhook").Msg("Webhook update without secret header, accepting")
		return true
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(p.Secret)) == 1
}
