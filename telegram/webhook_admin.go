package telegram

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AllowedUpdates limits webhook deliveries to what the dispatcher handles
var AllowedUpdates = []string{"message", "callback_query"}

var secretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// BotAdmin is the part of *tgbotapi.BotAPI used to manage the webhook
type BotAdmin interface {
	GetMe() (tgbotapi.User, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// ValidSecret reports whether secret is accepted by Telegram as a secret_token
func ValidSecret(secret string) bool {
	return secretPattern.MatchString(secret)
}

// SetWebhook registers url as the bot's webhook. The secret is sent back by Telegram in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery; an empty secret registers the
// webhook without one.
func SetWebhook(bot BotAdmin, url, secret string, dropPending bool) error {
	if secret != "" && !ValidSecret(secret) {
		return fmt.Errorf("[telegram SetWebhook] secret must match %s", secretPattern.String())
	}

	allowed, err := json.Marshal(AllowedUpdates)
	if err != nil {
		return fmt.Errorf("[telegram SetWebhook] %w", err)
	}

	params := tgbotapi.Params{}
	params["url"] = url
	params["allowed_updates"] = string(allowed)
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", dropPending)

	resp, err := bot.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("[telegram SetWebhook] %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("[telegram SetWebhook] %s", resp.Description)
	}
	return nil
}

// WebhookStatus is a JSON friendly view of getWebhookInfo
type WebhookStatus struct {
	URL                string     `json:"url"`
	PendingUpdateCount int        `json:"pendingUpdateCount"`
	MaxConnections     int        `json:"maxConnections,omitempty"`
	AllowedUpdates     []string   `json:"allowedUpdates,omitempty"`
	IPAddress          string     `json:"ipAddress,omitempty"`
	LastErrorMessage   string     `json:"lastErrorMessage,omitempty"`
	LastErrorDate      *time.Time `json:"lastErrorDate,omitempty"`
}

// Healthy reports whether the webhook is set and Telegram recorded no delivery error
func (s WebhookStatus) Healthy() bool {
	return s.URL != "" && s.LastErrorMessage == ""
}

// GetWebhookStatus fetches the current webhook registration
func GetWebhookStatus(bot BotAdmin) (WebhookStatus, error) {
	info, err := bot.GetWebhookInfo()
	if err != nil {
		return WebhookStatus{}, fmt.Errorf("[telegram GetWebhookStatus] %w", err)
	}

	status := WebhookStatus{
		URL:                info.URL,
		PendingUpdateCount: info.PendingUpdateCount,
		MaxConnections:     info.MaxConnections,
		AllowedUpdates:     info.AllowedUpdates,
		IPAddress:          info.IPAddress,
		LastErrorMessage:   info.LastErrorMessage,
	}
	if info.LastErrorDate > 0 {
		t := time.Unix(int64(info.LastErrorDate), 0).UTC()
		status.LastErrorDate = &t
	}
	return status, nil
}

// Diagnostics summarises the bot and webhook state
type Diagnostics struct {
	BotUsername string
	BotID       int64
	Webhook     WebhookStatus
	URLMatches  bool
	Problems    []string
}

// Diagnose checks the bot identity and that the webhook points at expectedURL
func Diagnose(bot BotAdmin, expectedURL string) (Diagnostics, error) {
	var d Diagnostics

	me, err := bot.GetMe()
	if err != nil {
		return d, fmt.Errorf("[telegram Diagnose] getMe: %w", err)
	}
	d.BotUsername = me.UserName
	d.BotID = me.ID

	d.Webhook, err = GetWebhookStatus(bot)
	if err != nil {
		return d, err
	}

	d.URLMatches = d.Webhook.URL == expectedURL
	if d.Webhook.URL == "" {
		d.Problems = append(d.Problems, "webhook is not set")
	} else if !d.URLMatches {
		d.Problems = append(d.Problems, fmt.Sprintf("webhook points at %s, expected %s", d.Webhook.URL, expectedURL))
	}
	if d.Webhook.LastErrorMessage != "" {
		d.Problems = append(d.Problems, "last delivery error: "+d.Webhook.LastErrorMessage)
	}
	if d.Webhook.PendingUpdateCount > 0 {
		d.Problems = append(d.Problems, fmt.Sprintf("%d updates pending delivery", d.Webhook.PendingUpdateCount))
	}
	return d, nil
}
