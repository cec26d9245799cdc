package config

const (
	botTokenEnvVar        = "TELEGRAM_BOT_TOKEN"
	botNameEnvVar         = "TELEGRAM_BOT_NAME"
	webhookSecretEnvVar   = "TELEGRAM_WEBHOOK_SECRET"
	webhookInsecureEnvVar = "TELEGRAM_WEBHOOK_INSECURE"
	miniAppURLEnvVar      = "MINIAPP_URL"
	supportContactEnvVar  = "SUPPORT_CONTACT"
)

type TelegramConfig interface {
	GetBotToken() string
	GetBotName() string
	GetWebhookSecret() string
	GetWebhookInsecure() bool
	GetWebhookURL() string
	GetMiniAppURL() string
	GetSupportContact() string
}

type Telegram struct {
	file *File
}

var _ TelegramConfig = Telegram{}

func (t Telegram) GetBotToken() string {
	return GetEnv(botTokenEnvVar, t.file.Telegram.BotToken)
}

// GetBotName is the bot username used to build t.me deep links (without the leading @)
func (t Telegram) GetBotName() string {
	return GetEnv(botNameEnvVar, orDefault(t.file.Telegram.BotName, "botlogin_bot"))
}

func (t Telegram) GetWebhookSecret() string {
	return GetEnv(webhookSecretEnvVar, t.file.Telegram.WebhookSecret)
}

// GetWebhookInsecure must be true to accept webhook requests when no secret is configured
func (t Telegram) GetWebhookInsecure() bool {
	defaultValue := false
	if t.file.Telegram.WebhookInsecure != nil {
		defaultValue = *t.file.Telegram.WebhookInsecure
	}
	return GetEnvBool(webhookInsecureEnvVar, defaultValue)
}

func (t Telegram) GetWebhookURL() string {
	return EnvVars{file: t.file}.GetBaseURL() + "/api/bot"
}

func (t Telegram) GetMiniAppURL() string {
	return GetEnv(miniAppURLEnvVar, orDefault(t.file.Telegram.MiniAppURL, "http://localhost:3000"))
}

func (t Telegram) GetSupportContact() string {
	return GetEnv(supportContactEnvVar, orDefault(t.file.Telegram.SupportContact, "@botlogin_support"))
}
