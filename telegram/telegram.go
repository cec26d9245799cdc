// Package telegram wraps the Bot API client used for outbound messages and webhook management.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/internal/logging"
)

// Sender delivers outbound Bot API calls. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var (
	_ Sender   = (*tgbotapi.BotAPI)(nil)
	_ Sender   = NoopSender{}
	_ BotAdmin = (*tgbotapi.BotAPI)(nil)
)

// NewBot connects to the Bot API. It performs a getMe call, so it fails fast on a bad token.
func NewBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if err := tgbotapi.SetLogger(logging.BotLogger{Logger: log.With().Str("component", "tgbotapi").Logger()}); err != nil {
		return nil, fmt.Errorf("[telegram NewBot] set logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("[telegram NewBot] %w", err)
	}
	bot.Debug = debug
	log.Info().Str("bot", bot.Self.UserName).Msg("Connected to Telegram Bot API")
	return bot, nil
}

// NoopSender logs outbound calls instead of sending them. It is used when no bot token is
// configured so the webhook can still be exercised locally.
type NoopSender struct{}

func (NoopSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	logOutbound(c)
	return tgbotapi.Message{}, nil
}

func (NoopSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	logOutbound(c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func logOutbound(c tgbotapi.Chattable) {
	event := log.Warn().Str("component", "telegram").Str("type", fmt.Sprintf("%T", c))
	switch msg := c.(type) {
	case tgbotapi.MessageConfig:
		event = event.Int64("chat_id", msg.ChatID).Str("text", msg.Text)
	case tgbotapi.CallbackConfig:
		event = event.Str("callback_id", msg.CallbackQueryID).Str("text", msg.Text)
	}
	event.Msg("Bot token not configured, outbound call dropped")
}
