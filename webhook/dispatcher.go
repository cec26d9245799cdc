// Package webhook receives Telegram updates, confirms deep-link logins and answers ordinary
// bot commands.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	"github.com/jrsteele09/go-bot-login/deeplink"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/telegram"
)

const (
	maxUpdateBytes        = 1 << 20
	defaultConfirmTimeout = 10 * time.Second
)

// Confirmer approves a pending login. *broker.TokenBroker confirms in-process and
// *brokerclient.Client confirms through the backend HTTP API.
type Confirmer interface {
	Confirm(ctx context.Context, req broker.ConfirmRequest) (broker.ConfirmResult, error)
}

// Options configures a Dispatcher
type Options struct {
	Secret         SecretPolicy
	ConfirmTimeout time.Duration
	MiniAppURL     string
	SupportContact string
}

// Dispatcher is the single ingress for Telegram webhook deliveries. Every delivery that passes
// secret verification is answered 200 {"ok":true} so Telegram never disables the webhook.
type Dispatcher struct {
	sender    telegram.Sender
	confirmer Confirmer
	opts      Options
	logger    zerolog.Logger
}

// NewDispatcher creates a webhook dispatcher
func NewDispatcher(sender telegram.Sender, confirmer Confirmer, opts Options) *Dispatcher {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	return &Dispatcher{
		sender:    sender,
		confirmer: confirmer,
		opts:      opts,
		logger:    log.With().Str("component", "webhook").Logger(),
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !d.opts.Secret.Verify(r.Header.Get(SecretHeader)) {
		d.logger.Warn().Str("remote", r.RemoteAddr).Msg("Webhook secret mismatch")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err != nil {
		d.logger.Err(err).Msg("Failed to read webhook body")
		writeOK(w)
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		d.logger.Err(err).Int("bytes", len(body)).Msg("Malformed webhook update")
		writeOK(w)
		return
	}

	// The confirmation must finish even if Telegram drops the connection
	d.Handle(context.WithoutCancel(r.Context()), update)
	writeOK(w)
}

// Handle processes one update. Failures are logged, never returned.
func (d *Dispatcher) Handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().Interface("panic", rec).Int("update_id", update.UpdateID).Msg("Recovered from panic handling update")
		}
	}()

	switch {
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		d.handleCallback(update.CallbackQuery)
	default:
		d.logger.Debug().Int("update_id", update.UpdateID).Msg("Ignoring unsupported update")
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		d.logger.Warn().Int("message_id", msg.MessageID).Msg("Message without chat")
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	var firstName, languageCode string
	if msg.From != nil {
		firstName = msg.From.FirstName
		languageCode = msg.From.LanguageCode
	}
	m := messagesFor(languageCode)
	chatID := msg.Chat.ID

	if token, ok := deeplink.ParseLoginCommand(text); ok {
		d.handleLogin(ctx, chatID, msg.From, token)
		return
	}

	switch commandOf(text) {
	case "start":
		d.send(chatID, m.welcomeFor(firstName), d.mainKeyboard(m))
	case "help":
		d.send(chatID, m.help, d.mainKeyboard(m))
	case "status":
		d.send(chatID, m.status, d.appKeyboard(m))
	case "faq":
		d.send(chatID, m.faq, nil)
	case "support":
		d.sendPlain(chatID, fmt.Sprintf(m.support, d.opts.SupportContact))
	}
}

func (d *Dispatcher) handleLogin(ctx context.Context, chatID int64, from *tgbotapi.User, token string) {
	if from == nil {
		d.logger.Warn().Int64("chat_id", chatID).Msg("Login command without sender")
		d.send(chatID, fmt.Sprintf(english.loginFailed, d.supportContact()), nil)
		return
	}
	m := messagesFor(from.LanguageCode)

	ctx, cancel := context.WithTimeout(ctx, d.opts.ConfirmTimeout)
	defer cancel()

	_, err := d.confirmer.Confirm(ctx, broker.ConfirmRequest{
		Token:      token,
		TelegramID: strconv.FormatInt(from.ID, 10),
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	})
	if err != nil {
		d.logger.Err(err).Int64("telegram_id", from.ID).Msg("Login confirmation failed")
		d.send(chatID, d.loginErrorMessage(m, err), nil)
		return
	}

	d.logger.Info().Int64("telegram_id", from.ID).Msg("Login confirmed via bot")
	d.send(chatID, m.confirmedFor(from.FirstName), nil)
}

func (d *Dispatcher) loginErrorMessage(m messages, err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return m.loginExpired
	case apperrors.Is(err, apperrors.ErrSessionNotFound),
		apperrors.Is(err, apperrors.ErrSessionAlreadyUsed),
		apperrors.Is(err, apperrors.ErrSessionCancelled),
		apperrors.Is(err, apperrors.ErrInvalidToken):
		return m.loginNotFound
	}
	return fmt.Sprintf(m.loginFailed, d.supportContact())
}

func (d *Dispatcher) handleCallback(query *tgbotapi.CallbackQuery) {
	var languageCode string
	if query.From != nil {
		languageCode = query.From.LanguageCode
	}
	m := messagesFor(languageCode)

	if query.Message == nil || query.Message.Chat == nil {
		d.logger.Warn().Str("query_id", query.ID).Str("data", query.Data).Msg("Callback query without chat")
		d.answer(query.ID, m.noChat)
		return
	}
	if query.Data == "" {
		d.logger.Warn().Str("query_id", query.ID).Msg("Callback query without data")
		d.answer(query.ID, m.noData)
		return
	}

	chatID := query.Message.Chat.ID
	switch query.Data {
	case "faq":
		d.answer(query.ID, m.faqOpened)
		d.send(chatID, m.faq, nil)
	case "support":
		d.answer(query.ID, "")
		d.sendPlain(chatID, fmt.Sprintf(m.support, d.opts.SupportContact))
	default:
		d.logger.Warn().Str("query_id", query.ID).Str("data", query.Data).Msg("Unknown callback data")
		d.answer(query.ID, m.unknownCommand)
	}
}

func (d *Dispatcher) mainKeyboard(m messages) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if d.opts.MiniAppURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(m.openAppButton, d.opts.MiniAppURL)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(m.supportButton, "support"),
		tgbotapi.NewInlineKeyboardButtonData(m.faqButton, "faq"),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

func (d *Dispatcher) appKeyboard(m messages) *tgbotapi.InlineKeyboardMarkup {
	if d.opts.MiniAppURL == "" {
		return nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(m.openAppButton, d.opts.MiniAppURL)),
	)
	return &keyboard
}

func (d *Dispatcher) supportContact() string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, d.opts.SupportContact)
}

// send delivers a Markdown message
func (d *Dispatcher) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := d.sender.Send(msg); err != nil {
		d.logger.Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (d *Dispatcher) sendPlain(chatID int64, text string) {
	if _, err := d.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.logger.Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (d *Dispatcher) answer(queryID, text string) {
	if _, err := d.sender.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		d.logger.Err(err).Str("query_id", queryID).Msg("Failed to answer callback query")
	}
}

// commandOf returns "start" for "/start", "/start@bot_name" and "/start payload"
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	command := strings.Fields(text)[0][1:]
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write webhook response")
	}
}
