package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	"github.com/jrsteele09/go-bot-login/brokerclient"
	"github.com/jrsteele09/go-bot-login/internal/config"
	"github.com/jrsteele09/go-bot-login/internal/logging"
	"github.com/jrsteele09/go-bot-login/server"
	"github.com/jrsteele09/go-bot-login/telegram"
	"github.com/jrsteele09/go-bot-login/token"
	"github.com/jrsteele09/go-bot-login/webhook"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	if err := c.Validate(); err != nil {
		return err
	}
	for _, warning := range c.Warnings() {
		log.Warn().Msg(warning)
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newStorage(ctx, c)
	if err != nil {
		return err
	}
	defer store.close()

	signer := token.NewHMACSigner(c.GetJWTSecret())
	tokenBroker := broker.New(c, store.sessions, store.users, token.NewIssuer(c, signer))
	go tokenBroker.RunSweeper(ctx, c.GetSweepInterval())

	sender, bot := newBot(c)
	dispatcher := webhook.NewDispatcher(sender, newConfirmer(c, tokenBroker), webhook.Options{
		Secret:         webhook.SecretPolicy{Secret: c.GetWebhookSecret(), Insecure: c.GetWebhookInsecure()},
		ConfirmTimeout: c.GetConfirmTimeout(),
		MiniAppURL:     c.GetMiniAppURL(),
		SupportContact: c.GetSupportContact(),
	})

	handler := server.New(c, server.Deps{
		Broker:    tokenBroker,
		Users:     store.users,
		Inspector: token.NewInspector(signer),
		Webhook:   dispatcher,
		Bot:       bot,
		Limiter:   store.limiter,
		Checks:    store.checks,
	})

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := listenAndServe(srv); err != nil {
			log.Err(err).Msg("Server failed")
		}
	}()
	waitForStopSignal()
	cancel()
	returnError = shutdown(srv)
	return returnError
}

// newBot returns the Telegram client, or a no-op sender when no bot token is configured
func newBot(c config.Config) (telegram.Sender, telegram.BotAdmin) {
	if c.GetBotToken() == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, bot replies are disabled")
		return telegram.NoopSender{}, nil
	}
	bot, err := telegram.NewBot(c.GetBotToken(), c.GetEnv() == "DEV")
	if err != nil {
		log.Err(err).Msg("Failed to connect to Telegram, bot replies are disabled")
		return telegram.NoopSender{}, nil
	}
	return bot, bot
}

// newConfirmer confirms in-process unless the broker runs as a separate backend
func newConfirmer(c config.Config, tokenBroker *broker.TokenBroker) webhook.Confirmer {
	backendURL := c.GetBackendURL()
	if backendURL == "" {
		return tokenBroker
	}
	log.Info().Str("backend", backendURL).Msg("Confirming logins through the backend API")
	return brokerclient.New(backendURL, brokerclient.WithAPIKey(c.GetBotAPIKey()))
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
