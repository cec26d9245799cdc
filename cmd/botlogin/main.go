// Command botlogin logs in through the Telegram bot from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/jrsteele09/go-bot-login/backoff"
	"github.com/jrsteele09/go-bot-login/brokerclient"
	"github.com/jrsteele09/go-bot-login/internal/config"
	"github.com/jrsteele09/go-bot-login/internal/logging"
	"github.com/jrsteele09/go-bot-login/loginclient"
)

func main() {
	os.Exit(run())
}

func run() int {
	c, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	backendURL := flag.String("backend", c.GetBaseURL(), "token broker base URL")
	device := flag.String("device", defaultDevice(), "device description shown to the server")
	openLink := flag.Bool("open", true, "open the Telegram link in the browser")
	printToken := flag.Bool("print-token", false, "print the access token on success")
	flag.Parse()

	logging.SetupWriter(os.Stderr, c.GetEnv(), c.GetLogLevel())
	if err := c.ValidatePolling(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	opener := loginclient.OpenerFunc(func(string) error { return nil })
	if *openLink {
		browser.Stdout = os.Stderr
		opener = browser.OpenURL
	}

	client := loginclient.New(
		brokerclient.New(*backendURL),
		backoff.New(brokerclient.Classify),
		loginclient.WithPollInterval(c.GetPollInterval()),
		loginclient.WithMaxPollAttempts(c.GetMaxPollAttempts()),
		loginclient.WithOpener(opener),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Err(err).Msg("Login client stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	out := newRenderer(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
	client.Start(*device)
	for {
		select {
		case <-stop:
			client.Cancel()
		case ev := <-client.Events():
			out.render(ev)
			if !ev.State.IsTerminal() {
				continue
			}
			if ev.State != loginclient.StateApproved {
				return 1
			}
			if *printToken {
				if err := printAccessToken(os.Stdout, ev); err != nil {
					fmt.Fprintln(os.Stderr, err)
					return 1
				}
			}
			return 0
		}
	}
}

func defaultDevice() string {
	host, err := os.Hostname()
	if err != nil {
		return "botlogin"
	}
	return "botlogin@" + host
}
