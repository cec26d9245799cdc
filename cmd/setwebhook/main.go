// Command setwebhook registers the bot webhook with Telegram and prints diagnostics.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-bot-login/internal/config"
	"github.com/jrsteele09/go-bot-login/internal/logging"
	"github.com/jrsteele09/go-bot-login/telegram"
)

func main() {
	c, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	url := flag.String("url", c.GetWebhookURL(), "public webhook URL")
	dropPending := flag.Bool("drop-pending", false, "discard updates queued while the webhook was unset")
	checkOnly := flag.Bool("check", false, "only print diagnostics")
	flag.Parse()

	logging.SetupWriter(os.Stderr, c.GetEnv(), c.GetLogLevel())

	if c.GetBotToken() == "" {
		fmt.Fprintln(os.Stderr, "TELEGRAM_BOT_TOKEN is required")
		os.Exit(2)
	}
	bot, err := telegram.NewBot(c.GetBotToken(), false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !*checkOnly {
		secret := c.GetWebhookSecret()
		if secret == "" {
			fmt.Fprintln(os.Stderr, "warning: TELEGRAM_WEBHOOK_SECRET is empty, webhook deliveries will not be authenticated")
		}
		if err := telegram.SetWebhook(bot, *url, secret, *dropPending); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Webhook set to %s\n", *url)
	}

	d, err := telegram.Diagnose(bot, *url)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printDiagnostics(os.Stdout, d)
	if len(d.Problems) > 0 {
		os.Exit(1)
	}
}

func printDiagnostics(w io.Writer, d telegram.Diagnostics) {
	fmt.Fprintf(w, "Bot:              @%s (%d)\n", d.BotUsername, d.BotID)
	fmt.Fprintf(w, "Webhook URL:      %s\n", orNone(d.Webhook.URL))
	fmt.Fprintf(w, "Pending updates:  %d\n", d.Webhook.PendingUpdateCount)
	fmt.Fprintf(w, "Allowed updates:  %v\n", d.Webhook.AllowedUpdates)
	if d.Webhook.LastErrorDate != nil {
		fmt.Fprintf(w, "Last error:       %s at %s\n", d.Webhook.LastErrorMessage, d.Webhook.LastErrorDate.Format("2006-01-02 15:04:05 MST"))
	}
	if len(d.Problems) == 0 {
		fmt.Fprintln(w, "Status:           OK")
		return
	}
	fmt.Fprintln(w, "Problems:")
	for _, p := range d.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
