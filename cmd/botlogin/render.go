package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jrsteele09/go-bot-login/loginclient"
)

// renderer prints login progress. On a terminal, countdowns rewrite the current line.
type renderer struct {
	w           io.Writer
	interactive bool
	inline      bool // The current line holds a countdown
}

func newRenderer(w io.Writer, interactive bool) *renderer {
	return &renderer{w: w, interactive: interactive}
}

func (r *renderer) render(ev loginclient.Event) {
	switch {
	case ev.Wait != nil:
		r.status(loginclient.WaitMessage(*ev.Wait), ev.Wait.Remaining == 0)
	case ev.State == loginclient.StateCreatingToken:
		r.line("Requesting a login link...")
	case ev.State == loginclient.StatePolling && ev.Attempt == 0:
		r.line("Open this link and press Start in Telegram:")
		r.line("  " + ev.BotURL)
	case ev.State == loginclient.StatePolling:
		r.status(fmt.Sprintf("Waiting for confirmation (%d/%d)", ev.Attempt, ev.MaxAttempts), false)
	case ev.State == loginclient.StateApproved && ev.Result != nil && ev.Result.User != nil:
		r.line(fmt.Sprintf("Logged in as %s (Telegram ID %s)", ev.Result.User.DisplayName(), ev.Result.User.TelegramID))
	case ev.State == loginclient.StateApproved:
		r.line("Logged in")
	default:
		r.line(loginclient.UserMessage(ev.Err))
	}
}

// status shows transient progress; without a terminal only the first message of a run is printed
func (r *renderer) status(text string, done bool) {
	if !r.interactive {
		if !r.inline {
			fmt.Fprintln(r.w, text)
		}
		r.inline = !done
		return
	}
	fmt.Fprintf(r.w, "\r\033[K%s", text)
	r.inline = true
}

func (r *renderer) line(text string) {
	if r.inline && r.interactive {
		fmt.Fprintln(r.w)
	}
	r.inline = false
	fmt.Fprintln(r.w, text)
}

// printAccessToken writes the access token of an approved login
func printAccessToken(w io.Writer, ev loginclient.Event) error {
	if ev.Result == nil || ev.Result.Token == nil || ev.Result.Token.AccessToken == "" {
		return errors.New("login approved but the server returned no access token")
	}
	_, err := fmt.Fprintln(w, ev.Result.Token.AccessToken)
	return err
}
