package server

import "github.com/jrsteele09/go-bot-login/brokerclient"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Bot login handshake, shared with brokerclient
	RouteCreateLoginToken = brokerclient.CreateTokenPath
	RouteCheckLogin       = brokerclient.CheckLoginPath
	RouteConfirmLogin     = brokerclient.ConfirmLoginPath
	RouteCancelLogin      = brokerclient.CancelLoginPath

	// Telegram webhook delivery and status
	RouteBotWebhook = "/api/bot"

	// Service routes
	RouteHealth = "/api/health"
	RouteUser   = "/user"
)
