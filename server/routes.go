package server

import "net/http"

func (s *Server) initRoutes() {
	// BOT LOGIN
	s.RegisterRouteHandler("POST "+RouteCreateLoginToken, ChainMiddleware(s.CreateLoginTokenHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteCheckLogin, ChainMiddleware(s.CheckLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteConfirmLogin, ChainMiddleware(s.ConfirmLoginHandler(), s.APIMiddleware(s.RequireAPIKey)...))
	s.RegisterRouteHandler("POST "+RouteCancelLogin, ChainMiddleware(s.CancelLoginHandler(), s.APIMiddleware()...))

	// TELEGRAM
	s.RegisterRouteHandler("POST "+RouteBotWebhook, ChainMiddleware(s.deps.Webhook.ServeHTTP, s.WebhookMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteBotWebhook, ChainMiddleware(s.WebhookStatusHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteUser, ChainMiddleware(s.UserHandler(), s.APIMiddleware(s.RequireAuth)...))

	// CORS preflight for every route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
