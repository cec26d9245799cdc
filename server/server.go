package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	"github.com/jrsteele09/go-bot-login/internal/config"
	"github.com/jrsteele09/go-bot-login/ratelimit"
	"github.com/jrsteele09/go-bot-login/telegram"
	"github.com/jrsteele09/go-bot-login/token"
	"github.com/jrsteele09/go-bot-login/users"
)

// HealthCheck reports whether a backing service is usable
type HealthCheck func(ctx context.Context) error

// Deps are the components served over HTTP
type Deps struct {
	Broker    *broker.TokenBroker
	Users     users.UserRepo
	Inspector *token.Inspector
	Webhook   http.Handler      // Telegram update dispatcher
	Bot       telegram.BotAdmin // Nil when no bot token is configured
	Limiter   ratelimit.Limiter // Nil disables the create-login-token limit
	Checks    map[string]HealthCheck
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	deps      Deps
	startedAt time.Time
	now       func() time.Time

	trustedProxies []netip.Prefix
}

func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		deps:      deps,
		startedAt: time.Now(),
		now:       time.Now,

		trustedProxies: cfg.GetTrustedProxies(),
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msg(fmt.Sprintf("[%s %-7s%s] %s", color, method, ResetColor, path))
}

// clientIP is the peer address. Forwarding headers are only read when the peer is a trusted
// proxy; X-Forwarded-For is then walked from the nearest hop to the first untrusted address.
func (s *Server) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !s.isTrustedProxy(peer) {
		return peer.String()
	}

	var hops []string
	for _, value := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(value, ",")...)
	}
	client := netip.Addr{}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = addr.Unmap()
		if !s.isTrustedProxy(client) {
			return client.String()
		}
	}
	if client.IsValid() {
		return client.String()
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer.String()
}

func (s *Server) isTrustedProxy(addr netip.Addr) bool {
	for _, prefix := range s.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func peerAddr(remote string) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(remote); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
