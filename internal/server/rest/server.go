// Package rest exposes the session operations over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

// SessionManager is the part of services.SessionService the handlers use.
type SessionManager interface {
	Signup(ctx context.Context, n services.NewUser) (*models.User, error)
	Signin(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error)
	Verify(ctx context.Context, accessToken string) bool
	RefreshTokens(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string) (*http.Cookie, error)
	LogoutAll(ctx context.Context, accessToken string) (*http.Cookie, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
	Logins(ctx context.Context, accessToken string) ([]models.LoginSession, error)
}

type Server struct {
	address        string
	sessions       SessionManager
	cookieName     string
	trustedProxies []netip.Prefix
	logger         logging.Logger
}

// NewServer builds the HTTP API. Forwarding headers are only honoured on
// requests whose peer falls in trustedProxies.
func NewServer(address string, sessions SessionManager, cookieName string,
	trustedProxies []netip.Prefix, l logging.Logger) *Server {
	return &Server{
		address:        address,
		sessions:       sessions,
		cookieName:     cookieName,
		trustedProxies: trustedProxies,
		logger:         l.With("module", "http_server"),
	}
}

// Handler returns the routed API with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/signup", s.signup)
	mux.HandleFunc("POST /api/v1/auth/signin", s.signin)
	mux.HandleFunc("POST /api/v1/auth/verify", s.verify)
	mux.HandleFunc("POST /api/v1/auth/refresh", s.refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", s.logout)
	mux.HandleFunc("POST /api/v1/auth/logout_all", s.logoutAll)
	mux.HandleFunc("GET /api/v1/users/me", s.me)
	mux.HandleFunc("GET /api/v1/users/me/logins", s.logins)
	mux.HandleFunc("GET /api/v1/healthcheck/", s.healthcheck)

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "err", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
