// Package http serves the estimation, project and account resources as a JSON
// API over the standard library mux.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"estimator/internal/auth"
	"estimator/internal/gateway"
	"estimator/internal/log"
	"estimator/internal/middleware/ratelimit"
	"estimator/internal/middleware/security"
	"estimator/internal/middleware/trace"
)

// Options tunes a Server. The zero value serves anonymously with default
// limits.
type Options struct {
	// RequireAuth rejects resource requests without a valid bearer token.
	RequireAuth bool
	// RateLimit is the number of mutating requests a client may send per
	// minute.
	RateLimit int
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready          func(ctx context.Context) error
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	resources gateway.Resources
	accounts  *auth.Service
	opts      Options
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, resources gateway.Resources, accounts *auth.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	s := &Server{
		resources: resources,
		accounts:  accounts,
		opts:      opts,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector:  security.NewDetector(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)

	mux.Handle("GET /projects", s.protect(s.handleListProjects))
	mux.Handle("POST /projects", s.protect(s.handleCreateProject))
	mux.Handle("PUT /projects/{id}", s.protect(s.handleUpdateProject))
	mux.Handle("DELETE /projects/{id}", s.protect(s.handleDeleteProject))

	mux.Handle("GET /estimations", s.protect(s.handleListEstimations))
	mux.Handle("POST /estimations", s.protect(s.handleCreateEstimation))
	mux.Handle("GET /estimations/{id}", s.protect(s.handleGetEstimation))
	mux.Handle("PUT /estimations/{id}", s.protect(s.handleUpdateEstimation))
	mux.Handle("DELETE /estimations/{id}", s.protect(s.handleDeleteEstimation))
	mux.Handle("GET /estimations/{id}/summary", s.protect(s.handleSummary))

	mux.Handle("POST /estimations/{id}/sections", s.protect(s.handleAddSection))
	mux.Handle("PUT /estimations/{id}/sections/{sid}", s.protect(s.handleUpdateSection))
	mux.Handle("DELETE /estimations/{id}/sections/{sid}", s.protect(s.handleDeleteSection))
	mux.Handle("POST /estimations/{id}/sections/{sid}/items", s.protect(s.handleAddItem))
	mux.Handle("PUT /estimations/{id}/sections/{sid}/items/{iid}", s.protect(s.handleUpdateItem))
	mux.Handle("DELETE /estimations/{id}/sections/{sid}/items/{iid}", s.protect(s.handleDeleteItem))

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			trace.Middleware,
			log.RequestMiddleware(logger, trace.FromRequest, s.detector.ExtractClientIP),
			s.detector.Middleware,
			security.Headers(security.APIHeadersConfig()),
			s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain applies middleware so that the first one listed runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// protect enforces bearer authentication when RequireAuth is set and tags
// the request logger with the caller.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if !s.opts.RequireAuth {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		userID, err := s.accounts.Authenticate(token)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected bearer token", log.FieldError, err)
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := log.WithContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, userID))
		h(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			writeMessage(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
