// Package server hosts the local JSON/HTTP API. It exposes the same
// pipeline the terminal surfaces use plus read-only views of the
// schedule, learned patterns and recent telemetry, so a dashboard or
// script can drive Focusboard without going through the REPL.
package server

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/odvcencio/focusboard/pkg/logging"
	"github.com/odvcencio/focusboard/pkg/pipeline"
	"github.com/odvcencio/focusboard/pkg/skillbook"
	"github.com/odvcencio/focusboard/pkg/state"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

var errUnauthorized = stdliberrors.New("unauthorized")

// Config controls how the API binds and authenticates.
type Config struct {
	Bind           string
	AuthToken      string
	RequireToken   bool
	PublicMetrics  bool
	AllowedOrigins []string
	Version        string
}

// Server hosts the HTTP API over one pipeline and its stores.
type Server struct {
	cfg        Config
	pipe       *pipeline.Pipeline
	store      *state.Store
	book       *skillbook.Book
	hub        *telemetry.Hub
	logger     *logging.Logger
	httpServer *http.Server
	now        func() time.Time
}

// New constructs a server. The pipeline handles every write; store,
// book and hub back the read-only views and may be nil to disable the
// corresponding endpoints.
func New(cfg Config, pipe *pipeline.Pipeline, store *state.Store, book *skillbook.Book, hub *telemetry.Hub, logger *logging.Logger) *Server {
	if cfg.Bind == "" {
		cfg.Bind = "127.0.0.1:4499"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost", "http://127.0.0.1"}
	}
	return &Server{
		cfg:    cfg,
		pipe:   pipe,
		store:  store,
		book:   book,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// Start serves the API until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.validateStartupConfig(); err != nil {
		return err
	}
	s.httpServer = s.newHTTPServer()

	failed := make(chan error, 1)
	go s.serve(failed)

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-failed:
		return err
	}
}

// newHTTPServer wraps the router for cleartext HTTP/2, letting a
// dashboard multiplex its event polling over one connection.
func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           h2c.NewHandler(s.buildRouter(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}

func (s *Server) serve(failed chan<- error) {
	s.logger.Info(logging.CategoryServer, "listening", "serving api on "+s.cfg.Bind, map[string]any{
		"bind": s.cfg.Bind,
	})
	err := s.httpServer.ListenAndServe()
	if err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
		failed <- err
	}
}

// shutdown gives in-flight requests five seconds to finish.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// buildRouter assembles routes and middleware. Everything under /api
// passes the auth middleware; /healthz and /metrics stay outside so
// probes and scrapers work with their own rules.
func (s *Server) buildRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(s.corsMiddleware, s.securityHeadersMiddleware)

	router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/process", s.handleProcess)
		r.Get("/state", s.handleState)
		r.Get("/schedule/today", s.handleScheduleToday)
		r.Get("/schedule/now", s.handleScheduleNow)
		r.Get("/schedule/week", s.handleScheduleWeek)
		r.Get("/patterns", s.handlePatterns)
		r.Get("/events", s.handleEvents)
	})

	router.Get("/healthz", s.handleHealthz)
	router.Get("/metrics", s.handleMetrics)
	return router
}

// validateStartupConfig refuses a non-loopback bind unless token auth
// is fully configured.
func (s *Server) validateStartupConfig() error {
	if isLoopbackBindAddress(s.cfg.Bind) {
		return nil
	}
	if s.cfg.RequireToken && strings.TrimSpace(s.cfg.AuthToken) != "" {
		return nil
	}
	return fmt.Errorf("refusing to bind api to %q without authentication (set server.require_token and server.auth_token)", s.cfg.Bind)
}

// isLoopbackBindAddress reports whether addr keeps the listener on
// this machine. Anything other than localhost must parse as a loopback
// IP, so wildcard binds and external hostnames both fail.
func isLoopbackBindAddress(addr string) bool {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSpace(host))

	if host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if _, err := s.store.Document(); err != nil {
			respondError(w, http.StatusServiceUnavailable, stdliberrors.New("state unavailable"))
			return
		}
	}
	respondJSON(w, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
		"time":    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		respondError(w, http.StatusUnauthorized, errUnauthorized)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}
