package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/auth"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/metrics"
	"go.uber.org/zap"
)

// Options wires the HTTP server's collaborators.
type Options struct {
	Addr     string
	Verifier *auth.Verifier
	Service  ChatService
	Pinger   Pinger
	// Metrics is served on /metrics when non-nil.
	Metrics *metrics.Collector
}

// Server is the OpenAI-compatible HTTP server.
type Server struct {
	httpServer *http.Server
}

// New constructs a Server from the given options.
func New(opts Options) *Server {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	api := router.PathPrefix("/v1").Subrouter()
	api.Use(authMiddleware(opts.Verifier))
	api.Handle("/chat/completions", NewChatHandler(opts.Service)).Methods(http.MethodPost)

	router.HandleFunc("/healthz", HealthHandler).Methods(http.MethodGet)
	if opts.Pinger != nil {
		router.Handle("/readyz", NewReadyHandler(opts.Pinger)).Methods(http.MethodGet)
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = router
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       60 * time.Second,
			// No WriteTimeout: streamed generations can run for minutes.
		},
	}
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	logger.Log.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
