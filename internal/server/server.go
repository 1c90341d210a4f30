package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/echomail-ai/echomail/internal/logging"
	"github.com/echomail-ai/echomail/internal/metrics"
	"github.com/echomail-ai/echomail/internal/session"
)

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	EnableCORS bool

	// JWTSecret signs and verifies session tokens (HS256).
	JWTSecret string

	// SetupTimeout bounds how long a message-bearing stream may wait for
	// its first event.
	SetupTimeout time.Duration

	// HeartbeatInterval is the SSE comment cadence on idle streams.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:              8080,
		EnableCORS:        true,
		SetupTimeout:      60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Server is the HTTP gateway in front of the session registry.
type Server struct {
	config   *Config
	router   *chi.Mux
	httpSrv  *http.Server
	registry *session.Registry
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a Server wired to the given registry. metrics may be nil;
// the /metrics route is then omitted.
func New(cfg *Config, registry *session.Registry, m *metrics.Metrics) *Server {
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		registry: registry,
		metrics:  m,
		log:      logging.Component("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout; SSE streams stay open indefinitely.
	}

	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
