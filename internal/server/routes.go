package server

import "github.com/go-chi/chi/v5"

// setupRoutes registers all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		s.router.Method("GET", "/metrics", s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/agent/chat", s.handleChat)
		r.Post("/agent/clear", s.handleClear)
		r.Get("/agent/status", s.handleStatus)
	})
}
