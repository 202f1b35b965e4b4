package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)
	r.Get("/status", s.status)

	// Analysis
	r.Post("/complete", s.completeHandler)
	r.Post("/definition", s.definition)
	r.Post("/signature", s.signature)
	r.Post("/resolve", s.resolve)

	// Workspace maintenance
	r.Post("/prepare", s.prepare)
	r.Post("/update", s.update)

	// Supervised process control
	r.Route("/server", func(r chi.Router) {
		r.Post("/start", s.startServer)
		r.Post("/stop", s.stopServer)
	})
}
