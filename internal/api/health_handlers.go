package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/quizflash/internal/logger"
)

// handleHealth reports liveness and always returns 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady returns 503 while the store backend is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if s.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Pinger.Ping(ctx); err != nil {
			log.Warn("readiness check failed - store: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Store unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
