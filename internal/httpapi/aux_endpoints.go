package httpapi

import (
	"net/http"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz checks the backing store when a checker is wired; a bare memory
// deployment is always ready.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.readier != nil {
		if err := s.readier.Ready(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "store unavailable", "not_ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
