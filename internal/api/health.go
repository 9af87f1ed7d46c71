package api

import "net/http"

// handleHealth reports the current health-probe snapshot.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.ctrl.Health()
	status := http.StatusOK
	if !h.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}
