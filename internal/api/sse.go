package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/RoySalisbury/HVOv9-sub007/internal/roof"
)

// handleStatusStream pushes StatusSnapshot updates to the client as
// they are published.
func (s *Service) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	current, updates, cancel := s.ctrl.Subscribe()
	defer cancel()

	if !writeStatusEvent(w, flusher, current) {
		return
	}

	ctx := r.Context()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if !writeStatusEvent(w, flusher, snap) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeStatusEvent(w http.ResponseWriter, flusher http.Flusher, snap roof.StatusSnapshot) bool {
	b, err := json.Marshal(snap)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
