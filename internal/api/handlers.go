package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/roof"
)

// Service adapts a roof.Controller to HTTP, one handler per operation:
// decode the request, validate, call the controller, write JSON.
type Service struct {
	ctrl *roof.Controller
}

// NewService constructs a Service over ctrl.
func NewService(ctrl *roof.Controller) *Service {
	return &Service{ctrl: ctrl}
}

func (s *Service) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Service) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Configuration())
}

func (s *Service) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg roof.Configuration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid configuration body", err.Error())
		return
	}
	updated, err := s.ctrl.UpdateConfiguration(cfg)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) handleOpen(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Open()
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Service) handleClose(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Close()
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Service) handleStop(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Stop(roof.ReasonCommandIssued)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type clearFaultRequest struct {
	PulseMilliseconds int `json:"pulseMilliseconds"`
}

type clearFaultResponse struct {
	Cleared bool                `json:"cleared"`
	Status  roof.StatusSnapshot `json:"status"`
}

const defaultClearFaultPulseMs = 250

func (s *Service) handleClearFault(w http.ResponseWriter, r *http.Request) {
	var req clearFaultRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid clear-fault body", err.Error())
			return
		}
	}
	pulseMs := req.PulseMilliseconds
	if pulseMs <= 0 {
		pulseMs = defaultClearFaultPulseMs
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(pulseMs+2000)*time.Millisecond)
	defer cancel()

	ok, err := s.ctrl.ClearFault(ctx, pulseMs)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearFaultResponse{Cleared: ok, Status: s.ctrl.Status()})
}

func writeControllerError(w http.ResponseWriter, err error) {
	var verr *roof.ValidationError
	var serr *roof.ServiceStateError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "validation error", verr.Error())
	case errors.As(err, &serr):
		writeProblem(w, http.StatusConflict, "service state error", serr.Error())
	case errors.Is(err, roof.ErrAlreadyDisposed):
		writeProblem(w, http.StatusServiceUnavailable, "controller disposed", err.Error())
	case errors.Is(err, roof.ErrCancelled):
		writeProblem(w, http.StatusRequestTimeout, "operation cancelled", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
