package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/reactune/internal/pipeline"
)

// Controller is the running detection pipeline as seen by the API.
type Controller interface {
	Status() pipeline.Status
	Enabled() bool
	SetEnabled(enabled bool) error
}

// StatusHandler serves GET /api/status and PUT /api/detection.
type StatusHandler struct {
	ctrl Controller
}

// NewStatusHandler creates a StatusHandler for ctrl.
func NewStatusHandler(ctrl Controller) *StatusHandler {
	return &StatusHandler{ctrl: ctrl}
}

type statusResponse struct {
	Enabled bool            `json:"enabled"`
	Status  pipeline.Status `json:"status"`
}

type detectionRequest struct {
	Enabled *bool `json:"enabled"`
}

// ServeStatus handles GET /api/status.
func (h *StatusHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

// ServeDetection handles PUT /api/detection with {"enabled": bool}.
func (h *StatusHandler) ServeDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Body must be {\"enabled\": true|false}")
		return
	}

	if err := h.ctrl.SetEnabled(*req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *StatusHandler) snapshot() statusResponse {
	return statusResponse{Enabled: h.ctrl.Enabled(), Status: h.ctrl.Status()}
}
