package api

import (
	"net/http"

	"github.com/ayusman/reactune/internal/recommend"
)

// TablesSource provides the active mapping tables.
type TablesSource interface {
	Tables() recommend.Tables
}

// MappingsHandler serves the active mapping tables read-only.
type MappingsHandler struct {
	src TablesSource
}

// NewMappingsHandler creates a MappingsHandler for src.
func NewMappingsHandler(src TablesSource) *MappingsHandler {
	return &MappingsHandler{src: src}
}

type mappingsResponse struct {
	Tables  recommend.Tables `json:"tables"`
	Presets []string         `json:"presets"`
	Bands   []string         `json:"bands"`
}

// ServeHTTP handles GET /api/mappings.
func (h *MappingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, mappingsResponse{
		Tables:  h.src.Tables(),
		Presets: recommend.PresetNames(),
		Bands:   recommend.Bands[:],
	})
}
