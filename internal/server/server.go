// Package server provides the HTTP server for the reaction pipeline.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/reactune/internal/server/api"
	"github.com/ayusman/reactune/internal/store"
)

// Config holds the server configuration. Nil parts disable their routes.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller api.Controller
	Mappings   api.TablesSource
	Hub        *Hub
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Controller != nil {
		status := api.NewStatusHandler(s.config.Controller)
		s.mux.HandleFunc("/api/status", status.ServeStatus)
		s.mux.HandleFunc("/api/detection", status.ServeDetection)
	}

	if s.config.Mappings != nil {
		s.mux.Handle("/api/mappings", api.NewMappingsHandler(s.config.Mappings))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/reactions", s.config.Hub)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
