package handler

import (
	"net/http"

	"github.com/libris-app/backend/spec"
)

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetHealthDB handles GET /healthz/db.
// It returns 200 when the database answers a ping, 503 otherwise.
func (s *Server) GetHealthDB(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "db_unavailable", "no database configured")
		return
	}
	if err := s.db.Ping(r.Context()); err != nil {
		writeErrorBody(w, http.StatusServiceUnavailable, "db_unavailable", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetOpenAPI handles GET /openapi.yaml, serving the embedded API document.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
