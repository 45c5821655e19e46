package server

import (
	"net/http"

	"mp3index/internal/api"
)

type schemaVersioner interface {
	SchemaVersion() (int, error)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountMemories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}

	resp := api.InfoResponse{
		Backend:        s.store.Backend(),
		MemoryCount:    count,
		MaxUploadBytes: s.memories.MaxUploadBytes(),
	}
	if versioner, ok := s.store.(schemaVersioner); ok {
		version, err := versioner.SchemaVersion()
		if err != nil {
			s.writeServiceError(w, r, storeFailure(err))
			return
		}
		resp.SchemaVersion = version
	}

	s.writeJSON(w, http.StatusOK, resp)
}
