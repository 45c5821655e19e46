package server

import (
	"net/http"
)

// routePrefixes lists the mount points of the memory routes. The browser
// client calls them under /api.
var routePrefixes = []string{"", "/api"}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	for _, prefix := range routePrefixes {
		// Memories collection.
		mux.HandleFunc("GET "+prefix+"/memories", s.handleListMemories)
		mux.HandleFunc("POST "+prefix+"/memories", s.withUploadAuth(s.handleCreateMemory))

		// Single memory.
		mux.HandleFunc("GET "+prefix+"/memories/{id}", s.handleGetMemory)
		mux.HandleFunc("GET "+prefix+"/memories/{id}/adjacent", s.handleAdjacentMemories)

		// Label palette.
		mux.HandleFunc("GET "+prefix+"/labels", s.handleLabels)
	}

	// Payloads.
	mux.HandleFunc("GET /uploads/{key}", s.handleGetMedia)

	return withCORS(s.withRequestLogging(mux))
}
