package server

import (
	"fmt"
	"net/http"

	"mp3index/internal/auth"
)

// withUploadAuth requires a bearer token matching the configured hash. With
// no hash configured uploads stay open.
func (s *Server) withUploadAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.uploadTokenHash == "" {
			next(w, r)
			return
		}
		token := auth.BearerToken(r)
		if token == "" {
			s.writeServiceError(w, r, unauthorized(fmt.Errorf("upload token required")))
			return
		}
		if !auth.VerifyToken(s.uploadTokenHash, token) {
			s.writeServiceError(w, r, unauthorized(fmt.Errorf("invalid upload token")))
			return
		}
		next(w, r)
	}
}

// withCORS lets the browser client call the API from another origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		header.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
