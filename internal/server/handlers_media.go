package server

import (
	"io"
	"net/http"
	"time"
)

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	content, err := s.gallery.OpenMedia(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()
	s.extendWriteDeadline(w, s.transferTimeout)

	if content.MediaType != "" {
		w.Header().Set("Content-Type", content.MediaType)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if seeker, ok := content.Reader.(io.ReadSeeker); ok {
		http.ServeContent(w, r, content.Name, time.Time{}, seeker)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("stream media", "key", content.Name, "error", err)
	}
}
