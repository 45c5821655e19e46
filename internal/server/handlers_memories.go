package server

import (
	"bufio"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"mp3index/internal/models"
)

// multipartFieldSlack covers form fields and part headers on top of the
// payload bound.
const multipartFieldSlack = 1 << 20 // 1 MiB

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.gallery.ListAll(r.Context()))
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	memory, err := s.gallery.GetOne(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, memory)
}

func (s *Server) handleAdjacentMemories(w http.ResponseWriter, r *http.Request) {
	neighbors, err := s.gallery.Adjacent(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, neighbors)
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	limit := s.memories.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartFieldSlack)
	err := r.ParseMultipartForm(s.multipartMaxMemory)
	// The body read may have used most of the connection write deadline.
	s.extendWriteDeadline(w, writeTimeout)
	if err != nil {
		s.writeServiceError(w, r, classifyMultipartError(err, limit))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := formFile(r, "file", "audioFile")
	if err != nil {
		s.writeServiceError(w, r, invalidFileType(fmt.Errorf("an audio or video file is required")))
		return
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	mediaType := uploadMediaType(header, buffered)

	memory, err := s.memories.Submit(r.Context(), SubmitInput{
		FileName:      header.Filename,
		MediaType:     mediaType,
		SizeBytes:     header.Size,
		RecipientName: r.FormValue("recipientName"),
		MemoryText:    firstNonEmpty(r.FormValue("memoryText"), r.FormValue("memory")),
		LabelColor:    r.FormValue("labelColor"),
	}, buffered)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, memory)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	palette := models.LabelPalette()
	out := make([]string, 0, len(palette))
	for _, color := range palette {
		out = append(out, string(color))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// formFile returns the first file part present under any of names.
func formFile(r *http.Request, names ...string) (multipart.File, *multipart.FileHeader, error) {
	var lastErr error
	for _, name := range names {
		file, header, err := r.FormFile(name)
		if err == nil {
			return file, header, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// uploadMediaType prefers the declared part type, then content sniffing, then
// the file extension.
func uploadMediaType(header *multipart.FileHeader, content *bufio.Reader) string {
	declared := normalizeMediaType(header.Header.Get("Content-Type"))
	if models.IsPlayableMediaType(declared) {
		return declared
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	peek, _ := content.Peek(512)
	if sniffed := normalizeMediaType(http.DetectContentType(peek)); models.IsPlayableMediaType(sniffed) {
		return sniffed
	}
	if byExt := mediaTypeForKey(strings.ToLower(filepath.Ext(header.Filename))); byExt != "" {
		return byExt
	}
	return declared
}
