package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"mp3index/internal/blobstore"
	"mp3index/internal/store"
)

const (
	allowRemoteEnvKey = "MP3INDEX_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	// DefaultTransferTimeout bounds one upload body read or media stream.
	DefaultTransferTimeout = 5 * time.Minute

	defaultMultipartMaxMemory int64 = 8 << 20 // 8 MiB
)

// Options configures a Server. Zero values select defaults.
type Options struct {
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	// UploadTokenHash is a bcrypt hash; empty leaves uploads open.
	UploadTokenHash string
	// PublicURL prefixes relative payload URLs in responses.
	PublicURL string
	// TransferTimeout bounds reading an upload body and streaming a payload.
	TransferTimeout time.Duration
	CacheMaxItems   int
	// CacheMaxBytes is the lookup cache budget in encoded response bytes.
	CacheMaxBytes int64
	Rand          *rand.Rand
	Now           func() time.Time
}

// Server wraps HTTP handlers for the mp3index API.
type Server struct {
	addr               string
	store              store.MemoryStore
	memories           *MemoryService
	gallery            *GalleryService
	logger             *slog.Logger
	uploadTokenHash    string
	multipartMaxMemory int64
	transferTimeout    time.Duration
}

// New creates a new server instance.
func New(addr string, memoryStore store.MemoryStore, blobs blobstore.BlobStore, opts Options, logger *slog.Logger) (*Server, error) {
	if memoryStore == nil || blobs == nil {
		return nil, fmt.Errorf("memory store and blob store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mapper := newMemoryMapper(blobs, opts.PublicURL)
	gallery, err := NewGalleryService(memoryStore, blobs, mapper, CacheOptions{
		MaxItems: opts.CacheMaxItems,
		MaxBytes: opts.CacheMaxBytes,
	}, logger)
	if err != nil {
		return nil, err
	}

	multipartMaxMemory := opts.MultipartMaxMemory
	if multipartMaxMemory <= 0 {
		multipartMaxMemory = defaultMultipartMaxMemory
	}
	transferTimeout := opts.TransferTimeout
	if transferTimeout <= 0 {
		transferTimeout = DefaultTransferTimeout
	}

	return &Server{
		addr:  addr,
		store: memoryStore,
		memories: NewMemoryService(memoryStore, blobs, mapper, MemoryServiceOptions{
			MaxUploadBytes: opts.MaxUploadBytes,
			Rand:           opts.Rand,
			Now:            opts.Now,
			Logger:         logger,
		}),
		gallery:            gallery,
		logger:             logger,
		uploadTokenHash:    strings.TrimSpace(opts.UploadTokenHash),
		multipartMaxMemory: multipartMaxMemory,
		transferTimeout:    transferTimeout,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	return s.ServeContext(context.Background())
}

// ServeContext serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeContext(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "backend", s.store.Backend())
	server := s.httpServer()
	defer s.gallery.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server", "addr", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// httpServer builds the listener config. The connection write deadline starts
// when headers are read, so it must outlast a full upload body read.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.transferTimeout,
		WriteTimeout:      s.transferTimeout + writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// extendWriteDeadline gives the rest of the response d from now. Writers
// without deadline support are left alone.
func (s *Server) extendWriteDeadline(w http.ResponseWriter, d time.Duration) {
	err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.log().Debug("extend write deadline", "error", err)
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
