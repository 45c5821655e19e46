package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mp3index/internal/blobstore"
	"mp3index/internal/config"
	"mp3index/internal/server"
	"mp3index/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the mp3index API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			memories, blobs, closeStores, err := openBackends(cfg, logger)
			if err != nil {
				return err
			}
			defer closeStores()

			srv, err := server.New(addr, memories, blobs, server.Options{
				MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
				MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
				UploadTokenHash:    cfg.Uploads.TokenHash,
				PublicURL:          cfg.PublicURL,
				TransferTimeout:    cfg.TransferTimeoutDuration(),
				CacheMaxItems:      cfg.Cache.MaxItems,
				CacheMaxBytes:      cfg.Cache.MaxBytes,
			}, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeContext(ctx)
		},
	}
}

// openBackends builds the metadata and blob stores for the configured backend.
func openBackends(cfg *config.Config, logger *slog.Logger) (store.MemoryStore, blobstore.BlobStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		logger.Warn("using in-memory storage; memories are lost on exit")
		return store.NewMemStore(), blobstore.NewMemStore(nil, nil), func() {}, nil
	case config.StorageBackendSQLite, "":
		if cfg.DBPath == "" {
			return nil, nil, nil, fmt.Errorf("db path is required")
		}
		logger.Info("opening database", "path", cfg.DBPath)
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("opening uploads dir", "path", cfg.Storage.UploadsDir)
		fs, err := blobstore.NewLocalFS(cfg.Storage.UploadsDir, blobstore.LocalFSOptions{})
		if err != nil {
			_ = st.Close()
			return nil, nil, nil, err
		}
		return st, fs, func() { _ = st.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
