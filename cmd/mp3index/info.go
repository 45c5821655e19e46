package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mp3index/internal/api"
	"mp3index/internal/config"
)

type infoOutput struct {
	api.InfoResponse `yaml:",inline"`
	APIURL           string `json:"api_url" yaml:"api_url"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	UploadsDir       string `json:"uploads_dir,omitempty" yaml:"uploads_dir,omitempty"`
}

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server storage info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				out := infoOutput{InfoResponse: resp, APIURL: cfg.APIURL}
				if resp.Backend == config.StorageBackendSQLite {
					out.DBPath = cfg.DBPath
					out.UploadsDir = cfg.Storage.UploadsDir
				}

				if *jsonOutput {
					return writeJSON(out)
				}

				_ = writePlain("api_url: %s\n", out.APIURL)
				_ = writePlain("backend: %s\n", out.Backend)
				if out.DBPath != "" {
					_ = writePlain("db_path: %s\n", out.DBPath)
					_ = writePlain("uploads_dir: %s\n", out.UploadsDir)
				}
				if out.SchemaVersion > 0 {
					_ = writePlain("schema_version: %d\n", out.SchemaVersion)
				}
				_ = writePlain("memories: %d\n", out.MemoryCount)
				return writePlain("max_upload: %s\n", humanize.IBytes(uint64(out.MaxUploadBytes)))
			})
		},
	}
}
