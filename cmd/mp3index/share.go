package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mp3index/internal/api"
	"mp3index/internal/config"
	"mp3index/internal/models"
)

const sniffLength = 512

func newShareCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		recipient string
		note      string
		color     string
		mediaType string
	)

	cmd := &cobra.Command{
		Use:   "share <file>",
		Short: "Upload an audio or video file with a note for someone",
		Args:  requireExactlyArgs(1, "file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			content := bufio.NewReaderSize(f, sniffLength)
			if strings.TrimSpace(mediaType) == "" {
				mediaType = detectMediaType(path, content)
			}

			req := api.MemoryCreateRequest{
				RecipientName: recipient,
				MemoryText:    note,
				LabelColor:    color,
				FileName:      filepath.Base(path),
				MediaType:     mediaType,
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateMemory(cmd.Context(), req, content)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("shared #%d %s (%s) with %s [%s]\n",
					resp.ID, resp.FileName, humanize.IBytes(uint64(info.Size())), resp.RecipientName, resp.LabelColor)
			})
		},
	}

	cmd.Flags().StringVar(&recipient, "to", "", "recipient name")
	cmd.Flags().StringVar(&note, "note", "", "memory text")
	cmd.Flags().StringVar(&color, "color", "", "label color from the palette (random when empty)")
	cmd.Flags().StringVar(&mediaType, "type", "", "media type override")

	return cmd
}

// detectMediaType prefers the extension and falls back to content sniffing.
func detectMediaType(path string, r *bufio.Reader) string {
	if byExt := models.MediaTypeForName(path); byExt != "" {
		return byExt
	}
	head, _ := r.Peek(sniffLength)
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head)
}
