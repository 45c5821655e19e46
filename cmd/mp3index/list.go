package main

import (
	"strings"

	"github.com/spf13/cobra"

	"mp3index/internal/api"
	"mp3index/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		limit     int
		recipient string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				memories, err := client.ListMemories(cmd.Context())
				if err != nil {
					return err
				}
				memories = filterMemories(memories, recipient, limit)
				if *jsonOutput {
					return writeJSON(memories)
				}
				return writeMemoryList(memories)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of memories (0 for all)")
	cmd.Flags().StringVar(&recipient, "to", "", "only memories for this recipient")

	return cmd
}

func filterMemories(memories []api.Memory, recipient string, limit int) []api.Memory {
	recipient = strings.TrimSpace(recipient)
	out := make([]api.Memory, 0, len(memories))
	for _, m := range memories {
		if recipient != "" && !strings.EqualFold(m.RecipientName, recipient) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
