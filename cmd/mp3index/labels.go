package main

import (
	"github.com/spf13/cobra"

	"mp3index/internal/api"
	"mp3index/internal/config"
)

func newLabelsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the label color palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				labels, err := client.ListLabels(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(labels)
				}
				for _, label := range labels {
					if err := writePlain("%s\n", label); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
