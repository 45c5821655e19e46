package main

import (
	"github.com/spf13/cobra"

	"mp3index/internal/api"
	"mp3index/internal/config"
)

type memoryWithNeighbors struct {
	Memory    api.Memory          `json:"memory" yaml:"memory"`
	Neighbors api.MemoryNeighbors `json:"neighbors" yaml:"neighbors"`
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var adjacent bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one memory",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetMemory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !adjacent {
					if *jsonOutput {
						return writeJSON(resp)
					}
					return writeMemoryDetail(resp, nil)
				}

				neighbors, err := client.AdjacentMemories(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(memoryWithNeighbors{Memory: resp, Neighbors: neighbors})
				}
				return writeMemoryDetail(resp, &neighbors)
			})
		},
	}

	cmd.Flags().BoolVar(&adjacent, "adjacent", false, "include the newer and older memory ids")

	return cmd
}
