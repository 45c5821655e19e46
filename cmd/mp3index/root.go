package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mp3index/internal/config"
	"mp3index/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput   bool
		outputFormat string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:           "mp3index",
		Short:         "Share audio and video memories with the people they are for",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return selectOutput(outputFormat, &jsonOutput)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text, json or yaml")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newShareCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newLabelsCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newTokenCmd(),
	)

	return cmd
}

// selectOutput resolves --output and --json into the shared formatter.
func selectOutput(name string, jsonOutput *bool) error {
	formatter, err := format.ForName(name)
	if err != nil {
		return err
	}
	if formatter != nil {
		outputFormatter = formatter
		*jsonOutput = true
		return nil
	}
	if *jsonOutput {
		outputFormatter = format.JSONFormatter{}
	}
	return nil
}
