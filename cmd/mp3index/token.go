package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mp3index/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the upload token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash [token]",
		Short: "Hash an upload token for uploads.token_hash",
		Long: "Hash an upload token for uploads.token_hash. The token is read from stdin " +
			"when not given as an argument. Clients send it via MP3INDEX_UPLOAD_TOKEN.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				read, err := readToken(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = read
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			return writePlain("%s\n", hash)
		},
	})

	return cmd
}

func readToken(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("token is required")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
