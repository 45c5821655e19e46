package main

import (
	"context"
	"errors"
	"net"
	"strings"

	"mp3index/internal/api"
	"mp3index/internal/models"
)

// Numeric error codes mirrored from the server.
const (
	errCodeRequestTooLarge   = 1002
	errCodeMissingRequired   = 1009
	errCodeInvalidFileType   = 1015
	errCodeInvalidLabelColor = 1016
	errCodeMemoryNotFound    = 2001
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case errCodeInvalidFileType:
			lines = append(lines, "hint: only audio/* and video/* files can be shared; override the detected type with --type.")
		case errCodeMissingRequired:
			lines = append(lines, "hint: both --to and --note are required.")
		case errCodeInvalidLabelColor:
			lines = append(lines, "hint: --color must be one of: "+paletteList()+".")
		case errCodeRequestTooLarge:
			lines = append(lines, "hint: the server limit is uploads.max_upload_bytes; see: mp3index info")
		case errCodeMemoryNotFound:
			lines = append(lines, "hint: list existing memories with: mp3index list")
		}
		if apiErr.Code == "unauthorized" {
			lines = append(lines, "hint: set MP3INDEX_UPLOAD_TOKEN to the token hashed into uploads.token_hash.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify MP3INDEX_API_URL points to an mp3index server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase MP3INDEX_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an mp3index server is running at MP3INDEX_API_URL.",
			"hint: start a local server manually with: mp3index srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func paletteList() string {
	palette := models.LabelPalette()
	names := make([]string, 0, len(palette))
	for _, color := range palette {
		names = append(names, string(color))
	}
	return strings.Join(names, ", ")
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
