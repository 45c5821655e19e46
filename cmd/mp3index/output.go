package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"mp3index/internal/api"
	"mp3index/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeMemoryList(memories []api.Memory) error {
	for _, m := range memories {
		if err := writePlain("%s\n", formatMemoryLine(m)); err != nil {
			return err
		}
	}
	return nil
}

func writeMemoryDetail(m api.Memory, neighbors *api.MemoryNeighbors) error {
	lines := []string{
		fmt.Sprintf("id: %d", m.ID),
		fmt.Sprintf("file_name: %s", m.FileName),
		fmt.Sprintf("media_type: %s", m.MediaType),
		fmt.Sprintf("size: %s", humanize.IBytes(uint64(m.FileSize))),
		fmt.Sprintf("recipient: %s", m.RecipientName),
		fmt.Sprintf("label_color: %s", m.LabelColor),
		fmt.Sprintf("shared_at: %s (%s)", formatTime(m.Timestamp), humanize.Time(m.Timestamp)),
		fmt.Sprintf("url: %s", m.AudioData),
		fmt.Sprintf("memory: %s", m.Memory),
	}

	if neighbors != nil {
		lines = append(lines,
			fmt.Sprintf("newer: %s", formatNeighbor(neighbors.Newer)),
			fmt.Sprintf("older: %s", formatNeighbor(neighbors.Older)),
		)
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatMemoryLine(m api.Memory) string {
	return fmt.Sprintf("○ #%d [%s] %s -> %s (%s)", m.ID, m.LabelColor, m.FileName, m.RecipientName, humanize.IBytes(uint64(m.FileSize)))
}

func formatNeighbor(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *id)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
