package models

import (
	"fmt"
	"math/rand/v2"
	"mime"
	"path/filepath"
	"strings"
)

// LabelColor is the cosmetic tag attached to each memory.
type LabelColor string

const (
	LabelRed    LabelColor = "#e74c3c"
	LabelOrange LabelColor = "#f39c12"
	LabelYellow LabelColor = "#f1c40f"
	LabelGreen  LabelColor = "#2ecc71"
	LabelBlue   LabelColor = "#3498db"
	LabelPurple LabelColor = "#9b59b6"
)

var labelPalette = []LabelColor{
	LabelRed,
	LabelOrange,
	LabelYellow,
	LabelGreen,
	LabelBlue,
	LabelPurple,
}

var validLabelColors = map[LabelColor]struct{}{
	LabelRed:    {},
	LabelOrange: {},
	LabelYellow: {},
	LabelGreen:  {},
	LabelBlue:   {},
	LabelPurple: {},
}

// LabelPalette returns the fixed label palette in display order.
func LabelPalette() []LabelColor {
	out := make([]LabelColor, len(labelPalette))
	copy(out, labelPalette)
	return out
}

func IsValidLabelColor(color LabelColor) bool {
	_, ok := validLabelColors[color]
	return ok
}

func ParseLabelColor(raw string) (LabelColor, error) {
	value := LabelColor(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("label color is required")
	}
	if !IsValidLabelColor(value) {
		return "", fmt.Errorf("invalid label color: %s", value)
	}
	return value, nil
}

// RandomLabelColor picks uniformly from the palette. A nil source uses the
// package-level generator.
func RandomLabelColor(r *rand.Rand) LabelColor {
	if r == nil {
		return labelPalette[rand.IntN(len(labelPalette))]
	}
	return labelPalette[r.IntN(len(labelPalette))]
}

// IsPlayableMediaType reports whether mediaType is an audio or video type.
func IsPlayableMediaType(mediaType string) bool {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(mediaType))
	if err != nil {
		return false
	}
	parsed = strings.ToLower(parsed)
	return strings.HasPrefix(parsed, "audio/") || strings.HasPrefix(parsed, "video/")
}

var playableExtensions = map[string]string{
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "video/webm",
}

var preferredExtensions = map[string]string{
	"audio/aac":       ".aac",
	"audio/flac":      ".flac",
	"audio/mp4":       ".m4a",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"audio/wave":      ".wav",
	"audio/x-wav":     ".wav",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// ExtensionForMediaType returns the file extension stored payloads of
// mediaType are served under, or "" when none is known.
func ExtensionForMediaType(mediaType string) string {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(mediaType))
	if err != nil {
		return ""
	}
	return preferredExtensions[strings.ToLower(parsed)]
}

// MediaTypeForName guesses a media type from a file name extension. An empty
// result means the extension is unknown.
func MediaTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mediaType, ok := playableExtensions[ext]; ok {
		return mediaType
	}
	return mime.TypeByExtension(ext)
}
