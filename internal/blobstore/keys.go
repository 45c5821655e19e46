package blobstore

import (
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mp3index/internal/models"
)

var (
	extRegex = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
	keyRegex = regexp.MustCompile(`^[0-9]{1,20}-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,10})?$`)
)

// keyGenerator builds storage keys of the form <unix-millis>-<uuid><ext>.
// The original file name only contributes its extension; without a usable
// one the extension comes from the media type.
type keyGenerator struct {
	entropy io.Reader
	now     func() time.Time
}

func newKeyGenerator(entropy io.Reader, now func() time.Time) keyGenerator {
	if entropy == nil {
		entropy = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return keyGenerator{entropy: entropy, now: now}
}

func (g keyGenerator) next(originalName, mediaType string) (string, error) {
	id, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate blob key: %w", err)
	}
	millis := strconv.FormatInt(g.now().UnixMilli(), 10)
	ext := safeExtension(originalName)
	if ext == "" {
		ext = models.ExtensionForMediaType(mediaType)
	}
	return millis + "-" + id.String() + ext, nil
}

func safeExtension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	if !extRegex.MatchString(ext) {
		return ""
	}
	return "." + ext
}

// ValidKey reports whether key has the shape produced by this package.
func ValidKey(key string) bool {
	return keyRegex.MatchString(key)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("blob key is required")
	}
	if !ValidKey(key) {
		return fmt.Errorf("invalid blob key")
	}
	return nil
}
