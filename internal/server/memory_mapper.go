package server

import (
	"strings"

	"mp3index/internal/api"
	"mp3index/internal/blobstore"
	"mp3index/internal/models"
)

// memoryMapper turns stored records into their external shape.
type memoryMapper struct {
	blobs     blobstore.BlobStore
	publicURL string
}

func newMemoryMapper(blobs blobstore.BlobStore, publicURL string) memoryMapper {
	return memoryMapper{blobs: blobs, publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/")}
}

// resolve returns a directly consumable URL for key. Relative references are
// prefixed with the public base URL when one is configured.
func (m memoryMapper) resolve(key string) (string, error) {
	ref, err := m.blobs.Resolve(key)
	if err != nil {
		return "", err
	}
	if m.publicURL != "" && strings.HasPrefix(ref, "/") {
		return m.publicURL + ref, nil
	}
	return ref, nil
}

func (m memoryMapper) toAPI(memory models.Memory) (api.Memory, error) {
	audioData, err := m.resolve(memory.BlobKey)
	if err != nil {
		return api.Memory{}, err
	}
	return api.Memory{
		ID:            memory.ID,
		FileName:      memory.FileName,
		AudioData:     audioData,
		MediaType:     memory.MediaType,
		Memory:        memory.MemoryText,
		RecipientName: memory.RecipientName,
		LabelColor:    string(memory.LabelColor),
		Timestamp:     memory.Timestamp.UTC().Truncate(timestampPrecision),
		FileSize:      memory.FileSize,
	}, nil
}
