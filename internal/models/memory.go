package models

import "time"

// Memory is one immutable submission: a stored payload plus its note.
type Memory struct {
	ID            int64      `json:"id"`
	FileName      string     `json:"file_name"`
	BlobKey       string     `json:"blob_key"`
	MediaType     string     `json:"media_type"`
	MemoryText    string     `json:"memory_text"`
	RecipientName string     `json:"recipient_name"`
	LabelColor    LabelColor `json:"label_color"`
	Timestamp     time.Time  `json:"timestamp"`
	FileSize      int64      `json:"file_size"`
	SHA256        string     `json:"sha256,omitempty"`
}
