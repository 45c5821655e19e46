package api

import "time"

// Memory is the external representation of a stored memory. Keys stay
// compatible with the original web client.
type Memory struct {
	ID            int64     `json:"id" yaml:"id"`
	FileName      string    `json:"fileName" yaml:"file_name"`
	AudioData     string    `json:"audioData" yaml:"audio_data"`
	MediaType     string    `json:"mediaType" yaml:"media_type"`
	Memory        string    `json:"memory" yaml:"memory"`
	RecipientName string    `json:"recipientName" yaml:"recipient_name"`
	LabelColor    string    `json:"labelColor" yaml:"label_color"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	FileSize      int64     `json:"fileSize" yaml:"file_size"`
}

// MemoryNeighbors holds the ids shown by the player's previous/next controls.
type MemoryNeighbors struct {
	ID    int64  `json:"id" yaml:"id"`
	Newer *int64 `json:"newer" yaml:"newer"`
	Older *int64 `json:"older" yaml:"older"`
}

// MemoryCreateRequest carries the form fields of a memory upload.
type MemoryCreateRequest struct {
	RecipientName string
	MemoryText    string
	LabelColor    string
	FileName      string
	MediaType     string
}
