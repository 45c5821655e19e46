package api

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	Backend        string `json:"backend" yaml:"backend"`
	SchemaVersion  int    `json:"schema_version" yaml:"schema_version"`
	MemoryCount    int    `json:"memory_count" yaml:"memory_count"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// HealthResponse is the response from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
