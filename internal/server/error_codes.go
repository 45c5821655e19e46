package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeRequestTooLarge   = 1002
	ErrCodeMissingRequired   = 1009
	ErrCodeInvalidFileType   = 1015
	ErrCodeInvalidLabelColor = 1016

	// Domain state (2xxx)
	ErrCodeMemoryNotFound = 2001
	ErrCodeMediaNotFound  = 2003

	// Auth & limits (3xxx)
	ErrCodeUnauthorized = 3001

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 404:
		return ErrCodeMemoryNotFound
	case 413:
		return ErrCodeRequestTooLarge
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
