package domain

import "errors"

var (
	ErrNotFound     = errors.New("history entry not found")
	ErrKeyNotFound  = errors.New("key not found")
	ErrNoTranscript = errors.New("no transcription text available")
)

type ErrorType string

const (
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeFileSize ErrorType = "fileSize"
	ErrorTypeFileType ErrorType = "fileType"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// ErrorInfo is the typed failure descriptor surfaced to callers. Retryable
// signals whether retrying makes sense; validation failures never are.
type ErrorInfo struct {
	Message   string    `json:"message"`
	Type      ErrorType `json:"type"`
	Retryable bool      `json:"retryable"`
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

func NewErrorInfo(message string, errType ErrorType, retryable bool) *ErrorInfo {
	return &ErrorInfo{Message: message, Type: errType, Retryable: retryable}
}

// Classify maps an arbitrary error to an ErrorInfo. An error that already
// carries a classification passes through unchanged; everything else becomes
// unknown and retryable.
func Classify(err error) *ErrorInfo {
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return &ErrorInfo{
		Message:   err.Error(),
		Type:      ErrorTypeUnknown,
		Retryable: true,
	}
}
