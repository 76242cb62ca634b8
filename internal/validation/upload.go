// Package validation checks files client-side before they reach the
// upload transport.
package validation

import (
	"strings"

	"github.com/mojika/mojika/internal/domain"
)

// MaxUploadSize is the hard upload limit (2 GiB).
const MaxUploadSize int64 = 2 << 30

var allowedExtensions = []string{".mp3", ".mp4", ".wav", ".m4a", ".mov", ".webm", ".mpeg"}

// allowedMIMETypes accepts a file whose extension is unknown but whose
// declared media type is one we can transcribe.
var allowedMIMETypes = map[string]bool{
	"audio/mpeg":      true,
	"audio/mp4":       true,
	"audio/wav":       true,
	"audio/x-m4a":     true,
	"video/mp4":       true,
	"video/quicktime": true,
	"video/webm":      true,
	"video/mpeg":      true,
}

// ValidateUpload returns a non-retryable ErrorInfo when the file cannot be
// submitted, or nil when it passes. The extension match is case-insensitive
// and either the extension or the declared media type is sufficient.
func ValidateUpload(filename, contentType string, size int64) *domain.ErrorInfo {
	if size > MaxUploadSize {
		return domain.NewErrorInfo("file exceeds the 2GB size limit", domain.ErrorTypeFileSize, false)
	}

	lower := strings.ToLower(filename)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	if allowedMIMETypes[contentType] {
		return nil
	}

	return domain.NewErrorInfo(
		"unsupported file format: use mp3, mp4, wav, m4a, mov, webm or mpeg",
		domain.ErrorTypeFileType, false)
}
