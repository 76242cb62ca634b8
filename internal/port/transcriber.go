package port

import (
	"context"
	"io"

	"github.com/mojika/mojika/internal/domain"
)

// UploadFile describes a file to submit. Open must be re-invokable so the
// retry driver can replay the upload from the start.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ProgressFunc receives byte-level progress snapshots during an upload.
type ProgressFunc func(domain.UploadProgress)

// Transcriber is the consumed transcription API.
type Transcriber interface {
	Upload(ctx context.Context, file UploadFile, onProgress ProgressFunc) (*domain.TranscriptionJob, error)
	GetStatus(ctx context.Context, jobID string) (*domain.TranscriptionJob, error)
	GetResult(ctx context.Context, jobID string) (*domain.TranscriptionJob, error)
	Delete(ctx context.Context, jobID string) error
}
