package api

import (
	"time"

	"github.com/mojika/mojika/internal/domain"
)

// transcriptionJobDTO mirrors the API's snake_case response bodies. The
// in-memory model uses camelCase; conversion happens in toDomain.
type transcriptionJobDTO struct {
	ID                string     `json:"id"`
	OriginalFilename  string     `json:"original_filename"`
	FileURL           string     `json:"file_url"`
	FileSize          int64      `json:"file_size"`
	Duration          float64    `json:"duration"`
	Language          string     `json:"language"`
	TranscriptionText string     `json:"transcription_text"`
	Status            string     `json:"status"`
	ErrorMessage      string     `json:"error_message"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}

func (d *transcriptionJobDTO) toDomain() *domain.TranscriptionJob {
	return &domain.TranscriptionJob{
		ID:                d.ID,
		OriginalFilename:  d.OriginalFilename,
		FileURL:           d.FileURL,
		FileSize:          d.FileSize,
		Duration:          d.Duration,
		Language:          d.Language,
		TranscriptionText: d.TranscriptionText,
		Status:            domain.JobStatus(d.Status),
		ErrorMessage:      d.ErrorMessage,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		CompletedAt:       d.CompletedAt,
	}
}

// errorBodyDTO covers both error body shapes the API is known to emit.
type errorBodyDTO struct {
	Detail string `json:"detail"`
	Err    string `json:"error"`
}
